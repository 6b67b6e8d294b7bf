// Package testutil 提供基于内存 sqlite 的测试数据库
package testutil

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// schema 与 migrations/ 中的 MySQL 表结构保持一致
const schema = `
CREATE TABLE orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_number TEXT NOT NULL UNIQUE,
    customer_id INTEGER NULL,
    email TEXT NOT NULL,
    currency TEXT NOT NULL,
    subtotal_amount INTEGER NOT NULL DEFAULT 0,
    discount_amount INTEGER NOT NULL DEFAULT 0,
    shipping_amount INTEGER NOT NULL DEFAULT 0,
    tax_amount INTEGER NOT NULL DEFAULT 0,
    total_amount INTEGER NOT NULL DEFAULT 0,
    refunded_amount INTEGER NOT NULL DEFAULT 0,
    discount_id INTEGER NULL,
    discount_code TEXT NULL,
    status TEXT NOT NULL,
    payment_status TEXT NOT NULL,
    fulfillment_status TEXT NOT NULL,
    shipping_address TEXT NULL,
    billing_address TEXT NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    CHECK (refunded_amount >= 0 AND refunded_amount <= total_amount)
);

CREATE TABLE order_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id INTEGER NOT NULL,
    product_id INTEGER NOT NULL,
    variant_id INTEGER NOT NULL,
    location_id INTEGER NOT NULL,
    product_name TEXT NOT NULL,
    variant_title TEXT NOT NULL DEFAULT '',
    sku TEXT NOT NULL DEFAULT '',
    quantity INTEGER NOT NULL,
    unit_price INTEGER NOT NULL,
    total_price INTEGER NOT NULL,
    restocked_quantity INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    CHECK (restocked_quantity >= 0 AND restocked_quantity <= quantity)
);

CREATE TABLE order_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id INTEGER NOT NULL,
    field TEXT NOT NULL,
    from_status TEXT NOT NULL,
    to_status TEXT NOT NULL,
    note TEXT NOT NULL,
    is_internal BOOLEAN NOT NULL DEFAULT 0,
    actor_id INTEGER NULL,
    created_at DATETIME NOT NULL
);

CREATE TABLE payments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id INTEGER NOT NULL,
    parent_payment_id INTEGER NULL,
    amount INTEGER NOT NULL,
    currency TEXT NOT NULL,
    status TEXT NOT NULL,
    gateway TEXT NOT NULL,
    gateway_transaction_id TEXT NULL,
    payment_method TEXT NOT NULL DEFAULT '',
    failure_message TEXT NULL,
    refund_reason TEXT NULL,
    refunded_at DATETIME NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE discounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL,
    value INTEGER NOT NULL,
    scope TEXT NOT NULL DEFAULT 'all',
    minimum_amount INTEGER NULL,
    maximum_amount INTEGER NULL,
    usage_limit INTEGER NULL,
    usage_limit_per_customer INTEGER NULL,
    once_per_customer BOOLEAN NOT NULL DEFAULT 0,
    current_usage INTEGER NOT NULL DEFAULT 0,
    buy_quantity INTEGER NOT NULL DEFAULT 0,
    get_quantity INTEGER NOT NULL DEFAULT 0,
    starts_at DATETIME NOT NULL,
    ends_at DATETIME NULL,
    status TEXT NOT NULL,
    combines_with_product_discounts BOOLEAN NOT NULL DEFAULT 0,
    combines_with_order_discounts BOOLEAN NOT NULL DEFAULT 0,
    combines_with_shipping_discounts BOOLEAN NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    CHECK (usage_limit IS NULL OR current_usage <= usage_limit)
);

CREATE TABLE discount_products (
    discount_id INTEGER NOT NULL,
    product_id INTEGER NOT NULL,
    PRIMARY KEY (discount_id, product_id)
);

CREATE TABLE discount_collections (
    discount_id INTEGER NOT NULL,
    collection_id INTEGER NOT NULL,
    PRIMARY KEY (discount_id, collection_id)
);

CREATE TABLE discount_usages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    discount_id INTEGER NOT NULL,
    customer_id INTEGER NULL,
    order_id INTEGER NOT NULL,
    amount INTEGER NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE TABLE inventory_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    variant_id INTEGER NOT NULL,
    location_id INTEGER NOT NULL,
    sku TEXT NOT NULL DEFAULT '',
    quantity INTEGER NOT NULL DEFAULT 0,
    reserved_quantity INTEGER NOT NULL DEFAULT 0,
    incoming_quantity INTEGER NOT NULL DEFAULT 0,
    reorder_point INTEGER NOT NULL DEFAULT 0,
    reorder_quantity INTEGER NOT NULL DEFAULT 0,
    last_restocked_at DATETIME NULL,
    last_sold_at DATETIME NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    UNIQUE (variant_id, location_id),
    CHECK (quantity >= 0 AND reserved_quantity >= 0)
);

CREATE TABLE inventory_adjustments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    inventory_item_id INTEGER NOT NULL,
    kind TEXT NOT NULL,
    delta INTEGER NOT NULL,
    quantity_before INTEGER NOT NULL,
    quantity_after INTEGER NOT NULL,
    reason TEXT NOT NULL,
    note TEXT NOT NULL,
    order_id INTEGER NULL,
    actor_id INTEGER NULL,
    created_at DATETIME NOT NULL
);

CREATE TABLE audit_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    actor_id INTEGER NULL,
    action TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id INTEGER NOT NULL,
    details TEXT NOT NULL,
    created_at DATETIME NOT NULL
);
`

// NewDB 创建带完整表结构的内存数据库，测试结束时关闭
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	// 内存库每个连接都是独立的数据库
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("初始化表结构失败: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Int64 返回指针，便于构造可空字段
func Int64(v int64) *int64 {
	return &v
}

// String 返回指针
func String(v string) *string {
	return &v
}
