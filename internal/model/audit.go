package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditDetails 审计日志附加信息
type AuditDetails map[string]interface{}

// Value 实现 driver.Valuer
func (d AuditDetails) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (d *AuditDetails) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = AuditDetails{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported audit details type %T", src)
	}
}

// 审计动作
const (
	AuditActionRefund         = "payment.refund"
	AuditActionCapture        = "payment.capture"
	AuditActionVoid           = "payment.void"
	AuditActionOrderCancel    = "order.cancel"
	AuditActionInventoryAdj   = "inventory.adjust"
	AuditActionInventorySet   = "inventory.set_quantity"
	AuditActionDiscountToggle = "discount.toggle"
)

// 审计对象类型
const (
	EntityOrder         = "order"
	EntityPayment       = "payment"
	EntityDiscount      = "discount"
	EntityInventoryItem = "inventory_item"
)

// AuditLog 审计日志
type AuditLog struct {
	ID         int64        `db:"id" json:"id"`
	ActorID    *int64       `db:"actor_id" json:"actor_id,omitempty"`
	Action     string       `db:"action" json:"action"`
	EntityType string       `db:"entity_type" json:"entity_type"`
	EntityID   int64        `db:"entity_id" json:"entity_id"`
	Details    AuditDetails `db:"details" json:"details"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// AuditFilter 审计日志查询条件
type AuditFilter struct {
	Action     string
	EntityType string
	EntityID   *int64
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}
