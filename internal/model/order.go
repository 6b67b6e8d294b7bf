package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusFailed     OrderStatus = "failed"
)

// Valid 判断订单状态是否合法
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// Terminal 已取消或失败的订单不允许再变更状态
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusFailed
}

// OrderPaymentStatus 订单支付状态
type OrderPaymentStatus string

const (
	OrderPaymentPending           OrderPaymentStatus = "pending"
	OrderPaymentAuthorized        OrderPaymentStatus = "authorized"
	OrderPaymentPaid              OrderPaymentStatus = "paid"
	OrderPaymentPartiallyPaid     OrderPaymentStatus = "partially_paid"
	OrderPaymentRefunded          OrderPaymentStatus = "refunded"
	OrderPaymentPartiallyRefunded OrderPaymentStatus = "partially_refunded"
	OrderPaymentFailed            OrderPaymentStatus = "failed"
	OrderPaymentCancelled         OrderPaymentStatus = "cancelled"
)

// FulfillmentStatus 订单履约状态
type FulfillmentStatus string

const (
	FulfillmentUnfulfilled        FulfillmentStatus = "unfulfilled"
	FulfillmentPartiallyFulfilled FulfillmentStatus = "partially_fulfilled"
	FulfillmentFulfilled          FulfillmentStatus = "fulfilled"
	FulfillmentReturned           FulfillmentStatus = "returned"
	FulfillmentCancelled          FulfillmentStatus = "cancelled"
)

// Order 订单聚合
type Order struct {
	ID                int64              `db:"id" json:"id"`
	OrderNumber       string             `db:"order_number" json:"order_number"`
	CustomerID        *int64             `db:"customer_id" json:"customer_id,omitempty"`
	Email             string             `db:"email" json:"email"`
	Currency          string             `db:"currency" json:"currency"`
	SubtotalAmount    int64              `db:"subtotal_amount" json:"subtotal_amount"`
	DiscountAmount    int64              `db:"discount_amount" json:"discount_amount"`
	ShippingAmount    int64              `db:"shipping_amount" json:"shipping_amount"`
	TaxAmount         int64              `db:"tax_amount" json:"tax_amount"`
	TotalAmount       int64              `db:"total_amount" json:"total_amount"`
	RefundedAmount    int64              `db:"refunded_amount" json:"refunded_amount"`
	DiscountID        *int64             `db:"discount_id" json:"discount_id,omitempty"`
	DiscountCode      *string            `db:"discount_code" json:"discount_code,omitempty"`
	Status            OrderStatus        `db:"status" json:"status"`
	PaymentStatus     OrderPaymentStatus `db:"payment_status" json:"payment_status"`
	FulfillmentStatus FulfillmentStatus  `db:"fulfillment_status" json:"fulfillment_status"`
	ShippingAddress   *Address           `db:"shipping_address" json:"shipping_address,omitempty"`
	BillingAddress    *Address           `db:"billing_address" json:"billing_address,omitempty"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updated_at"`

	Items    []*OrderItem    `db:"-" json:"items,omitempty"`
	Payments []*Payment      `db:"-" json:"payments,omitempty"`
	History  []*OrderHistory `db:"-" json:"history,omitempty"`
}

// RefundStatusFor 根据累计退款金额推导订单支付状态
func RefundStatusFor(refundedAmount, totalAmount int64) OrderPaymentStatus {
	if refundedAmount >= totalAmount {
		return OrderPaymentRefunded
	}
	return OrderPaymentPartiallyRefunded
}

// OrderItem 订单商品快照
type OrderItem struct {
	ID                int64     `db:"id" json:"id"`
	OrderID           int64     `db:"order_id" json:"order_id"`
	ProductID         int64     `db:"product_id" json:"product_id"`
	VariantID         int64     `db:"variant_id" json:"variant_id"`
	LocationID        int64     `db:"location_id" json:"location_id"`
	ProductName       string    `db:"product_name" json:"product_name"`
	VariantTitle      string    `db:"variant_title" json:"variant_title"`
	SKU               string    `db:"sku" json:"sku"`
	Quantity          int64     `db:"quantity" json:"quantity"`
	UnitPrice         int64     `db:"unit_price" json:"unit_price"`
	TotalPrice        int64     `db:"total_price" json:"total_price"`
	RestockedQuantity int64     `db:"restocked_quantity" json:"restocked_quantity"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// Address 收货/账单地址快照，以 JSON 存储在订单行上
type Address struct {
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Value 实现 driver.Valuer
func (a *Address) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (a *Address) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported address type %T", src)
	}
}

// HistoryField 时间线记录的字段
type HistoryField string

const (
	HistoryFieldStatus            HistoryField = "status"
	HistoryFieldPaymentStatus     HistoryField = "payment_status"
	HistoryFieldFulfillmentStatus HistoryField = "fulfillment_status"
	HistoryFieldNote              HistoryField = "note"
)

const (
	// HistoryNone 订单创建记录的起始状态
	HistoryNone = "none"
	// HistoryNote 备注记录的起止状态
	HistoryNote = "note"
)

// OrderHistory 订单时间线（只追加）
type OrderHistory struct {
	ID         int64        `db:"id" json:"id"`
	OrderID    int64        `db:"order_id" json:"order_id"`
	Field      HistoryField `db:"field" json:"field"`
	FromStatus string       `db:"from_status" json:"from_status"`
	ToStatus   string       `db:"to_status" json:"to_status"`
	Note       string       `db:"note" json:"note"`
	IsInternal bool         `db:"is_internal" json:"is_internal"`
	ActorID    *int64       `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// OrderFilter 订单列表查询条件
type OrderFilter struct {
	Status        OrderStatus
	PaymentStatus OrderPaymentStatus
	CustomerID    *int64
	Search        string
	Page          int
	PageSize      int
}
