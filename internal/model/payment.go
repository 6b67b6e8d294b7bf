package model

import "time"

// PaymentStatus 支付记录状态
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentCancelled  PaymentStatus = "cancelled"
)

// paymentTransitions 允许的状态流转
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentAuthorized, PaymentFailed},
	PaymentAuthorized: {PaymentCaptured, PaymentCancelled},
	PaymentCaptured:   {PaymentRefunded},
}

// CanTransition 判断支付状态能否从 s 流转到 to
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Payment 支付流水。退款为单独的负金额记录，ParentPaymentID 指向原支付
type Payment struct {
	ID                   int64         `db:"id" json:"id"`
	OrderID              int64         `db:"order_id" json:"order_id"`
	ParentPaymentID      *int64        `db:"parent_payment_id" json:"parent_payment_id,omitempty"`
	Amount               int64         `db:"amount" json:"amount"`
	Currency             string        `db:"currency" json:"currency"`
	Status               PaymentStatus `db:"status" json:"status"`
	Gateway              string        `db:"gateway" json:"gateway"`
	GatewayTransactionID *string       `db:"gateway_transaction_id" json:"gateway_transaction_id,omitempty"`
	PaymentMethod        string        `db:"payment_method" json:"payment_method"`
	FailureMessage       *string       `db:"failure_message" json:"failure_message,omitempty"`
	RefundReason         *string       `db:"refund_reason" json:"refund_reason,omitempty"`
	RefundedAt           *time.Time    `db:"refunded_at" json:"refunded_at,omitempty"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updated_at"`
}

// IsRefund 是否为退款记录
func (p *Payment) IsRefund() bool {
	return p.ParentPaymentID != nil && p.Amount < 0
}
