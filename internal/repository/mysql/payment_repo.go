package mysql

import (
	"commerce-backend/internal/model"
	"commerce-backend/internal/repository/interfaces"
	"commerce-backend/internal/util"
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const paymentColumns = `id, order_id, parent_payment_id, amount, currency, status, gateway,
	gateway_transaction_id, payment_method, failure_message, refund_reason, refunded_at,
	created_at, updated_at`

type PaymentRepository struct {
	db *sqlx.DB
}

var _ interfaces.PaymentRepository = (*PaymentRepository)(nil)

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db}
}

func (r *PaymentRepository) CreatePayment(ctx context.Context, payment *model.Payment) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO payments (order_id, parent_payment_id, amount, currency, status, gateway,
			gateway_transaction_id, payment_method, failure_message, refund_reason, refunded_at,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.OrderID, payment.ParentPaymentID, payment.Amount, payment.Currency, payment.Status,
		payment.Gateway, payment.GatewayTransactionID, payment.PaymentMethod, payment.FailureMessage,
		payment.RefundReason, payment.RefundedAt, payment.CreatedAt, payment.UpdatedAt)
	if err != nil {
		util.Logger.Error("创建支付记录失败",
			zap.Error(err),
			zap.Int64("order_id", payment.OrderID),
			zap.Int64("amount", payment.Amount))
		return fmt.Errorf("failed to create payment: %w", err)
	}
	payment.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get payment ID: %w", err)
	}
	util.Logger.Info("支付记录创建成功",
		zap.Int64("payment_id", payment.ID),
		zap.String("status", string(payment.Status)))
	return nil
}

func (r *PaymentRepository) GetPaymentByID(ctx context.Context, id int64) (*model.Payment, error) {
	var p model.Payment
	found, err := getOne(ctx, conn(ctx, r.db), &p, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

func (r *PaymentRepository) LockPayment(ctx context.Context, id int64) (*model.Payment, error) {
	var p model.Payment
	found, err := getOne(ctx, conn(ctx, r.db), &p,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`+forUpdate(r.db), id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

func (r *PaymentRepository) GetPaymentsByOrder(ctx context.Context, orderID int64) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &payments,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	return payments, nil
}

func (r *PaymentRepository) UpdatePaymentStatus(ctx context.Context, payment *model.Payment, from model.PaymentStatus) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE payments SET status = ?, gateway_transaction_id = ?, failure_message = ?,
			refund_reason = ?, refunded_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		payment.Status, payment.GatewayTransactionID, payment.FailureMessage,
		payment.RefundReason, payment.RefundedAt, payment.UpdatedAt,
		payment.ID, from)
	if err != nil {
		util.Logger.Error("更新支付状态失败", zap.Error(err), zap.Int64("payment_id", payment.ID))
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return mustAffect(res)
}

// SumRefunded 原支付已退款的总额（正数）
func (r *PaymentRepository) SumRefunded(ctx context.Context, parentPaymentID int64) (int64, error) {
	var sum int64
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &sum, `
		SELECT COALESCE(SUM(-amount), 0) FROM payments
		WHERE parent_payment_id = ? AND status = ?`,
		parentPaymentID, model.PaymentRefunded)
	if err != nil {
		return 0, fmt.Errorf("failed to sum refunds: %w", err)
	}
	return sum, nil
}

// SumCaptured 订单已收款的原支付总额（不扣除退款）
func (r *PaymentRepository) SumCaptured(ctx context.Context, orderID int64) (int64, error) {
	var sum int64
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &sum, `
		SELECT COALESCE(SUM(amount), 0) FROM payments
		WHERE order_id = ? AND parent_payment_id IS NULL AND status IN (?, ?)`,
		orderID, model.PaymentCaptured, model.PaymentRefunded)
	if err != nil {
		return 0, fmt.Errorf("failed to sum captured payments: %w", err)
	}
	return sum, nil
}
