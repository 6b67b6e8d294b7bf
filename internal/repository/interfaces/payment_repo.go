package interfaces

import (
	"commerce-backend/internal/model"
	"context"
)

type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *model.Payment) error
	GetPaymentByID(ctx context.Context, id int64) (*model.Payment, error)
	LockPayment(ctx context.Context, id int64) (*model.Payment, error)
	GetPaymentsByOrder(ctx context.Context, orderID int64) ([]*model.Payment, error)
	// UpdatePaymentStatus 仅当当前状态为 from 时更新，否则返回 ErrConditionFailed
	UpdatePaymentStatus(ctx context.Context, payment *model.Payment, from model.PaymentStatus) error
	SumRefunded(ctx context.Context, parentPaymentID int64) (int64, error)
	SumCaptured(ctx context.Context, orderID int64) (int64, error)
}
