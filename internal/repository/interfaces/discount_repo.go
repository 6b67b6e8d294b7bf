package interfaces

import (
	"commerce-backend/internal/model"
	"context"
)

type DiscountRepository interface {
	CreateDiscount(ctx context.Context, discount *model.Discount) error
	UpdateDiscount(ctx context.Context, discount *model.Discount) error
	GetDiscountByID(ctx context.Context, id int64) (*model.Discount, error)
	GetDiscountByCode(ctx context.Context, code string) (*model.Discount, error)
	LockDiscount(ctx context.Context, id int64) (*model.Discount, error)
	ListDiscounts(ctx context.Context, filter model.DiscountFilter) ([]*model.Discount, int, error)
	SetDiscountStatus(ctx context.Context, id int64, status model.DiscountStatus) error
	ReplaceTargets(ctx context.Context, discountID int64, productIDs, collectionIDs []int64) error
	LoadTargets(ctx context.Context, discount *model.Discount) error
	// IncrementUsage 在未达到总使用上限时计数加一，否则返回 ErrConditionFailed
	IncrementUsage(ctx context.Context, id int64) error
	CreateUsage(ctx context.Context, usage *model.DiscountUsage) error
	CountUsages(ctx context.Context, discountID int64) (int64, error)
	CountCustomerUsages(ctx context.Context, discountID, customerID int64) (int64, error)
	ListUsages(ctx context.Context, discountID int64) ([]*model.DiscountUsage, error)
}
