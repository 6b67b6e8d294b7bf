package interfaces

import (
	"commerce-backend/internal/model"
	"context"
	"time"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrderByID(ctx context.Context, id int64) (*model.Order, error)
	LockOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]*model.Order, int, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]*model.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus, now time.Time) error
	UpdatePaymentStatus(ctx context.Context, id int64, status model.OrderPaymentStatus, now time.Time) error
	UpdateFulfillmentStatus(ctx context.Context, id int64, status model.FulfillmentStatus, now time.Time) error
	AddRefundedAmount(ctx context.Context, id int64, amount int64, now time.Time) error
	AddItemRestocked(ctx context.Context, itemID int64, quantity int64) error
	AppendHistory(ctx context.Context, entry *model.OrderHistory) error
	GetHistory(ctx context.Context, orderID int64) ([]*model.OrderHistory, error)
}
