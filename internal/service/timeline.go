package service

import (
	"commerce-backend/internal/model"
	"commerce-backend/internal/repository/interfaces"
	"context"
	"errors"
	"time"
)

// timeline 更新订单的状态字段并追加对应的时间线记录
type timeline struct {
	orderRepo interfaces.OrderRepository
}

func (t timeline) append(ctx context.Context, orderID int64, field model.HistoryField, from, to, note string,
	internal bool, actorID *int64, now time.Time) error {
	return t.orderRepo.AppendHistory(ctx, &model.OrderHistory{
		OrderID:    orderID,
		Field:      field,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
		IsInternal: internal,
		ActorID:    actorID,
		CreatedAt:  now,
	})
}

// status 仅当订单状态仍为 order.Status 时更新
func (t timeline) status(ctx context.Context, order *model.Order, to model.OrderStatus, note string, actorID *int64, now time.Time) error {
	from := order.Status
	if err := t.orderRepo.UpdateOrderStatus(ctx, order.ID, from, to, now); err != nil {
		if errors.Is(err, interfaces.ErrConditionFailed) {
			return conflict("订单状态已被修改，请刷新后重试")
		}
		return err
	}
	order.Status = to
	order.UpdatedAt = now
	return t.append(ctx, order.ID, model.HistoryFieldStatus, string(from), string(to), note, false, actorID, now)
}

func (t timeline) paymentStatus(ctx context.Context, order *model.Order, to model.OrderPaymentStatus, note string, actorID *int64, now time.Time) error {
	from := order.PaymentStatus
	if from == to {
		return nil
	}
	if err := t.orderRepo.UpdatePaymentStatus(ctx, order.ID, to, now); err != nil {
		return err
	}
	order.PaymentStatus = to
	order.UpdatedAt = now
	return t.append(ctx, order.ID, model.HistoryFieldPaymentStatus, string(from), string(to), note, false, actorID, now)
}

func (t timeline) fulfillmentStatus(ctx context.Context, order *model.Order, to model.FulfillmentStatus, note string, actorID *int64, now time.Time) error {
	from := order.FulfillmentStatus
	if from == to {
		return nil
	}
	if err := t.orderRepo.UpdateFulfillmentStatus(ctx, order.ID, to, now); err != nil {
		return err
	}
	order.FulfillmentStatus = to
	order.UpdatedAt = now
	return t.append(ctx, order.ID, model.HistoryFieldFulfillmentStatus, string(from), string(to), note, false, actorID, now)
}
