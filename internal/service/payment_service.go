package service

import (
	"commerce-backend/internal/gateway"
	"commerce-backend/internal/model"
	"commerce-backend/internal/repository/interfaces"
	serviceErrors "commerce-backend/internal/service/errors"
	"commerce-backend/internal/util"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Notifier 通知顾客，提交事务后调用，失败不影响结果
type Notifier interface {
	RefundIssued(order *model.Order, refund *model.Payment)
}

type PaymentServiceInterface interface {
	Authorize(ctx context.Context, cmd PaymentActionCommand) (*model.Payment, error)
	Fail(ctx context.Context, cmd FailPaymentCommand) (*model.Payment, error)
	Capture(ctx context.Context, cmd PaymentActionCommand) (*model.Payment, error)
	Void(ctx context.Context, cmd VoidPaymentCommand) (*model.Payment, error)
	Refund(ctx context.Context, cmd RefundPaymentCommand) (*RefundResult, error)
}

type PaymentService struct {
	tx          interfaces.Transactor
	paymentRepo interfaces.PaymentRepository
	orderRepo   interfaces.OrderRepository
	inventory   *InventoryService
	audit       *AuditService
	gateway     gateway.Gateway
	notifier    Notifier
	timeline    timeline
	now         func() time.Time
}

var _ PaymentServiceInterface = (*PaymentService)(nil)

func NewPaymentService(tx interfaces.Transactor, paymentRepo interfaces.PaymentRepository, orderRepo interfaces.OrderRepository,
	inventory *InventoryService, audit *AuditService, gw gateway.Gateway, notifier Notifier) *PaymentService {
	return &PaymentService{
		tx:          tx,
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		inventory:   inventory,
		audit:       audit,
		gateway:     gw,
		notifier:    notifier,
		timeline:    timeline{orderRepo: orderRepo},
		now:         defaultNow,
	}
}

type PaymentActionCommand struct {
	PaymentID int64  `json:"-"`
	ActorID   *int64 `json:"-"`
}

type FailPaymentCommand struct {
	PaymentID int64  `json:"-"`
	Message   string `json:"message" binding:"required,max=500"`
	ActorID   *int64 `json:"-"`
}

type VoidPaymentCommand struct {
	PaymentID int64  `json:"-"`
	Reason    string `json:"reason" binding:"required,max=500"`
	ActorID   *int64 `json:"-"`
}

// RestockItem 随退款回库的订单商品
type RestockItem struct {
	OrderItemID int64 `json:"order_item_id" binding:"required,gt=0"`
	Quantity    int64 `json:"quantity" binding:"required,gt=0"`
}

// RefundPaymentCommand Amount 为空时退还剩余全部金额
type RefundPaymentCommand struct {
	PaymentID      int64         `json:"-"`
	Amount         *int64        `json:"amount" binding:"omitempty,gt=0"`
	Reason         string        `json:"reason" binding:"required,max=500"`
	NotifyCustomer bool          `json:"notify_customer"`
	RestockItems   []RestockItem `json:"restock_items" binding:"omitempty,dive"`
	ActorID        *int64        `json:"-"`
}

type RefundResult struct {
	Refund *model.Payment `json:"refund"`
	Order  *model.Order   `json:"order"`
}

// Authorize 待支付 → 已授权
func (s *PaymentService) Authorize(ctx context.Context, cmd PaymentActionCommand) (*model.Payment, error) {
	var payment *model.Payment
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.lockOriginal(ctx, cmd.PaymentID)
		if err != nil {
			return err
		}
		if !payment.Status.CanTransition(model.PaymentAuthorized) {
			return conflict("仅待支付的记录可以授权，当前状态: %s", payment.Status)
		}
		res, err := s.gateway.Authorize(ctx, s.charge(payment))
		if err != nil {
			return serviceErrors.Wrap(serviceErrors.ErrThirdParty, "支付网关授权失败", err)
		}
		now := s.now()
		if err := s.transition(ctx, payment, model.PaymentAuthorized, &res.TransactionID, now); err != nil {
			return err
		}
		order, err := s.lockOrder(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		return s.timeline.paymentStatus(ctx, order, model.OrderPaymentAuthorized, "", cmd.ActorID, now)
	})
	if err != nil {
		return nil, asServiceError(err, "支付授权失败")
	}
	return payment, nil
}

// Fail 待支付 → 失败
func (s *PaymentService) Fail(ctx context.Context, cmd FailPaymentCommand) (*model.Payment, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	var payment *model.Payment
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.lockOriginal(ctx, cmd.PaymentID)
		if err != nil {
			return err
		}
		if !payment.Status.CanTransition(model.PaymentFailed) {
			return conflict("仅待支付的记录可以标记为失败，当前状态: %s", payment.Status)
		}
		now := s.now()
		payment.FailureMessage = &cmd.Message
		if err := s.transition(ctx, payment, model.PaymentFailed, payment.GatewayTransactionID, now); err != nil {
			return err
		}
		order, err := s.lockOrder(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		return s.timeline.paymentStatus(ctx, order, model.OrderPaymentFailed, cmd.Message, cmd.ActorID, now)
	})
	if err != nil {
		return nil, asServiceError(err, "更新支付状态失败")
	}
	return payment, nil
}

// Capture 已授权 → 已收款，其他状态拒绝且不修改
func (s *PaymentService) Capture(ctx context.Context, cmd PaymentActionCommand) (*model.Payment, error) {
	var payment *model.Payment
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.lockOriginal(ctx, cmd.PaymentID)
		if err != nil {
			return err
		}
		if payment.Status != model.PaymentAuthorized {
			return conflict("仅已授权的支付可以收款，当前状态: %s", payment.Status)
		}
		order, err := s.lockOrder(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		res, err := s.gateway.Capture(ctx, s.charge(payment))
		if err != nil {
			return serviceErrors.Wrap(serviceErrors.ErrThirdParty, "支付网关收款失败", err)
		}
		now := s.now()
		if err := s.transition(ctx, payment, model.PaymentCaptured, &res.TransactionID, now); err != nil {
			return err
		}
		captured, err := s.paymentRepo.SumCaptured(ctx, order.ID)
		if err != nil {
			return err
		}
		status := model.OrderPaymentPaid
		if captured < order.TotalAmount {
			status = model.OrderPaymentPartiallyPaid
		}
		if err := s.timeline.paymentStatus(ctx, order, status, "", cmd.ActorID, now); err != nil {
			return err
		}
		return s.audit.Record(ctx, cmd.ActorID, model.AuditActionCapture, model.EntityPayment, payment.ID,
			model.AuditDetails{"order_id": order.ID, "amount": payment.Amount})
	})
	if err != nil {
		util.Logger.Warn("收款失败", zap.Int64("payment_id", cmd.PaymentID), zap.Error(err))
		return nil, asServiceError(err, "收款失败")
	}
	util.Logger.Info("收款成功", zap.Int64("payment_id", payment.ID), util.Actor(cmd.ActorID))
	return payment, nil
}

// Void 已授权 → 已取消
func (s *PaymentService) Void(ctx context.Context, cmd VoidPaymentCommand) (*model.Payment, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	var payment *model.Payment
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.lockOriginal(ctx, cmd.PaymentID)
		if err != nil {
			return err
		}
		order, err := s.lockOrder(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		if err := s.voidLocked(ctx, order, payment, cmd.Reason, cmd.ActorID); err != nil {
			return err
		}
		if err := s.timeline.paymentStatus(ctx, order, model.OrderPaymentCancelled, cmd.Reason, cmd.ActorID, s.now()); err != nil {
			return err
		}
		return s.voidAtGateway(ctx, payment)
	})
	if err != nil {
		return nil, asServiceError(err, "撤销支付失败")
	}
	return payment, nil
}

// voidLocked 在本地撤销一笔已锁定的授权，调用方负责更新订单支付状态，
// 并在所有本地写入完成后调用 voidAtGateway
func (s *PaymentService) voidLocked(ctx context.Context, order *model.Order, payment *model.Payment, reason string, actorID *int64) error {
	if payment.Status != model.PaymentAuthorized {
		return conflict("仅已授权的支付可以撤销，当前状态: %s", payment.Status)
	}
	if err := s.transition(ctx, payment, model.PaymentCancelled, payment.GatewayTransactionID, s.now()); err != nil {
		return err
	}
	return s.audit.Record(ctx, actorID, model.AuditActionVoid, model.EntityPayment, payment.ID,
		model.AuditDetails{"order_id": order.ID, "amount": payment.Amount, "reason": reason})
}

// voidAtGateway 通知网关撤销授权，失败时整个事务回滚
func (s *PaymentService) voidAtGateway(ctx context.Context, payment *model.Payment) error {
	if _, err := s.gateway.Void(ctx, s.charge(payment)); err != nil {
		return serviceErrors.Wrap(serviceErrors.ErrThirdParty, "支付网关撤销失败", err)
	}
	return nil
}

// Refund 对已收款的支付退款。退款记录为负金额，订单累计退款不超过订单总额
func (s *PaymentService) Refund(ctx context.Context, cmd RefundPaymentCommand) (*RefundResult, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	var result *RefundResult
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		original, err := s.paymentRepo.LockPayment(ctx, cmd.PaymentID)
		if err != nil {
			return err
		}
		if original == nil {
			return notFound("支付记录不存在")
		}
		if original.IsRefund() {
			return conflict("不能对退款记录再次退款")
		}
		if original.Status != model.PaymentCaptured {
			return conflict("仅已收款的支付可以退款，当前状态: %s", original.Status)
		}
		order, err := s.lockOrder(ctx, original.OrderID)
		if err != nil {
			return err
		}

		refunded, err := s.paymentRepo.SumRefunded(ctx, original.ID)
		if err != nil {
			return err
		}
		remaining := original.Amount - refunded
		amount := remaining
		if cmd.Amount != nil {
			amount = *cmd.Amount
		}
		if amount <= 0 {
			return conflict("该支付没有可退款的金额")
		}
		if amount > remaining {
			return conflict("退款金额 %d 超过可退金额 %d", amount, remaining)
		}

		restocks, err := s.planRestock(ctx, order, cmd.RestockItems)
		if err != nil {
			return err
		}

		now := s.now()
		reason := cmd.Reason
		refund := &model.Payment{
			OrderID:         order.ID,
			ParentPaymentID: &original.ID,
			Amount:          -amount,
			Currency:        original.Currency,
			Status:          model.PaymentRefunded,
			Gateway:         original.Gateway,
			PaymentMethod:   original.PaymentMethod,
			RefundReason:    &reason,
			RefundedAt:      &now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.paymentRepo.CreatePayment(ctx, refund); err != nil {
			return err
		}

		if err := s.orderRepo.AddRefundedAmount(ctx, order.ID, amount, now); err != nil {
			if errors.Is(err, interfaces.ErrConditionFailed) {
				return conflict("累计退款金额不能超过订单总额 %d", order.TotalAmount)
			}
			return err
		}
		order.RefundedAmount += amount
		status := model.RefundStatusFor(order.RefundedAmount, order.TotalAmount)
		if err := s.timeline.paymentStatus(ctx, order, status, reason, cmd.ActorID, now); err != nil {
			return err
		}

		if amount == remaining {
			original.RefundedAt = &now
			if err := s.transition(ctx, original, model.PaymentRefunded, original.GatewayTransactionID, now); err != nil {
				return err
			}
		}

		if err := s.restock(ctx, order, restocks, cmd.ActorID); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, cmd.ActorID, model.AuditActionRefund, model.EntityPayment, refund.ID,
			model.AuditDetails{
				"order_id":            order.ID,
				"original_payment_id": original.ID,
				"amount":              amount,
				"reason":              reason,
				"restocked_items":     len(restocks),
			}); err != nil {
			return err
		}

		// 网关退款是提交前的最后一步
		res, err := s.gateway.Refund(ctx, gateway.Charge{
			OrderID:       order.ID,
			PaymentID:     original.ID,
			Amount:        amount,
			Currency:      original.Currency,
			PaymentMethod: original.PaymentMethod,
			TransactionID: stringValue(original.GatewayTransactionID),
		})
		if err != nil {
			return serviceErrors.Wrap(serviceErrors.ErrThirdParty, "支付网关退款失败", err)
		}
		if err := s.transition(ctx, refund, model.PaymentRefunded, &res.TransactionID, now); err != nil {
			return err
		}

		result = &RefundResult{Refund: refund, Order: order}
		return nil
	})
	if err != nil {
		util.Logger.Warn("退款失败", zap.Int64("payment_id", cmd.PaymentID), zap.Error(err))
		return nil, asServiceError(err, "退款失败")
	}

	util.Logger.Info("退款成功",
		zap.Int64("order_id", result.Order.ID),
		zap.Int64("refund_id", result.Refund.ID),
		zap.Int64("amount", -result.Refund.Amount),
		util.Actor(cmd.ActorID))

	if cmd.NotifyCustomer && s.notifier != nil {
		s.notifier.RefundIssued(result.Order, result.Refund)
	}
	return result, nil
}

// restockLine 已核对过的回库明细
type restockLine struct {
	item     *model.OrderItem
	quantity int64
}

// planRestock 在任何写入之前核对回库明细：订单必须已发货，商品属于该订单，
// 累计回库数量不超过购买数量
func (s *PaymentService) planRestock(ctx context.Context, order *model.Order, items []RestockItem) ([]restockLine, error) {
	if len(items) == 0 {
		return nil, nil
	}
	switch order.FulfillmentStatus {
	case model.FulfillmentFulfilled, model.FulfillmentPartiallyFulfilled:
	default:
		return nil, serviceErrors.New(serviceErrors.ErrInvalidInput, "订单尚未发货，商品仍在库中，不能回库")
	}
	orderItems, err := s.orderRepo.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.OrderItem, len(orderItems))
	for _, it := range orderItems {
		byID[it.ID] = it
	}

	requested := make(map[int64]int64, len(items))
	var lines []restockLine
	for _, r := range items {
		it, ok := byID[r.OrderItemID]
		if !ok {
			return nil, serviceErrors.New(serviceErrors.ErrInvalidInput, fmt.Sprintf("订单商品 %d 不属于该订单", r.OrderItemID))
		}
		requested[it.ID] += r.Quantity
		if it.RestockedQuantity+requested[it.ID] > it.Quantity {
			return nil, conflict("商品 %s 的回库数量超过购买数量", it.ProductName)
		}
		lines = append(lines, restockLine{item: it, quantity: r.Quantity})
	}
	return lines, nil
}

// restock 按核对后的明细回库
func (s *PaymentService) restock(ctx context.Context, order *model.Order, lines []restockLine, actorID *int64) error {
	for _, l := range lines {
		if err := s.orderRepo.AddItemRestocked(ctx, l.item.ID, l.quantity); err != nil {
			if errors.Is(err, interfaces.ErrConditionFailed) {
				return conflict("商品 %s 的回库数量超过购买数量", l.item.ProductName)
			}
			return err
		}
		if err := s.inventory.Restock(ctx, StockMovement{
			VariantID:  l.item.VariantID,
			LocationID: l.item.LocationID,
			Quantity:   l.quantity,
			OrderID:    order.ID,
			ActorID:    actorID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *PaymentService) lockOriginal(ctx context.Context, id int64) (*model.Payment, error) {
	payment, err := s.paymentRepo.LockPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, notFound("支付记录不存在")
	}
	if payment.IsRefund() {
		return nil, conflict("退款记录不能执行该操作")
	}
	return payment, nil
}

func (s *PaymentService) lockOrder(ctx context.Context, id int64) (*model.Order, error) {
	order, err := s.orderRepo.LockOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, notFound("订单不存在")
	}
	return order, nil
}

// transition 带条件地写入新状态，并发修改时返回冲突
func (s *PaymentService) transition(ctx context.Context, payment *model.Payment, to model.PaymentStatus, txID *string, now time.Time) error {
	from := payment.Status
	payment.Status = to
	payment.GatewayTransactionID = txID
	payment.UpdatedAt = now
	if err := s.paymentRepo.UpdatePaymentStatus(ctx, payment, from); err != nil {
		payment.Status = from
		if errors.Is(err, interfaces.ErrConditionFailed) {
			return conflict("支付状态已被修改，请刷新后重试")
		}
		return err
	}
	return nil
}

func (s *PaymentService) charge(p *model.Payment) gateway.Charge {
	return gateway.Charge{
		OrderID:       p.OrderID,
		PaymentID:     p.ID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		PaymentMethod: p.PaymentMethod,
		TransactionID: stringValue(p.GatewayTransactionID),
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
