package service

import (
	"commerce-backend/internal/model"
	"commerce-backend/internal/repository/interfaces"
	serviceErrors "commerce-backend/internal/service/errors"
	"commerce-backend/internal/util"
	"context"
	"time"

	"go.uber.org/zap"
)

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*model.Order, error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (*model.Order, error)
	AddNote(ctx context.Context, cmd AddOrderNoteCommand) (*model.OrderHistory, error)
	Fulfill(ctx context.Context, cmd FulfillOrderCommand) (*model.Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	GetOrderForCustomer(ctx context.Context, id, customerID int64) (*model.Order, error)
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]*model.Order, int, error)
	GetTimeline(ctx context.Context, id int64) ([]*model.OrderHistory, error)
}

type OrderService struct {
	tx          interfaces.Transactor
	orderRepo   interfaces.OrderRepository
	paymentRepo interfaces.PaymentRepository
	discounts   *DiscountService
	inventory   *InventoryService
	payments    *PaymentService
	audit       *AuditService
	timeline    timeline
	now         func() time.Time
}

var _ OrderServiceInterface = (*OrderService)(nil)

func NewOrderService(tx interfaces.Transactor, orderRepo interfaces.OrderRepository, paymentRepo interfaces.PaymentRepository,
	discounts *DiscountService, inventory *InventoryService, payments *PaymentService, audit *AuditService) *OrderService {
	return &OrderService{
		tx:          tx,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		discounts:   discounts,
		inventory:   inventory,
		payments:    payments,
		audit:       audit,
		timeline:    timeline{orderRepo: orderRepo},
		now:         defaultNow,
	}
}

// CheckoutItem 购物车商品快照，价格以结算时为准
type CheckoutItem struct {
	ProductID     int64   `json:"product_id" binding:"required,gt=0"`
	VariantID     int64   `json:"variant_id" binding:"required,gt=0"`
	LocationID    int64   `json:"location_id" binding:"required,gt=0"`
	CollectionIDs []int64 `json:"collection_ids" binding:"omitempty,dive,gt=0"`
	ProductName   string  `json:"product_name" binding:"required,max=255"`
	VariantTitle  string  `json:"variant_title" binding:"max=255"`
	SKU           string  `json:"sku" binding:"max=128"`
	Quantity      int64   `json:"quantity" binding:"required,gt=0"`
	UnitPrice     int64   `json:"unit_price" binding:"gte=0"`
}

// CreateOrderCommand 完成结算
type CreateOrderCommand struct {
	CustomerID      *int64         `json:"-"`
	Email           string         `json:"email" binding:"required,email"`
	Currency        string         `json:"currency" binding:"required,currency"`
	Items           []CheckoutItem `json:"items" binding:"required,min=1,dive"`
	ShippingAmount  int64          `json:"shipping_amount" binding:"gte=0"`
	TaxAmount       int64          `json:"tax_amount" binding:"gte=0"`
	DiscountCode    string         `json:"discount_code" binding:"max=64"`
	PaymentMethod   string         `json:"payment_method" binding:"required,max=64"`
	ShippingAddress *model.Address `json:"shipping_address"`
	BillingAddress  *model.Address `json:"billing_address"`
}

type UpdateOrderStatusCommand struct {
	OrderID int64             `json:"-"`
	Status  model.OrderStatus `json:"status" binding:"required,oneof=pending confirmed processing shipped delivered cancelled failed"`
	Note    string            `json:"note" binding:"max=1000"`
	ActorID *int64            `json:"-"`
}

type AddOrderNoteCommand struct {
	OrderID    int64  `json:"-"`
	Note       string `json:"note" binding:"required,max=1000"`
	IsInternal bool   `json:"is_internal"`
	ActorID    *int64 `json:"-"`
}

type FulfillOrderCommand struct {
	OrderID int64  `json:"-"`
	Note    string `json:"note" binding:"max=1000"`
	ActorID *int64 `json:"-"`
}

type CancelOrderCommand struct {
	OrderID int64  `json:"-"`
	Reason  string `json:"reason" binding:"required,max=1000"`
	ActorID *int64 `json:"-"`
}

// CreateOrder 计算金额、应用折扣、预留库存并创建待支付记录，全部在一个事务内完成
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*model.Order, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	now := s.now()
	order := &model.Order{
		CustomerID:        cmd.CustomerID,
		Email:             cmd.Email,
		Currency:          cmd.Currency,
		ShippingAmount:    cmd.ShippingAmount,
		TaxAmount:         cmd.TaxAmount,
		Status:            model.OrderStatusPending,
		PaymentStatus:     model.OrderPaymentPending,
		FulfillmentStatus: model.FulfillmentUnfulfilled,
		ShippingAddress:   cmd.ShippingAddress,
		BillingAddress:    cmd.BillingAddress,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	cart := model.DiscountCart{ShippingAmount: cmd.ShippingAmount}
	for _, it := range cmd.Items {
		line := it.Quantity * it.UnitPrice
		order.SubtotalAmount += line
		order.Items = append(order.Items, &model.OrderItem{
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			LocationID:   it.LocationID,
			ProductName:  it.ProductName,
			VariantTitle: it.VariantTitle,
			SKU:          it.SKU,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			TotalPrice:   line,
		})
		cart.Lines = append(cart.Lines, model.DiscountLine{
			ProductID:     it.ProductID,
			CollectionIDs: it.CollectionIDs,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
		})
	}
	cart.Subtotal = order.SubtotalAmount

	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var discount *model.Discount
		if cmd.DiscountCode != "" {
			d, amount, err := s.discounts.Evaluate(ctx, cmd.DiscountCode, cmd.CustomerID, cart)
			if err != nil {
				return err
			}
			discount = d
			order.DiscountID = &d.ID
			order.DiscountCode = &d.Code
			order.DiscountAmount = amount
		}
		order.TotalAmount = order.SubtotalAmount - order.DiscountAmount + order.ShippingAmount + order.TaxAmount
		if order.TotalAmount < 0 {
			order.TotalAmount = 0
		}

		if err := s.orderRepo.CreateOrder(ctx, order); err != nil {
			return err
		}
		if discount != nil {
			if _, err := s.discounts.RecordUsage(ctx, discount, cmd.CustomerID, order.ID, order.DiscountAmount); err != nil {
				return err
			}
		}
		for _, it := range order.Items {
			if err := s.inventory.Reserve(ctx, StockMovement{
				VariantID:  it.VariantID,
				LocationID: it.LocationID,
				Quantity:   it.Quantity,
				OrderID:    order.ID,
				ActorID:    cmd.CustomerID,
			}); err != nil {
				return err
			}
		}

		payment := &model.Payment{
			OrderID:       order.ID,
			Amount:        order.TotalAmount,
			Currency:      order.Currency,
			Status:        model.PaymentPending,
			Gateway:       s.payments.gateway.Name(),
			PaymentMethod: cmd.PaymentMethod,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.paymentRepo.CreatePayment(ctx, payment); err != nil {
			return err
		}
		order.Payments = []*model.Payment{payment}

		return s.timeline.append(ctx, order.ID, model.HistoryFieldStatus, model.HistoryNone,
			string(model.OrderStatusPending), "", false, cmd.CustomerID, now)
	})
	if err != nil {
		util.Logger.Warn("创建订单失败", zap.String("email", cmd.Email), zap.Error(err))
		return nil, asServiceError(err, "创建订单失败")
	}

	util.Logger.Info("订单创建完成",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total_amount", order.TotalAmount))
	return order, nil
}

// UpdateStatus 人工修改订单状态。取消与失败都会释放库存并撤销授权
func (s *OrderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (*model.Order, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	switch cmd.Status {
	case model.OrderStatusCancelled, model.OrderStatusFailed:
		reason := cmd.Note
		if reason == "" {
			reason = "管理员" + terminateVerb(cmd.Status) + "订单"
		}
		return s.terminate(ctx, CancelOrderCommand{OrderID: cmd.OrderID, Reason: reason, ActorID: cmd.ActorID}, cmd.Status)
	}

	var order *model.Order
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.lockOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return conflict("订单已%s，不能再修改状态", statusLabel(order.Status))
		}
		if order.Status == cmd.Status {
			return conflict("订单状态已是 %s", cmd.Status)
		}
		return s.timeline.status(ctx, order, cmd.Status, cmd.Note, cmd.ActorID, s.now())
	})
	if err != nil {
		return nil, asServiceError(err, "更新订单状态失败")
	}
	util.Logger.Info("订单状态已更新",
		zap.Int64("order_id", order.ID),
		zap.String("status", string(order.Status)),
		util.Actor(cmd.ActorID))
	return order, nil
}

// AddNote 追加备注，不修改任何状态
func (s *OrderService) AddNote(ctx context.Context, cmd AddOrderNoteCommand) (*model.OrderHistory, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	entry := &model.OrderHistory{
		OrderID:    cmd.OrderID,
		Field:      model.HistoryFieldNote,
		FromStatus: model.HistoryNote,
		ToStatus:   model.HistoryNote,
		Note:       cmd.Note,
		IsInternal: cmd.IsInternal,
		ActorID:    cmd.ActorID,
	}
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		if _, err := s.lockOrder(ctx, cmd.OrderID); err != nil {
			return err
		}
		entry.CreatedAt = s.now()
		return s.orderRepo.AppendHistory(ctx, entry)
	})
	if err != nil {
		return nil, asServiceError(err, "添加订单备注失败")
	}
	return entry, nil
}

// Fulfill 发货：扣减预留库存，履约状态置为已履约，订单状态置为已发货
func (s *OrderService) Fulfill(ctx context.Context, cmd FulfillOrderCommand) (*model.Order, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	var order *model.Order
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.lockOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return conflict("订单已%s，不能发货", statusLabel(order.Status))
		}
		if order.FulfillmentStatus != model.FulfillmentUnfulfilled {
			return conflict("订单履约状态为 %s，不能重复发货", order.FulfillmentStatus)
		}
		switch order.PaymentStatus {
		case model.OrderPaymentPaid, model.OrderPaymentPartiallyPaid, model.OrderPaymentPartiallyRefunded:
		default:
			return conflict("订单尚未收款，不能发货")
		}

		items, err := s.orderRepo.GetOrderItems(ctx, order.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := s.inventory.Commit(ctx, StockMovement{
				VariantID:  it.VariantID,
				LocationID: it.LocationID,
				Quantity:   it.Quantity,
				OrderID:    order.ID,
				ActorID:    cmd.ActorID,
			}); err != nil {
				return err
			}
		}

		now := s.now()
		if err := s.timeline.fulfillmentStatus(ctx, order, model.FulfillmentFulfilled, cmd.Note, cmd.ActorID, now); err != nil {
			return err
		}
		if order.Status == model.OrderStatusShipped || order.Status == model.OrderStatusDelivered {
			return nil
		}
		return s.timeline.status(ctx, order, model.OrderStatusShipped, cmd.Note, cmd.ActorID, now)
	})
	if err != nil {
		return nil, asServiceError(err, "订单发货失败")
	}
	util.Logger.Info("订单已发货", zap.Int64("order_id", order.ID), util.Actor(cmd.ActorID))
	return order, nil
}

// Cancel 取消订单：释放预留库存，撤销已授权的支付，待支付记录置为失败。
// 已收款的支付需单独退款。
func (s *OrderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (*model.Order, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	return s.terminate(ctx, cmd, model.OrderStatusCancelled)
}

// terminate 将订单置为终态 final（cancelled 或 failed），网关撤销在本地写入之后执行
func (s *OrderService) terminate(ctx context.Context, cmd CancelOrderCommand, final model.OrderStatus) (*model.Order, error) {
	var order *model.Order
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.lockOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return conflict("订单已%s，不能%s", statusLabel(order.Status), terminateVerb(final))
		}
		if order.FulfillmentStatus == model.FulfillmentFulfilled || order.Status == model.OrderStatusShipped ||
			order.Status == model.OrderStatusDelivered {
			return conflict("订单已发货，不能%s", terminateVerb(final))
		}

		if order.FulfillmentStatus == model.FulfillmentUnfulfilled {
			items, err := s.orderRepo.GetOrderItems(ctx, order.ID)
			if err != nil {
				return err
			}
			for _, it := range items {
				if err := s.inventory.Release(ctx, StockMovement{
					VariantID:  it.VariantID,
					LocationID: it.LocationID,
					Quantity:   it.Quantity,
					OrderID:    order.ID,
					ActorID:    cmd.ActorID,
				}); err != nil {
					return err
				}
			}
		}

		payments, err := s.paymentRepo.GetPaymentsByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		captured := false
		var voided []*model.Payment
		for _, p := range payments {
			if p.IsRefund() {
				continue
			}
			switch p.Status {
			case model.PaymentAuthorized:
				locked, err := s.payments.lockOriginal(ctx, p.ID)
				if err != nil {
					return err
				}
				if err := s.payments.voidLocked(ctx, order, locked, cmd.Reason, cmd.ActorID); err != nil {
					return err
				}
				voided = append(voided, locked)
			case model.PaymentPending:
				msg := cmd.Reason
				p.FailureMessage = &msg
				if err := s.payments.transition(ctx, p, model.PaymentFailed, p.GatewayTransactionID, s.now()); err != nil {
					return err
				}
			case model.PaymentCaptured, model.PaymentRefunded:
				captured = true
			}
		}

		now := s.now()
		if err := s.timeline.status(ctx, order, final, cmd.Reason, cmd.ActorID, now); err != nil {
			return err
		}
		if err := s.timeline.fulfillmentStatus(ctx, order, model.FulfillmentCancelled, "", cmd.ActorID, now); err != nil {
			return err
		}
		if !captured {
			paymentStatus := model.OrderPaymentCancelled
			if final == model.OrderStatusFailed {
				paymentStatus = model.OrderPaymentFailed
			}
			if err := s.timeline.paymentStatus(ctx, order, paymentStatus, "", cmd.ActorID, now); err != nil {
				return err
			}
		}
		if err := s.audit.Record(ctx, cmd.ActorID, model.AuditActionOrderCancel, model.EntityOrder, order.ID,
			model.AuditDetails{"reason": cmd.Reason, "order_number": order.OrderNumber, "status": final}); err != nil {
			return err
		}
		for _, p := range voided {
			if err := s.payments.voidAtGateway(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		util.Logger.Warn("订单终止失败", zap.Int64("order_id", cmd.OrderID),
			zap.String("status", string(final)), zap.Error(err))
		return nil, asServiceError(err, terminateVerb(final)+"订单失败")
	}
	util.Logger.Info("订单已终止", zap.Int64("order_id", order.ID),
		zap.String("status", string(final)), util.Actor(cmd.ActorID))
	return order, nil
}

func terminateVerb(final model.OrderStatus) string {
	if final == model.OrderStatusFailed {
		return "标记失败"
	}
	return "取消"
}

// GetOrder 返回订单及其商品、支付流水与时间线
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "获取订单失败", err)
	}
	if order == nil {
		return nil, notFound("订单不存在")
	}
	if order.Items, err = s.orderRepo.GetOrderItems(ctx, id); err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "获取订单商品失败", err)
	}
	if order.Payments, err = s.paymentRepo.GetPaymentsByOrder(ctx, id); err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "获取支付记录失败", err)
	}
	if order.History, err = s.orderRepo.GetHistory(ctx, id); err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "获取订单时间线失败", err)
	}
	return order, nil
}

// GetOrderForCustomer 顾客查看自己的订单，内部备注不返回
func (s *OrderService) GetOrderForCustomer(ctx context.Context, id, customerID int64) (*model.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerID == nil || *order.CustomerID != customerID {
		return nil, notFound("订单不存在")
	}
	visible := order.History[:0]
	for _, h := range order.History {
		if !h.IsInternal {
			visible = append(visible, h)
		}
	}
	order.History = visible
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter model.OrderFilter) ([]*model.Order, int, error) {
	orders, total, err := s.orderRepo.ListOrders(ctx, filter)
	if err != nil {
		return nil, 0, serviceErrors.Wrap(serviceErrors.ErrDatabase, "获取订单列表失败", err)
	}
	return orders, total, nil
}

func (s *OrderService) GetTimeline(ctx context.Context, id int64) ([]*model.OrderHistory, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "获取订单失败", err)
	}
	if order == nil {
		return nil, notFound("订单不存在")
	}
	history, err := s.orderRepo.GetHistory(ctx, id)
	if err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "获取订单时间线失败", err)
	}
	return history, nil
}

func (s *OrderService) lockOrder(ctx context.Context, id int64) (*model.Order, error) {
	order, err := s.orderRepo.LockOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, notFound("订单不存在")
	}
	return order, nil
}

func statusLabel(s model.OrderStatus) string {
	if s == model.OrderStatusFailed {
		return "失败"
	}
	return "取消"
}
