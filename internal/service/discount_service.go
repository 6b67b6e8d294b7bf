package service

import (
	"commerce-backend/internal/model"
	"commerce-backend/internal/repository/interfaces"
	serviceErrors "commerce-backend/internal/service/errors"
	"commerce-backend/internal/util"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

type DiscountServiceInterface interface {
	Validate(ctx context.Context, query ValidateDiscountQuery) (*model.DiscountValidation, error)
	Apply(ctx context.Context, cmd ApplyDiscountCommand) (*model.DiscountUsage, error)
	CreateDiscount(ctx context.Context, cmd CreateDiscountCommand) (*model.Discount, error)
	UpdateDiscount(ctx context.Context, cmd UpdateDiscountCommand) (*model.Discount, error)
	SetEnabled(ctx context.Context, id int64, enabled bool, actorID *int64) (*model.Discount, error)
	GetDiscount(ctx context.Context, id int64) (*model.Discount, error)
	ListDiscounts(ctx context.Context, filter model.DiscountFilter) ([]*model.Discount, int, error)
	ListUsages(ctx context.Context, id int64) ([]*model.DiscountUsage, error)
	VerifyUsageCounter(ctx context.Context, id int64) (*UsageCounterCheck, error)
}

type DiscountService struct {
	tx           interfaces.Transactor
	discountRepo interfaces.DiscountRepository
	audit        *AuditService
	now          func() time.Time
}

var _ DiscountServiceInterface = (*DiscountService)(nil)

func NewDiscountService(tx interfaces.Transactor, discountRepo interfaces.DiscountRepository, audit *AuditService) *DiscountService {
	return &DiscountService{tx: tx, discountRepo: discountRepo, audit: audit, now: defaultNow}
}

// ValidateDiscountQuery 折扣码校验请求
type ValidateDiscountQuery struct {
	Code        string `json:"code" binding:"required,max=64"`
	CustomerID  *int64 `json:"-"`
	OrderAmount *int64 `json:"order_amount" binding:"omitempty,gte=0"`
}

// ApplyDiscountCommand 校验并记录一次使用
type ApplyDiscountCommand struct {
	Code        string `binding:"required,max=64"`
	CustomerID  *int64
	OrderID     int64 `binding:"required,gt=0"`
	OrderAmount int64 `binding:"gte=0"`
	Cart        *model.DiscountCart
}

// DiscountRules 创建与更新共用的规则字段
type DiscountRules struct {
	Title                         string              `json:"title" binding:"max=255"`
	Type                          model.DiscountType  `json:"type" binding:"required,oneof=percentage fixed_amount free_shipping buy_x_get_y"`
	Value                         int64               `json:"value" binding:"gte=0"`
	Scope                         model.DiscountScope `json:"scope" binding:"omitempty,oneof=all products collections"`
	ProductIDs                    []int64             `json:"product_ids" binding:"omitempty,dive,gt=0"`
	CollectionIDs                 []int64             `json:"collection_ids" binding:"omitempty,dive,gt=0"`
	MinimumAmount                 *int64              `json:"minimum_amount" binding:"omitempty,gte=0"`
	MaximumAmount                 *int64              `json:"maximum_amount" binding:"omitempty,gt=0"`
	UsageLimit                    *int64              `json:"usage_limit" binding:"omitempty,gt=0"`
	UsageLimitPerCustomer         *int64              `json:"usage_limit_per_customer" binding:"omitempty,gt=0"`
	OncePerCustomer               bool                `json:"once_per_customer"`
	BuyQuantity                   int64               `json:"buy_quantity" binding:"gte=0"`
	GetQuantity                   int64               `json:"get_quantity" binding:"gte=0"`
	StartsAt                      *time.Time          `json:"starts_at"`
	EndsAt                        *time.Time          `json:"ends_at"`
	Draft                         bool                `json:"draft"`
	CombinesWithProductDiscounts  bool                `json:"combines_with_product_discounts"`
	CombinesWithOrderDiscounts    bool                `json:"combines_with_order_discounts"`
	CombinesWithShippingDiscounts bool                `json:"combines_with_shipping_discounts"`
}

type CreateDiscountCommand struct {
	Code string `json:"code" binding:"required,max=64"`
	DiscountRules
	ActorID *int64 `json:"-"`
}

type UpdateDiscountCommand struct {
	ID int64 `json:"-"`
	DiscountRules
	ActorID *int64 `json:"-"`
}

// UsageCounterCheck 使用计数与使用记录的一致性检查结果
type UsageCounterCheck struct {
	DiscountID   int64 `json:"discount_id"`
	CurrentUsage int64 `json:"current_usage"`
	LedgerCount  int64 `json:"ledger_count"`
	Consistent   bool  `json:"consistent"`
}

// Validate 校验折扣码，不产生任何写入
func (s *DiscountService) Validate(ctx context.Context, query ValidateDiscountQuery) (*model.DiscountValidation, error) {
	if err := validateCommand(query); err != nil {
		return nil, err
	}
	d, err := s.discountRepo.GetDiscountByCode(ctx, normalizeCode(query.Code))
	if err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "查询折扣码失败", err)
	}
	reason, msg, err := s.check(ctx, d, query.CustomerID, query.OrderAmount, s.now())
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return &model.DiscountValidation{Valid: false, Error: msg, Reason: reason}, nil
	}
	if err := s.discountRepo.LoadTargets(ctx, d); err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "查询折扣范围失败", err)
	}
	return &model.DiscountValidation{Valid: true, Discount: d}, nil
}

// check 按顺序检查折扣规则，遇到第一个不满足的条件即返回
func (s *DiscountService) check(ctx context.Context, d *model.Discount, customerID, orderAmount *int64, now time.Time) (model.DiscountRejection, string, error) {
	if d == nil {
		return model.DiscountRejectNotFound, "折扣码不存在", nil
	}
	d.Status = d.ComputeStatus(now)
	if d.Status == model.DiscountDraft || d.Status == model.DiscountDisabled {
		return model.DiscountRejectInactive, "折扣码未启用", nil
	}
	if d.Status != model.DiscountActive {
		return model.DiscountRejectOutsideWindow, "折扣码不在有效期内", nil
	}
	if d.UsageLimit != nil && d.CurrentUsage >= *d.UsageLimit {
		return model.DiscountRejectUsageLimit, "折扣码已达到使用上限", nil
	}
	if customerID != nil && (d.UsageLimitPerCustomer != nil || d.OncePerCustomer) {
		used, err := s.discountRepo.CountCustomerUsages(ctx, d.ID, *customerID)
		if err != nil {
			return "", "", serviceErrors.Wrap(serviceErrors.ErrDatabase, "查询折扣使用记录失败", err)
		}
		if d.UsageLimitPerCustomer != nil && used >= *d.UsageLimitPerCustomer {
			return model.DiscountRejectCustomerLimit, "您已达到该折扣码的使用次数上限", nil
		}
		if d.OncePerCustomer && used > 0 {
			return model.DiscountRejectOncePerCustomer, "该折扣码每位顾客仅限使用一次", nil
		}
	}
	if orderAmount != nil && d.MinimumAmount != nil && *orderAmount < *d.MinimumAmount {
		return model.DiscountRejectMinimumAmount,
			fmt.Sprintf("订单金额需满 %d 才能使用该折扣码", *d.MinimumAmount), nil
	}
	return "", "", nil
}

// Evaluate 锁定折扣并校验，返回折扣及其金额。须在事务中调用
func (s *DiscountService) Evaluate(ctx context.Context, code string, customerID *int64, cart model.DiscountCart) (*model.Discount, int64, error) {
	found, err := s.discountRepo.GetDiscountByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, 0, serviceErrors.Wrap(serviceErrors.ErrDatabase, "查询折扣码失败", err)
	}
	var d *model.Discount
	if found != nil {
		if d, err = s.discountRepo.LockDiscount(ctx, found.ID); err != nil {
			return nil, 0, serviceErrors.Wrap(serviceErrors.ErrDatabase, "锁定折扣码失败", err)
		}
	}
	reason, msg, err := s.check(ctx, d, customerID, &cart.Subtotal, s.now())
	if err != nil {
		return nil, 0, err
	}
	if reason != "" {
		return nil, 0, serviceErrors.New(serviceErrors.ErrConflict, msg)
	}
	if err := s.discountRepo.LoadTargets(ctx, d); err != nil {
		return nil, 0, serviceErrors.Wrap(serviceErrors.ErrDatabase, "查询折扣范围失败", err)
	}
	return d, d.AmountForCart(cart), nil
}

// RecordUsage 计数加一并追加使用记录，二者在同一事务内
func (s *DiscountService) RecordUsage(ctx context.Context, d *model.Discount, customerID *int64, orderID, amount int64) (*model.DiscountUsage, error) {
	if err := s.discountRepo.IncrementUsage(ctx, d.ID); err != nil {
		if errors.Is(err, interfaces.ErrConditionFailed) {
			return nil, conflict("折扣码已达到使用上限")
		}
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "更新折扣使用次数失败", err)
	}
	usage := &model.DiscountUsage{
		DiscountID: d.ID,
		CustomerID: customerID,
		OrderID:    orderID,
		Amount:     amount,
		CreatedAt:  s.now(),
	}
	if err := s.discountRepo.CreateUsage(ctx, usage); err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "写入折扣使用记录失败", err)
	}
	d.CurrentUsage++
	return usage, nil
}

// Apply 校验折扣码并记录使用
func (s *DiscountService) Apply(ctx context.Context, cmd ApplyDiscountCommand) (*model.DiscountUsage, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	cart := model.DiscountCart{Subtotal: cmd.OrderAmount}
	if cmd.Cart != nil {
		cart = *cmd.Cart
	}

	var usage *model.DiscountUsage
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		d, amount, err := s.Evaluate(ctx, cmd.Code, cmd.CustomerID, cart)
		if err != nil {
			return err
		}
		usage, err = s.RecordUsage(ctx, d, cmd.CustomerID, cmd.OrderID, amount)
		return err
	})
	if err != nil {
		util.Logger.Warn("应用折扣码失败", zap.String("code", cmd.Code), zap.Error(err))
		return nil, asServiceError(err, "应用折扣码失败")
	}
	return usage, nil
}

func (s *DiscountService) CreateDiscount(ctx context.Context, cmd CreateDiscountCommand) (*model.Discount, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	if err := validateRules(cmd.DiscountRules); err != nil {
		return nil, err
	}
	now := s.now()
	d := &model.Discount{Code: normalizeCode(cmd.Code), CreatedAt: now}
	applyRules(d, cmd.DiscountRules, now)

	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		existing, err := s.discountRepo.GetDiscountByCode(ctx, d.Code)
		if err != nil {
			return err
		}
		if existing != nil {
			return serviceErrors.New(serviceErrors.ErrDuplicate, "折扣码已存在")
		}
		if err := s.discountRepo.CreateDiscount(ctx, d); err != nil {
			return err
		}
		return s.discountRepo.ReplaceTargets(ctx, d.ID, d.ProductIDs, d.CollectionIDs)
	})
	if err != nil {
		return nil, asServiceError(err, "创建折扣失败")
	}
	util.Logger.Info("折扣创建成功", zap.Int64("discount_id", d.ID), zap.String("code", d.Code), util.Actor(cmd.ActorID))
	d.Status = d.ComputeStatus(now)
	return d, nil
}

func (s *DiscountService) UpdateDiscount(ctx context.Context, cmd UpdateDiscountCommand) (*model.Discount, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	if err := validateRules(cmd.DiscountRules); err != nil {
		return nil, err
	}
	now := s.now()
	var d *model.Discount
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.discountRepo.LockDiscount(ctx, cmd.ID)
		if err != nil {
			return err
		}
		if d == nil {
			return notFound("折扣不存在")
		}
		if cmd.UsageLimit != nil && *cmd.UsageLimit < d.CurrentUsage {
			return conflict("使用上限不能小于已使用次数 %d", d.CurrentUsage)
		}
		// 已启用或已停用的折扣保留原状态，只有草稿可以通过 Draft 切换
		stored, startsAt := d.Status, d.StartsAt
		applyRules(d, cmd.DiscountRules, now)
		if stored != model.DiscountDraft {
			d.Status = stored
		}
		if cmd.StartsAt == nil {
			d.StartsAt = startsAt
		}
		if err := s.discountRepo.UpdateDiscount(ctx, d); err != nil {
			return err
		}
		return s.discountRepo.ReplaceTargets(ctx, d.ID, d.ProductIDs, d.CollectionIDs)
	})
	if err != nil {
		return nil, asServiceError(err, "更新折扣失败")
	}
	d.Status = d.ComputeStatus(now)
	return d, nil
}

// SetEnabled 启用或停用折扣
func (s *DiscountService) SetEnabled(ctx context.Context, id int64, enabled bool, actorID *int64) (*model.Discount, error) {
	status := model.DiscountDisabled
	if enabled {
		status = model.DiscountActive
	}
	var d *model.Discount
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.discountRepo.LockDiscount(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return notFound("折扣不存在")
		}
		from := d.Status
		if err := s.discountRepo.SetDiscountStatus(ctx, id, status); err != nil {
			return err
		}
		d.Status = status
		return s.audit.Record(ctx, actorID, model.AuditActionDiscountToggle, model.EntityDiscount, id,
			model.AuditDetails{"code": d.Code, "from": string(from), "to": string(status)})
	})
	if err != nil {
		return nil, asServiceError(err, "更新折扣状态失败")
	}
	d.Status = d.ComputeStatus(s.now())
	return d, nil
}

func (s *DiscountService) GetDiscount(ctx context.Context, id int64) (*model.Discount, error) {
	d, err := s.discountRepo.GetDiscountByID(ctx, id)
	if err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "查询折扣失败", err)
	}
	if d == nil {
		return nil, notFound("折扣不存在")
	}
	if err := s.discountRepo.LoadTargets(ctx, d); err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "查询折扣范围失败", err)
	}
	d.Status = d.ComputeStatus(s.now())
	return d, nil
}

func (s *DiscountService) ListDiscounts(ctx context.Context, filter model.DiscountFilter) ([]*model.Discount, int, error) {
	now := s.now()
	filter.Now = now
	discounts, total, err := s.discountRepo.ListDiscounts(ctx, filter)
	if err != nil {
		return nil, 0, serviceErrors.Wrap(serviceErrors.ErrDatabase, "获取折扣列表失败", err)
	}
	for _, d := range discounts {
		d.Status = d.ComputeStatus(now)
	}
	return discounts, total, nil
}

func (s *DiscountService) ListUsages(ctx context.Context, id int64) ([]*model.DiscountUsage, error) {
	if _, err := s.GetDiscount(ctx, id); err != nil {
		return nil, err
	}
	usages, err := s.discountRepo.ListUsages(ctx, id)
	if err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "获取折扣使用记录失败", err)
	}
	return usages, nil
}

// VerifyUsageCounter 检查 current_usage 与使用记录条数是否一致
func (s *DiscountService) VerifyUsageCounter(ctx context.Context, id int64) (*UsageCounterCheck, error) {
	var check *UsageCounterCheck
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		d, err := s.discountRepo.LockDiscount(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return notFound("折扣不存在")
		}
		n, err := s.discountRepo.CountUsages(ctx, id)
		if err != nil {
			return err
		}
		check = &UsageCounterCheck{
			DiscountID:   id,
			CurrentUsage: d.CurrentUsage,
			LedgerCount:  n,
			Consistent:   d.CurrentUsage == n,
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "校验折扣使用次数失败")
	}
	if !check.Consistent {
		util.Logger.Error("折扣使用计数与记录不一致",
			zap.Int64("discount_id", id),
			zap.Int64("current_usage", check.CurrentUsage),
			zap.Int64("ledger_count", check.LedgerCount))
	}
	return check, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateRules(r DiscountRules) error {
	invalid := func(msg string) error { return serviceErrors.New(serviceErrors.ErrInvalidInput, msg) }
	switch r.Type {
	case model.DiscountPercentage:
		if r.Value <= 0 || r.Value > model.BasisPointsScale {
			return invalid("百分比折扣的值必须在 1 到 10000 基点之间")
		}
	case model.DiscountFixedAmount:
		if r.Value <= 0 {
			return invalid("固定金额折扣的值必须大于 0")
		}
	case model.DiscountBuyXGetY:
		if r.BuyQuantity <= 0 || r.GetQuantity <= 0 {
			return invalid("买X送Y需要设置购买数量与赠送数量")
		}
		if r.Value <= 0 || r.Value > model.BasisPointsScale {
			return invalid("买X送Y的折扣值必须在 1 到 10000 基点之间")
		}
	}
	if r.Scope == model.DiscountScopeProducts && len(r.ProductIDs) == 0 {
		return invalid("指定商品的折扣至少需要一个商品")
	}
	if r.Scope == model.DiscountScopeCollections && len(r.CollectionIDs) == 0 {
		return invalid("指定商品集合的折扣至少需要一个集合")
	}
	if r.StartsAt != nil && r.EndsAt != nil && !r.EndsAt.After(*r.StartsAt) {
		return invalid("结束时间必须晚于开始时间")
	}
	return nil
}

func applyRules(d *model.Discount, r DiscountRules, now time.Time) {
	d.Title = r.Title
	d.Type = r.Type
	d.Value = r.Value
	d.Scope = r.Scope
	if d.Scope == "" {
		d.Scope = model.DiscountScopeAll
	}
	d.ProductIDs = r.ProductIDs
	d.CollectionIDs = r.CollectionIDs
	d.MinimumAmount = r.MinimumAmount
	d.MaximumAmount = r.MaximumAmount
	d.UsageLimit = r.UsageLimit
	d.UsageLimitPerCustomer = r.UsageLimitPerCustomer
	d.OncePerCustomer = r.OncePerCustomer
	d.BuyQuantity = r.BuyQuantity
	d.GetQuantity = r.GetQuantity
	d.StartsAt = now
	if r.StartsAt != nil {
		d.StartsAt = r.StartsAt.UTC()
	}
	d.EndsAt = nil
	if r.EndsAt != nil {
		end := r.EndsAt.UTC()
		d.EndsAt = &end
	}
	d.Status = model.DiscountActive
	if r.Draft {
		d.Status = model.DiscountDraft
	}
	d.CombinesWithProductDiscounts = r.CombinesWithProductDiscounts
	d.CombinesWithOrderDiscounts = r.CombinesWithOrderDiscounts
	d.CombinesWithShippingDiscounts = r.CombinesWithShippingDiscounts
	d.UpdatedAt = now
}
