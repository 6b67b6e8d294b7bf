package model

import (
	"sort"
	"time"
)

// DiscountType 折扣类型
type DiscountType string

const (
	DiscountPercentage   DiscountType = "percentage"
	DiscountFixedAmount  DiscountType = "fixed_amount"
	DiscountFreeShipping DiscountType = "free_shipping"
	DiscountBuyXGetY     DiscountType = "buy_x_get_y"
)

// DiscountScope 折扣适用范围
type DiscountScope string

const (
	DiscountScopeAll         DiscountScope = "all"
	DiscountScopeProducts    DiscountScope = "products"
	DiscountScopeCollections DiscountScope = "collections"
)

// DiscountStatus 折扣状态
type DiscountStatus string

const (
	DiscountDraft     DiscountStatus = "draft"
	DiscountScheduled DiscountStatus = "scheduled"
	DiscountActive    DiscountStatus = "active"
	DiscountDisabled  DiscountStatus = "disabled"
	DiscountExpired   DiscountStatus = "expired"
)

// BasisPointsScale 百分比折扣以基点存储，10000 = 100%
const BasisPointsScale = 10000

// Discount 折扣码
type Discount struct {
	ID                            int64          `db:"id" json:"id"`
	Code                          string         `db:"code" json:"code"`
	Title                         string         `db:"title" json:"title"`
	Type                          DiscountType   `db:"type" json:"type"`
	Value                         int64          `db:"value" json:"value"`
	Scope                         DiscountScope  `db:"scope" json:"scope"`
	MinimumAmount                 *int64         `db:"minimum_amount" json:"minimum_amount,omitempty"`
	MaximumAmount                 *int64         `db:"maximum_amount" json:"maximum_amount,omitempty"`
	UsageLimit                    *int64         `db:"usage_limit" json:"usage_limit,omitempty"`
	UsageLimitPerCustomer         *int64         `db:"usage_limit_per_customer" json:"usage_limit_per_customer,omitempty"`
	OncePerCustomer               bool           `db:"once_per_customer" json:"once_per_customer"`
	CurrentUsage                  int64          `db:"current_usage" json:"current_usage"`
	BuyQuantity                   int64          `db:"buy_quantity" json:"buy_quantity"`
	GetQuantity                   int64          `db:"get_quantity" json:"get_quantity"`
	StartsAt                      time.Time      `db:"starts_at" json:"starts_at"`
	EndsAt                        *time.Time     `db:"ends_at" json:"ends_at,omitempty"`
	Status                        DiscountStatus `db:"status" json:"status"`
	CombinesWithProductDiscounts  bool           `db:"combines_with_product_discounts" json:"combines_with_product_discounts"`
	CombinesWithOrderDiscounts    bool           `db:"combines_with_order_discounts" json:"combines_with_order_discounts"`
	CombinesWithShippingDiscounts bool           `db:"combines_with_shipping_discounts" json:"combines_with_shipping_discounts"`
	CreatedAt                     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt                     time.Time      `db:"updated_at" json:"updated_at"`

	ProductIDs    []int64 `db:"-" json:"product_ids,omitempty"`
	CollectionIDs []int64 `db:"-" json:"collection_ids,omitempty"`
}

// ComputeStatus 根据当前时间推导折扣状态。
// draft 与 disabled 为人工设置的状态，不随时间变化。
func (d *Discount) ComputeStatus(now time.Time) DiscountStatus {
	switch d.Status {
	case DiscountDraft, DiscountDisabled:
		return d.Status
	}
	if now.Before(d.StartsAt) {
		return DiscountScheduled
	}
	if d.EndsAt != nil && now.After(*d.EndsAt) {
		return DiscountExpired
	}
	return DiscountActive
}

// Amount 计算整单折扣金额（最小货币单位）。
// 免运费与买X送Y需要购物车明细，见 AmountForCart。
func (d *Discount) Amount(orderAmount int64) int64 {
	switch d.Type {
	case DiscountPercentage:
		return d.clampMaximum(roundBasisPoints(orderAmount, d.Value))
	case DiscountFixedAmount:
		return d.Value
	}
	return 0
}

// DiscountLine 参与折扣计算的商品行
type DiscountLine struct {
	ProductID     int64
	CollectionIDs []int64
	Quantity      int64
	UnitPrice     int64
}

// DiscountCart 参与折扣计算的购物车
type DiscountCart struct {
	Subtotal       int64
	ShippingAmount int64
	Lines          []DiscountLine
}

// AmountForCart 按适用范围计算购物车的折扣金额，结果不超过可折扣的金额
func (d *Discount) AmountForCart(cart DiscountCart) int64 {
	eligible := d.eligibleLines(cart.Lines)
	var base int64
	if len(cart.Lines) == 0 && d.Scope == DiscountScopeAll {
		base = cart.Subtotal
	}
	for _, l := range eligible {
		base += l.Quantity * l.UnitPrice
	}

	var amount int64
	switch d.Type {
	case DiscountPercentage:
		amount = d.clampMaximum(roundBasisPoints(base, d.Value))
	case DiscountFixedAmount:
		amount = d.Value
	case DiscountFreeShipping:
		return d.clampMaximum(cart.ShippingAmount)
	case DiscountBuyXGetY:
		amount = d.clampMaximum(d.buyXGetYAmount(eligible))
	}
	if amount > base {
		amount = base
	}
	return amount
}

func (d *Discount) eligibleLines(lines []DiscountLine) []DiscountLine {
	if d.Scope == DiscountScopeAll || d.Scope == "" {
		return lines
	}
	var out []DiscountLine
	for _, l := range lines {
		switch d.Scope {
		case DiscountScopeProducts:
			if containsID(d.ProductIDs, l.ProductID) {
				out = append(out, l)
			}
		case DiscountScopeCollections:
			for _, c := range l.CollectionIDs {
				if containsID(d.CollectionIDs, c) {
					out = append(out, l)
					break
				}
			}
		}
	}
	return out
}

// buyXGetYAmount 每凑满 buy+get 件，最便宜的 get 件按 Value 基点打折
func (d *Discount) buyXGetYAmount(lines []DiscountLine) int64 {
	group := d.BuyQuantity + d.GetQuantity
	if d.BuyQuantity <= 0 || d.GetQuantity <= 0 {
		return 0
	}
	var units []int64
	for _, l := range lines {
		for i := int64(0); i < l.Quantity; i++ {
			units = append(units, l.UnitPrice)
		}
	}
	free := int64(len(units)) / group * d.GetQuantity
	if free == 0 {
		return 0
	}
	sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })
	var sum int64
	for _, p := range units[:free] {
		sum += p
	}
	return roundBasisPoints(sum, d.Value)
}

func (d *Discount) clampMaximum(amount int64) int64 {
	if d.MaximumAmount != nil && amount > *d.MaximumAmount {
		return *d.MaximumAmount
	}
	return amount
}

// roundBasisPoints 计算 amount*bp/10000 并四舍五入
func roundBasisPoints(amount, bp int64) int64 {
	if amount <= 0 || bp <= 0 {
		return 0
	}
	return (amount*bp + BasisPointsScale/2) / BasisPointsScale
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// DiscountUsage 折扣使用记录（只追加）
type DiscountUsage struct {
	ID         int64     `db:"id" json:"id"`
	DiscountID int64     `db:"discount_id" json:"discount_id"`
	CustomerID *int64    `db:"customer_id" json:"customer_id,omitempty"`
	OrderID    int64     `db:"order_id" json:"order_id"`
	Amount     int64     `db:"amount" json:"amount"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// DiscountRejection 折扣校验失败原因
type DiscountRejection string

const (
	DiscountRejectNotFound        DiscountRejection = "not_found"
	DiscountRejectInactive        DiscountRejection = "inactive"
	DiscountRejectOutsideWindow   DiscountRejection = "outside_window"
	DiscountRejectUsageLimit      DiscountRejection = "usage_limit"
	DiscountRejectCustomerLimit   DiscountRejection = "customer_limit"
	DiscountRejectOncePerCustomer DiscountRejection = "once_per_customer"
	DiscountRejectMinimumAmount   DiscountRejection = "minimum_amount"
)

// DiscountValidation 折扣码校验结果
type DiscountValidation struct {
	Valid    bool              `json:"valid"`
	Discount *Discount         `json:"discount,omitempty"`
	Error    string            `json:"error,omitempty"`
	Reason   DiscountRejection `json:"reason,omitempty"`
}

// DiscountFilter 折扣列表查询条件。Status 按 Now 时刻推导的状态过滤
type DiscountFilter struct {
	Status   DiscountStatus
	Search   string
	Now      time.Time
	Page     int
	PageSize int
}
