package mysql

import (
	"commerce-backend/internal/model"
	"commerce-backend/internal/repository/interfaces"
	"commerce-backend/internal/util"
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const discountColumns = `id, code, title, type, value, scope, minimum_amount, maximum_amount,
	usage_limit, usage_limit_per_customer, once_per_customer, current_usage, buy_quantity, get_quantity,
	starts_at, ends_at, status, combines_with_product_discounts, combines_with_order_discounts,
	combines_with_shipping_discounts, created_at, updated_at`

const usageColumns = `id, discount_id, customer_id, order_id, amount, created_at`

type DiscountRepository struct {
	db *sqlx.DB
}

var _ interfaces.DiscountRepository = (*DiscountRepository)(nil)

func NewDiscountRepository(db *sqlx.DB) *DiscountRepository {
	return &DiscountRepository{db}
}

func (r *DiscountRepository) CreateDiscount(ctx context.Context, d *model.Discount) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO discounts (code, title, type, value, scope, minimum_amount, maximum_amount,
			usage_limit, usage_limit_per_customer, once_per_customer, current_usage, buy_quantity, get_quantity,
			starts_at, ends_at, status, combines_with_product_discounts, combines_with_order_discounts,
			combines_with_shipping_discounts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Code, d.Title, d.Type, d.Value, d.Scope, d.MinimumAmount, d.MaximumAmount,
		d.UsageLimit, d.UsageLimitPerCustomer, d.OncePerCustomer, d.CurrentUsage, d.BuyQuantity, d.GetQuantity,
		d.StartsAt, d.EndsAt, d.Status, d.CombinesWithProductDiscounts, d.CombinesWithOrderDiscounts,
		d.CombinesWithShippingDiscounts, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		util.Logger.Error("创建折扣失败", zap.Error(err), zap.String("code", d.Code))
		return fmt.Errorf("failed to create discount: %w", err)
	}
	d.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get discount ID: %w", err)
	}
	return nil
}

// UpdateDiscount 更新折扣规则，不修改使用计数
func (r *DiscountRepository) UpdateDiscount(ctx context.Context, d *model.Discount) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE discounts SET title = ?, type = ?, value = ?, scope = ?, minimum_amount = ?, maximum_amount = ?,
			usage_limit = ?, usage_limit_per_customer = ?, once_per_customer = ?, buy_quantity = ?, get_quantity = ?,
			starts_at = ?, ends_at = ?, status = ?, combines_with_product_discounts = ?,
			combines_with_order_discounts = ?, combines_with_shipping_discounts = ?, updated_at = ?
		WHERE id = ?`,
		d.Title, d.Type, d.Value, d.Scope, d.MinimumAmount, d.MaximumAmount,
		d.UsageLimit, d.UsageLimitPerCustomer, d.OncePerCustomer, d.BuyQuantity, d.GetQuantity,
		d.StartsAt, d.EndsAt, d.Status, d.CombinesWithProductDiscounts,
		d.CombinesWithOrderDiscounts, d.CombinesWithShippingDiscounts, d.UpdatedAt,
		d.ID)
	if err != nil {
		return fmt.Errorf("failed to update discount: %w", err)
	}
	return mustAffect(res)
}

func (r *DiscountRepository) GetDiscountByID(ctx context.Context, id int64) (*model.Discount, error) {
	return r.getBy(ctx, `SELECT `+discountColumns+` FROM discounts WHERE id = ?`, id)
}

func (r *DiscountRepository) GetDiscountByCode(ctx context.Context, code string) (*model.Discount, error) {
	return r.getBy(ctx, `SELECT `+discountColumns+` FROM discounts WHERE code = ?`, code)
}

func (r *DiscountRepository) LockDiscount(ctx context.Context, id int64) (*model.Discount, error) {
	return r.getBy(ctx, `SELECT `+discountColumns+` FROM discounts WHERE id = ?`+forUpdate(r.db), id)
}

func (r *DiscountRepository) getBy(ctx context.Context, query string, arg interface{}) (*model.Discount, error) {
	var d model.Discount
	found, err := getOne(ctx, conn(ctx, r.db), &d, query, arg)
	if err != nil {
		util.Logger.Error("查询折扣失败", zap.Error(err))
		return nil, fmt.Errorf("failed to get discount: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &d, nil
}

func (r *DiscountRepository) ListDiscounts(ctx context.Context, filter model.DiscountFilter) ([]*model.Discount, int, error) {
	var where []string
	var args []interface{}
	if filter.Search != "" {
		where = append(where, "(code LIKE ? OR title LIKE ?)")
		like := "%" + strings.ToUpper(filter.Search) + "%"
		args = append(args, like, "%"+filter.Search+"%")
	}
	// 状态在读取时推导，这里把推导规则翻译成查询条件
	switch filter.Status {
	case model.DiscountDraft, model.DiscountDisabled:
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	case model.DiscountScheduled:
		where = append(where, "status = ? AND starts_at > ?")
		args = append(args, model.DiscountActive, filter.Now)
	case model.DiscountActive:
		where = append(where, "status = ? AND starts_at <= ? AND (ends_at IS NULL OR ends_at >= ?)")
		args = append(args, model.DiscountActive, filter.Now, filter.Now)
	case model.DiscountExpired:
		where = append(where, "status = ? AND ends_at < ?")
		args = append(args, model.DiscountActive, filter.Now)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	q := conn(ctx, r.db)
	var total int
	if err := sqlx.GetContext(ctx, q, &total, `SELECT COUNT(*) FROM discounts`+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count discounts: %w", err)
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)
	var discounts []*model.Discount
	err := sqlx.SelectContext(ctx, q, &discounts,
		`SELECT `+discountColumns+` FROM discounts`+clause+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list discounts: %w", err)
	}
	return discounts, total, nil
}

func (r *DiscountRepository) SetDiscountStatus(ctx context.Context, id int64, status model.DiscountStatus) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE discounts SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set discount status: %w", err)
	}
	return mustAffect(res)
}

// ReplaceTargets 覆盖折扣关联的商品与商品集合
func (r *DiscountRepository) ReplaceTargets(ctx context.Context, discountID int64, productIDs, collectionIDs []int64) error {
	q := conn(ctx, r.db)
	if _, err := q.ExecContext(ctx, `DELETE FROM discount_products WHERE discount_id = ?`, discountID); err != nil {
		return fmt.Errorf("failed to clear discount products: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM discount_collections WHERE discount_id = ?`, discountID); err != nil {
		return fmt.Errorf("failed to clear discount collections: %w", err)
	}
	for _, pid := range productIDs {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO discount_products (discount_id, product_id) VALUES (?, ?)`, discountID, pid); err != nil {
			return fmt.Errorf("failed to add discount product: %w", err)
		}
	}
	for _, cid := range collectionIDs {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO discount_collections (discount_id, collection_id) VALUES (?, ?)`, discountID, cid); err != nil {
			return fmt.Errorf("failed to add discount collection: %w", err)
		}
	}
	return nil
}

func (r *DiscountRepository) LoadTargets(ctx context.Context, d *model.Discount) error {
	q := conn(ctx, r.db)
	d.ProductIDs = nil
	d.CollectionIDs = nil
	if err := sqlx.SelectContext(ctx, q, &d.ProductIDs,
		`SELECT product_id FROM discount_products WHERE discount_id = ? ORDER BY product_id`, d.ID); err != nil {
		return fmt.Errorf("failed to load discount products: %w", err)
	}
	if err := sqlx.SelectContext(ctx, q, &d.CollectionIDs,
		`SELECT collection_id FROM discount_collections WHERE discount_id = ? ORDER BY collection_id`, d.ID); err != nil {
		return fmt.Errorf("failed to load discount collections: %w", err)
	}
	return nil
}

// IncrementUsage 计数加一；已达到总使用上限时不更新
func (r *DiscountRepository) IncrementUsage(ctx context.Context, id int64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE discounts SET current_usage = current_usage + 1
		WHERE id = ? AND (usage_limit IS NULL OR current_usage < usage_limit)`, id)
	if err != nil {
		return fmt.Errorf("failed to increment discount usage: %w", err)
	}
	return mustAffect(res)
}

func (r *DiscountRepository) CreateUsage(ctx context.Context, u *model.DiscountUsage) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO discount_usages (discount_id, customer_id, order_id, amount, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.DiscountID, u.CustomerID, u.OrderID, u.Amount, u.CreatedAt)
	if err != nil {
		util.Logger.Error("写入折扣使用记录失败", zap.Error(err), zap.Int64("discount_id", u.DiscountID))
		return fmt.Errorf("failed to create discount usage: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

func (r *DiscountRepository) CountUsages(ctx context.Context, discountID int64) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &n,
		`SELECT COUNT(*) FROM discount_usages WHERE discount_id = ?`, discountID)
	if err != nil {
		return 0, fmt.Errorf("failed to count discount usages: %w", err)
	}
	return n, nil
}

func (r *DiscountRepository) CountCustomerUsages(ctx context.Context, discountID, customerID int64) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &n,
		`SELECT COUNT(*) FROM discount_usages WHERE discount_id = ? AND customer_id = ?`, discountID, customerID)
	if err != nil {
		return 0, fmt.Errorf("failed to count customer usages: %w", err)
	}
	return n, nil
}

func (r *DiscountRepository) ListUsages(ctx context.Context, discountID int64) ([]*model.DiscountUsage, error) {
	var usages []*model.DiscountUsage
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &usages,
		`SELECT `+usageColumns+` FROM discount_usages WHERE discount_id = ? ORDER BY id`, discountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list discount usages: %w", err)
	}
	return usages, nil
}
