package mysql

import (
	"commerce-backend/internal/model"
	"commerce-backend/internal/repository/interfaces"
	"commerce-backend/internal/util"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const orderColumns = `id, order_number, customer_id, email, currency,
	subtotal_amount, discount_amount, shipping_amount, tax_amount, total_amount, refunded_amount,
	discount_id, discount_code, status, payment_status, fulfillment_status,
	shipping_address, billing_address, created_at, updated_at`

const orderItemColumns = `id, order_id, product_id, variant_id, location_id, product_name,
	variant_title, sku, quantity, unit_price, total_price, restocked_quantity, created_at`

const historyColumns = `id, order_id, field, from_status, to_status, note, is_internal, actor_id, created_at`

type OrderRepository struct {
	db *sqlx.DB
}

var _ interfaces.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db}
}

// CreateOrder 插入订单及商品行，并回填订单编号
func (r *OrderRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	q := conn(ctx, r.db)

	// 先用临时编号插入拿到自增ID，再生成正式编号
	res, err := q.ExecContext(ctx, `
		INSERT INTO orders (order_number, customer_id, email, currency,
			subtotal_amount, discount_amount, shipping_amount, tax_amount, total_amount, refunded_amount,
			discount_id, discount_code, status, payment_status, fulfillment_status,
			shipping_address, billing_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"TMP-"+uuid.NewString(), order.CustomerID, order.Email, order.Currency,
		order.SubtotalAmount, order.DiscountAmount, order.ShippingAmount, order.TaxAmount,
		order.TotalAmount, order.RefundedAmount,
		order.DiscountID, order.DiscountCode, order.Status, order.PaymentStatus, order.FulfillmentStatus,
		order.ShippingAddress, order.BillingAddress, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		util.Logger.Error("插入订单记录失败", zap.Error(err))
		return fmt.Errorf("failed to insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get order ID: %w", err)
	}
	order.ID = id
	order.OrderNumber = generateOrderNumber(order.CreatedAt, id)

	if _, err := q.ExecContext(ctx, `UPDATE orders SET order_number = ? WHERE id = ?`, order.OrderNumber, id); err != nil {
		util.Logger.Error("更新订单编号失败", zap.Error(err), zap.Int64("order_id", id))
		return fmt.Errorf("failed to update order number: %w", err)
	}

	for _, item := range order.Items {
		item.OrderID = id
		item.CreatedAt = order.CreatedAt
		res, err := q.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, variant_id, location_id, product_name,
				variant_title, sku, quantity, unit_price, total_price, restocked_quantity, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.OrderID, item.ProductID, item.VariantID, item.LocationID, item.ProductName,
			item.VariantTitle, item.SKU, item.Quantity, item.UnitPrice, item.TotalPrice,
			item.RestockedQuantity, item.CreatedAt)
		if err != nil {
			util.Logger.Error("插入订单商品失败", zap.Error(err), zap.Int64("order_id", id))
			return fmt.Errorf("failed to insert order item: %w", err)
		}
		if item.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get order item ID: %w", err)
		}
	}

	util.Logger.Info("订单创建成功",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber))
	return nil
}

// generateOrderNumber 生成订单编号
// 格式: ORD-年份-4位序号，例如: ORD-2024-0001
func generateOrderNumber(createdAt time.Time, orderID int64) string {
	return fmt.Sprintf("ORD-%d-%04d", createdAt.Year(), orderID)
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	found, err := getOne(ctx, conn(ctx, r.db), &order, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if err != nil {
		util.Logger.Error("查询订单失败", zap.Error(err), zap.Int64("order_id", id))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &order, nil
}

func (r *OrderRepository) LockOrder(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	found, err := getOne(ctx, conn(ctx, r.db), &order,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`+forUpdate(r.db), id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &order, nil
}

func (r *OrderRepository) ListOrders(ctx context.Context, filter model.OrderFilter) ([]*model.Order, int, error) {
	var where []string
	var args []interface{}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.PaymentStatus != "" {
		where = append(where, "payment_status = ?")
		args = append(args, filter.PaymentStatus)
	}
	if filter.CustomerID != nil {
		where = append(where, "customer_id = ?")
		args = append(args, *filter.CustomerID)
	}
	if filter.Search != "" {
		where = append(where, "(order_number LIKE ? OR email LIKE ?)")
		like := "%" + filter.Search + "%"
		args = append(args, like, like)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	q := conn(ctx, r.db)
	var total int
	if err := sqlx.GetContext(ctx, q, &total, `SELECT COUNT(*) FROM orders`+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	limit, offset := pageBounds(filter.Page, filter.PageSize)
	var orders []*model.Order
	err := sqlx.SelectContext(ctx, q, &orders,
		`SELECT `+orderColumns+` FROM orders`+clause+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		util.Logger.Error("查询订单列表失败", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (r *OrderRepository) GetOrderItems(ctx context.Context, orderID int64) ([]*model.OrderItem, error) {
	var items []*model.OrderItem
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &items,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	return items, nil
}

// UpdateOrderStatus 仅当当前状态仍为 from 时更新
func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus, now time.Time) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`, to, now, id, from)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return mustAffect(res)
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id int64, status model.OrderPaymentStatus, now time.Time) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ?`, status, now, id)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}

func (r *OrderRepository) UpdateFulfillmentStatus(ctx context.Context, id int64, status model.FulfillmentStatus, now time.Time) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE orders SET fulfillment_status = ?, updated_at = ? WHERE id = ?`, status, now, id)
	if err != nil {
		return fmt.Errorf("failed to update fulfillment status: %w", err)
	}
	return nil
}

// AddRefundedAmount 累加退款金额，超出订单总额时不更新
func (r *OrderRepository) AddRefundedAmount(ctx context.Context, id int64, amount int64, now time.Time) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders SET refunded_amount = refunded_amount + ?, updated_at = ?
		WHERE id = ? AND refunded_amount + ? <= total_amount`,
		amount, now, id, amount)
	if err != nil {
		return fmt.Errorf("failed to add refunded amount: %w", err)
	}
	return mustAffect(res)
}

// AddItemRestocked 累加已回库数量，不能超过购买数量
func (r *OrderRepository) AddItemRestocked(ctx context.Context, itemID int64, quantity int64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE order_items SET restocked_quantity = restocked_quantity + ?
		WHERE id = ? AND restocked_quantity + ? <= quantity`,
		quantity, itemID, quantity)
	if err != nil {
		return fmt.Errorf("failed to update restocked quantity: %w", err)
	}
	return mustAffect(res)
}

func (r *OrderRepository) AppendHistory(ctx context.Context, entry *model.OrderHistory) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO order_history (order_id, field, from_status, to_status, note, is_internal, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.OrderID, entry.Field, entry.FromStatus, entry.ToStatus, entry.Note,
		entry.IsInternal, entry.ActorID, entry.CreatedAt)
	if err != nil {
		util.Logger.Error("写入订单时间线失败", zap.Error(err), zap.Int64("order_id", entry.OrderID))
		return fmt.Errorf("failed to append order history: %w", err)
	}
	entry.ID, err = res.LastInsertId()
	return err
}

func (r *OrderRepository) GetHistory(ctx context.Context, orderID int64) ([]*model.OrderHistory, error) {
	var entries []*model.OrderHistory
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &entries,
		`SELECT `+historyColumns+` FROM order_history WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order history: %w", err)
	}
	return entries, nil
}
