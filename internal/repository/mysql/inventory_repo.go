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

const inventoryColumns = `id, variant_id, location_id, sku, quantity, reserved_quantity, incoming_quantity,
	reorder_point, reorder_quantity, last_restocked_at, last_sold_at, created_at, updated_at`

const adjustmentColumns = `id, inventory_item_id, kind, delta, quantity_before, quantity_after,
	reason, note, order_id, actor_id, created_at`

type InventoryRepository struct {
	db *sqlx.DB
}

var _ interfaces.InventoryRepository = (*InventoryRepository)(nil)

func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db}
}

func (r *InventoryRepository) CreateItem(ctx context.Context, item *model.InventoryItem) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO inventory_items (variant_id, location_id, sku, quantity, reserved_quantity, incoming_quantity,
			reorder_point, reorder_quantity, last_restocked_at, last_sold_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.VariantID, item.LocationID, item.SKU, item.Quantity, item.ReservedQuantity, item.IncomingQuantity,
		item.ReorderPoint, item.ReorderQuantity, item.LastRestockedAt, item.LastSoldAt, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		util.Logger.Error("创建库存记录失败", zap.Error(err),
			zap.Int64("variant_id", item.VariantID), zap.Int64("location_id", item.LocationID))
		return fmt.Errorf("failed to create inventory item: %w", err)
	}
	item.ID, err = res.LastInsertId()
	return err
}

func (r *InventoryRepository) GetItemByID(ctx context.Context, id int64) (*model.InventoryItem, error) {
	return r.getBy(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE id = ?`, id)
}

func (r *InventoryRepository) GetItemByVariantLocation(ctx context.Context, variantID, locationID int64) (*model.InventoryItem, error) {
	return r.getBy(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE variant_id = ? AND location_id = ?`+forUpdate(r.db),
		variantID, locationID)
}

func (r *InventoryRepository) LockItem(ctx context.Context, id int64) (*model.InventoryItem, error) {
	return r.getBy(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE id = ?`+forUpdate(r.db), id)
}

func (r *InventoryRepository) getBy(ctx context.Context, query string, args ...interface{}) (*model.InventoryItem, error) {
	var item model.InventoryItem
	found, err := getOne(ctx, conn(ctx, r.db), &item, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &item, nil
}

func (r *InventoryRepository) ListItems(ctx context.Context, filter model.InventoryFilter) ([]*model.InventoryItem, int, error) {
	var where []string
	var args []interface{}
	if filter.LocationID != nil {
		where = append(where, "location_id = ?")
		args = append(args, *filter.LocationID)
	}
	if filter.VariantID != nil {
		where = append(where, "variant_id = ?")
		args = append(args, *filter.VariantID)
	}
	switch filter.StockStatus {
	case model.StockOut:
		where = append(where, "quantity = 0")
	case model.StockLow:
		where = append(where, "quantity > 0 AND quantity <= reorder_point")
	case model.StockGood:
		where = append(where, "quantity > reorder_point")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	q := conn(ctx, r.db)
	var total int
	if err := sqlx.GetContext(ctx, q, &total, `SELECT COUNT(*) FROM inventory_items`+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count inventory items: %w", err)
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)
	var items []*model.InventoryItem
	err := sqlx.SelectContext(ctx, q, &items,
		`SELECT `+inventoryColumns+` FROM inventory_items`+clause+` ORDER BY id LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory items: %w", err)
	}
	return items, total, nil
}

// UpdateStock 写入数量相关字段。数量为负时不更新（表上也有 CHECK 约束）
func (r *InventoryRepository) UpdateStock(ctx context.Context, item *model.InventoryItem) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE inventory_items SET quantity = ?, reserved_quantity = ?, last_restocked_at = ?,
			last_sold_at = ?, updated_at = ?
		WHERE id = ? AND ? >= 0 AND ? >= 0`,
		item.Quantity, item.ReservedQuantity, item.LastRestockedAt, item.LastSoldAt, item.UpdatedAt,
		item.ID, item.Quantity, item.ReservedQuantity)
	if err != nil {
		util.Logger.Error("更新库存失败", zap.Error(err), zap.Int64("inventory_item_id", item.ID))
		return fmt.Errorf("failed to update stock: %w", err)
	}
	return mustAffect(res)
}

func (r *InventoryRepository) UpdateReorderSettings(ctx context.Context, id, reorderPoint, reorderQuantity int64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE inventory_items SET reorder_point = ?, reorder_quantity = ? WHERE id = ?`,
		reorderPoint, reorderQuantity, id)
	if err != nil {
		return fmt.Errorf("failed to update reorder settings: %w", err)
	}
	return mustAffect(res)
}

func (r *InventoryRepository) CreateAdjustment(ctx context.Context, adj *model.InventoryAdjustment) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO inventory_adjustments (inventory_item_id, kind, delta, quantity_before, quantity_after,
			reason, note, order_id, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		adj.InventoryItemID, adj.Kind, adj.Delta, adj.QuantityBefore, adj.QuantityAfter,
		adj.Reason, adj.Note, adj.OrderID, adj.ActorID, adj.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create inventory adjustment: %w", err)
	}
	adj.ID, err = res.LastInsertId()
	return err
}

func (r *InventoryRepository) ListAdjustments(ctx context.Context, itemID int64) ([]*model.InventoryAdjustment, error) {
	var adjs []*model.InventoryAdjustment
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &adjs,
		`SELECT `+adjustmentColumns+` FROM inventory_adjustments WHERE inventory_item_id = ? ORDER BY id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory adjustments: %w", err)
	}
	return adjs, nil
}
