package interfaces

import (
	"commerce-backend/internal/model"
	"context"
)

type InventoryRepository interface {
	CreateItem(ctx context.Context, item *model.InventoryItem) error
	GetItemByID(ctx context.Context, id int64) (*model.InventoryItem, error)
	GetItemByVariantLocation(ctx context.Context, variantID, locationID int64) (*model.InventoryItem, error)
	LockItem(ctx context.Context, id int64) (*model.InventoryItem, error)
	ListItems(ctx context.Context, filter model.InventoryFilter) ([]*model.InventoryItem, int, error)
	// UpdateStock 写入新的数量与预留数量，数据库层同样拒绝负数
	UpdateStock(ctx context.Context, item *model.InventoryItem) error
	UpdateReorderSettings(ctx context.Context, id, reorderPoint, reorderQuantity int64) error
	CreateAdjustment(ctx context.Context, adj *model.InventoryAdjustment) error
	ListAdjustments(ctx context.Context, itemID int64) ([]*model.InventoryAdjustment, error)
}
