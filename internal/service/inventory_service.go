package service

import (
	"commerce-backend/internal/model"
	"commerce-backend/internal/repository/interfaces"
	serviceErrors "commerce-backend/internal/service/errors"
	"commerce-backend/internal/util"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type InventoryServiceInterface interface {
	CreateItem(ctx context.Context, cmd CreateInventoryItemCommand) (*model.InventoryItemView, error)
	Adjust(ctx context.Context, cmd AdjustInventoryCommand) (*model.InventoryItemView, error)
	SetQuantity(ctx context.Context, cmd SetQuantityCommand) (*model.InventoryItemView, error)
	UpdateReorderSettings(ctx context.Context, cmd UpdateReorderSettingsCommand) (*model.InventoryItemView, error)
	GetItem(ctx context.Context, id int64) (*model.InventoryItemView, error)
	ListItems(ctx context.Context, filter model.InventoryFilter) ([]model.InventoryItemView, int, error)
	ListAdjustments(ctx context.Context, itemID int64) ([]*model.InventoryAdjustment, error)
}

type InventoryService struct {
	tx            interfaces.Transactor
	inventoryRepo interfaces.InventoryRepository
	audit         *AuditService
	now           func() time.Time
}

var _ InventoryServiceInterface = (*InventoryService)(nil)

func NewInventoryService(tx interfaces.Transactor, inventoryRepo interfaces.InventoryRepository, audit *AuditService) *InventoryService {
	return &InventoryService{tx: tx, inventoryRepo: inventoryRepo, audit: audit, now: defaultNow}
}

type CreateInventoryItemCommand struct {
	VariantID       int64  `json:"variant_id" binding:"required,gt=0"`
	LocationID      int64  `json:"location_id" binding:"required,gt=0"`
	SKU             string `json:"sku" binding:"max=128"`
	Quantity        int64  `json:"quantity" binding:"gte=0"`
	ReorderPoint    int64  `json:"reorder_point" binding:"gte=0"`
	ReorderQuantity int64  `json:"reorder_quantity" binding:"gte=0"`
}

// AdjustInventoryCommand 按增量调整库存
type AdjustInventoryCommand struct {
	ItemID  int64                  `json:"-"`
	Delta   int64                  `json:"delta" binding:"required"`
	Reason  model.AdjustmentReason `json:"reason" binding:"required,adjust_reason"`
	Note    string                 `json:"note" binding:"max=500"`
	ActorID *int64                 `json:"-"`
}

// SetQuantityCommand 直接覆盖在库数量，用于盘点
type SetQuantityCommand struct {
	ItemID   int64  `json:"-"`
	Quantity *int64 `json:"quantity" binding:"required,gte=0"`
	Reason   string `json:"reason" binding:"required,max=255"`
	ActorID  *int64 `json:"-"`
}

// UpdateReorderSettingsCommand 只修改补货设置，不影响数量
type UpdateReorderSettingsCommand struct {
	ItemID          int64  `json:"-"`
	ReorderPoint    *int64 `json:"reorder_point" binding:"required,gte=0"`
	ReorderQuantity *int64 `json:"reorder_quantity" binding:"required,gte=0"`
}

// StockMovement 订单引起的库存变动
type StockMovement struct {
	VariantID  int64
	LocationID int64
	Quantity   int64
	OrderID    int64
	ActorID    *int64
}

func (s *InventoryService) CreateItem(ctx context.Context, cmd CreateInventoryItemCommand) (*model.InventoryItemView, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	now := s.now()
	item := &model.InventoryItem{
		VariantID:       cmd.VariantID,
		LocationID:      cmd.LocationID,
		SKU:             cmd.SKU,
		Quantity:        cmd.Quantity,
		ReorderPoint:    cmd.ReorderPoint,
		ReorderQuantity: cmd.ReorderQuantity,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		existing, err := s.inventoryRepo.GetItemByVariantLocation(ctx, cmd.VariantID, cmd.LocationID)
		if err != nil {
			return err
		}
		if existing != nil {
			return serviceErrors.New(serviceErrors.ErrDuplicate, "该规格在此仓库已有库存记录")
		}
		return s.inventoryRepo.CreateItem(ctx, item)
	})
	if err != nil {
		return nil, asServiceError(err, "创建库存记录失败")
	}
	view := item.View()
	return &view, nil
}

// Adjust 按增量调整库存，结果为负时拒绝且不做任何修改
func (s *InventoryService) Adjust(ctx context.Context, cmd AdjustInventoryCommand) (*model.InventoryItemView, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	var item *model.InventoryItem
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.lockItem(ctx, cmd.ItemID)
		if err != nil {
			return err
		}
		before := item.Quantity
		after := before + cmd.Delta
		if after < 0 {
			return conflict("调整后库存为 %d，库存不能为负数", after)
		}
		now := s.now()
		item.Quantity = after
		item.UpdatedAt = now
		if cmd.Reason == model.ReasonReceived && cmd.Delta > 0 {
			item.LastRestockedAt = &now
		}
		if err := s.inventoryRepo.UpdateStock(ctx, item); err != nil {
			return err
		}
		adj := &model.InventoryAdjustment{
			InventoryItemID: item.ID,
			Kind:            model.MovementAdjustment,
			Delta:           cmd.Delta,
			QuantityBefore:  before,
			QuantityAfter:   after,
			Reason:          string(cmd.Reason),
			Note:            cmd.Note,
			ActorID:         cmd.ActorID,
			CreatedAt:       now,
		}
		if err := s.inventoryRepo.CreateAdjustment(ctx, adj); err != nil {
			return err
		}
		return s.audit.Record(ctx, cmd.ActorID, model.AuditActionInventoryAdj, model.EntityInventoryItem, item.ID,
			model.AuditDetails{"delta": cmd.Delta, "reason": string(cmd.Reason), "quantity_before": before, "quantity_after": after})
	})
	if err != nil {
		util.Logger.Warn("库存调整失败", zap.Int64("inventory_item_id", cmd.ItemID), zap.Int64("delta", cmd.Delta), zap.Error(err))
		return nil, asServiceError(err, "库存调整失败")
	}

	util.Logger.Info("库存调整成功",
		zap.Int64("inventory_item_id", item.ID),
		zap.Int64("quantity", item.Quantity),
		util.Actor(cmd.ActorID))
	view := item.View()
	return &view, nil
}

// SetQuantity 覆盖在库数量
func (s *InventoryService) SetQuantity(ctx context.Context, cmd SetQuantityCommand) (*model.InventoryItemView, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	var item *model.InventoryItem
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.lockItem(ctx, cmd.ItemID)
		if err != nil {
			return err
		}
		before := item.Quantity
		now := s.now()
		item.Quantity = *cmd.Quantity
		item.UpdatedAt = now
		if err := s.inventoryRepo.UpdateStock(ctx, item); err != nil {
			return err
		}
		adj := &model.InventoryAdjustment{
			InventoryItemID: item.ID,
			Kind:            model.MovementSet,
			Delta:           item.Quantity - before,
			QuantityBefore:  before,
			QuantityAfter:   item.Quantity,
			Reason:          cmd.Reason,
			ActorID:         cmd.ActorID,
			CreatedAt:       now,
		}
		if err := s.inventoryRepo.CreateAdjustment(ctx, adj); err != nil {
			return err
		}
		return s.audit.Record(ctx, cmd.ActorID, model.AuditActionInventorySet, model.EntityInventoryItem, item.ID,
			model.AuditDetails{"reason": cmd.Reason, "quantity_before": before, "quantity_after": item.Quantity})
	})
	if err != nil {
		return nil, asServiceError(err, "设置库存数量失败")
	}
	view := item.View()
	return &view, nil
}

func (s *InventoryService) UpdateReorderSettings(ctx context.Context, cmd UpdateReorderSettingsCommand) (*model.InventoryItemView, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	var item *model.InventoryItem
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.lockItem(ctx, cmd.ItemID)
		if err != nil {
			return err
		}
		if err := s.inventoryRepo.UpdateReorderSettings(ctx, item.ID, *cmd.ReorderPoint, *cmd.ReorderQuantity); err != nil {
			return err
		}
		item.ReorderPoint = *cmd.ReorderPoint
		item.ReorderQuantity = *cmd.ReorderQuantity
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "更新补货设置失败")
	}
	view := item.View()
	return &view, nil
}

// Reserve 下单时预留库存，可售数量不足时拒绝
func (s *InventoryService) Reserve(ctx context.Context, m StockMovement) error {
	return s.move(ctx, m, model.MovementReserve, func(item *model.InventoryItem, now time.Time) (int64, error) {
		if item.Available() < m.Quantity {
			return 0, conflict("库存不足：%s 可售 %d，需要 %d", item.SKU, item.Available(), m.Quantity)
		}
		item.ReservedQuantity += m.Quantity
		return m.Quantity, nil
	})
}

// Release 释放预留
func (s *InventoryService) Release(ctx context.Context, m StockMovement) error {
	return s.move(ctx, m, model.MovementRelease, func(item *model.InventoryItem, now time.Time) (int64, error) {
		qty := m.Quantity
		if qty > item.ReservedQuantity {
			qty = item.ReservedQuantity
		}
		item.ReservedQuantity -= qty
		return -qty, nil
	})
}

// Commit 发货出库，同时扣减在库数量与预留数量
func (s *InventoryService) Commit(ctx context.Context, m StockMovement) error {
	return s.move(ctx, m, model.MovementCommit, func(item *model.InventoryItem, now time.Time) (int64, error) {
		if item.Quantity < m.Quantity {
			return 0, conflict("库存不足：%s 在库 %d，需要出库 %d", item.SKU, item.Quantity, m.Quantity)
		}
		item.Quantity -= m.Quantity
		item.ReservedQuantity -= m.Quantity
		if item.ReservedQuantity < 0 {
			item.ReservedQuantity = 0
		}
		item.LastSoldAt = &now
		return -m.Quantity, nil
	})
}

// Restock 退货回库
func (s *InventoryService) Restock(ctx context.Context, m StockMovement) error {
	return s.move(ctx, m, model.MovementRestock, func(item *model.InventoryItem, now time.Time) (int64, error) {
		item.Quantity += m.Quantity
		item.LastRestockedAt = &now
		return m.Quantity, nil
	})
}

func (s *InventoryService) move(ctx context.Context, m StockMovement, kind model.MovementKind,
	apply func(item *model.InventoryItem, now time.Time) (int64, error)) error {
	if m.Quantity <= 0 {
		return serviceErrors.New(serviceErrors.ErrInvalidInput, "数量必须大于 0")
	}
	return s.tx.Transact(ctx, func(ctx context.Context) error {
		item, err := s.inventoryRepo.GetItemByVariantLocation(ctx, m.VariantID, m.LocationID)
		if err != nil {
			return err
		}
		if item == nil {
			return notFound("商品库存不存在")
		}
		now := s.now()
		before := item.Quantity
		delta, err := apply(item, now)
		if err != nil {
			return err
		}
		item.UpdatedAt = now
		if err := s.inventoryRepo.UpdateStock(ctx, item); err != nil {
			if errors.Is(err, interfaces.ErrConditionFailed) {
				return conflict("库存不能为负数")
			}
			return err
		}
		orderID := m.OrderID
		return s.inventoryRepo.CreateAdjustment(ctx, &model.InventoryAdjustment{
			InventoryItemID: item.ID,
			Kind:            kind,
			Delta:           delta,
			QuantityBefore:  before,
			QuantityAfter:   item.Quantity,
			Reason:          string(kind),
			OrderID:         &orderID,
			ActorID:         m.ActorID,
			CreatedAt:       now,
		})
	})
}

func (s *InventoryService) lockItem(ctx context.Context, id int64) (*model.InventoryItem, error) {
	item, err := s.inventoryRepo.LockItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, notFound("库存记录不存在")
	}
	return item, nil
}

func (s *InventoryService) GetItem(ctx context.Context, id int64) (*model.InventoryItemView, error) {
	item, err := s.inventoryRepo.GetItemByID(ctx, id)
	if err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "查询库存失败", err)
	}
	if item == nil {
		return nil, notFound("库存记录不存在")
	}
	view := item.View()
	return &view, nil
}

func (s *InventoryService) ListItems(ctx context.Context, filter model.InventoryFilter) ([]model.InventoryItemView, int, error) {
	items, total, err := s.inventoryRepo.ListItems(ctx, filter)
	if err != nil {
		return nil, 0, serviceErrors.Wrap(serviceErrors.ErrDatabase, "获取库存列表失败", err)
	}
	views := make([]model.InventoryItemView, 0, len(items))
	for _, item := range items {
		views = append(views, item.View())
	}
	return views, total, nil
}

func (s *InventoryService) ListAdjustments(ctx context.Context, itemID int64) ([]*model.InventoryAdjustment, error) {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	adjs, err := s.inventoryRepo.ListAdjustments(ctx, itemID)
	if err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "获取库存流水失败", err)
	}
	return adjs, nil
}
