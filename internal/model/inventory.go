package model

import "time"

// StockStatus 库存状态，仅由当前数量推导，不落库
type StockStatus string

const (
	StockOut  StockStatus = "out"
	StockLow  StockStatus = "low"
	StockGood StockStatus = "good"
)

// AdjustmentReason 库存增减的原因
type AdjustmentReason string

const (
	ReasonCorrection AdjustmentReason = "correction"
	ReasonReceived   AdjustmentReason = "received"
	ReasonReturned   AdjustmentReason = "returned"
	ReasonDamaged    AdjustmentReason = "damaged"
	ReasonLost       AdjustmentReason = "lost"
)

// Valid 判断调整原因是否合法
func (r AdjustmentReason) Valid() bool {
	switch r {
	case ReasonCorrection, ReasonReceived, ReasonReturned, ReasonDamaged, ReasonLost:
		return true
	}
	return false
}

// MovementKind 库存流水类型
type MovementKind string

const (
	MovementAdjustment MovementKind = "adjustment"
	MovementSet        MovementKind = "set"
	MovementReserve    MovementKind = "reserve"
	MovementRelease    MovementKind = "release"
	MovementCommit     MovementKind = "commit"
	MovementRestock    MovementKind = "restock"
)

// InventoryItem 某个规格在某个仓库的库存
type InventoryItem struct {
	ID               int64      `db:"id" json:"id"`
	VariantID        int64      `db:"variant_id" json:"variant_id"`
	LocationID       int64      `db:"location_id" json:"location_id"`
	SKU              string     `db:"sku" json:"sku"`
	Quantity         int64      `db:"quantity" json:"quantity"`
	ReservedQuantity int64      `db:"reserved_quantity" json:"reserved_quantity"`
	IncomingQuantity int64      `db:"incoming_quantity" json:"incoming_quantity"`
	ReorderPoint     int64      `db:"reorder_point" json:"reorder_point"`
	ReorderQuantity  int64      `db:"reorder_quantity" json:"reorder_quantity"`
	LastRestockedAt  *time.Time `db:"last_restocked_at" json:"last_restocked_at,omitempty"`
	LastSoldAt       *time.Time `db:"last_sold_at" json:"last_sold_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Available 可售数量
func (i *InventoryItem) Available() int64 {
	return i.Quantity - i.ReservedQuantity
}

// StockStatus 计算库存状态
func (i *InventoryItem) StockStatus() StockStatus {
	switch {
	case i.Quantity == 0:
		return StockOut
	case i.Quantity <= i.ReorderPoint:
		return StockLow
	default:
		return StockGood
	}
}

// InventoryItemView 带推导字段的库存视图
type InventoryItemView struct {
	*InventoryItem
	Available   int64       `json:"available"`
	StockStatus StockStatus `json:"stock_status"`
}

// View 返回带可售数量与库存状态的视图
func (i *InventoryItem) View() InventoryItemView {
	return InventoryItemView{
		InventoryItem: i,
		Available:     i.Available(),
		StockStatus:   i.StockStatus(),
	}
}

// InventoryAdjustment 库存流水（只追加）。
// reserve/release 的 Delta 为预留数量变化，其余类型为在库数量变化
type InventoryAdjustment struct {
	ID              int64        `db:"id" json:"id"`
	InventoryItemID int64        `db:"inventory_item_id" json:"inventory_item_id"`
	Kind            MovementKind `db:"kind" json:"kind"`
	Delta           int64        `db:"delta" json:"delta"`
	QuantityBefore  int64        `db:"quantity_before" json:"quantity_before"`
	QuantityAfter   int64        `db:"quantity_after" json:"quantity_after"`
	Reason          string       `db:"reason" json:"reason"`
	Note            string       `db:"note" json:"note"`
	OrderID         *int64       `db:"order_id" json:"order_id,omitempty"`
	ActorID         *int64       `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

// InventoryFilter 库存列表查询条件
type InventoryFilter struct {
	LocationID  *int64
	VariantID   *int64
	StockStatus StockStatus
	Page        int
	PageSize    int
}
