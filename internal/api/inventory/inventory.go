package inventory

import (
	"commerce-backend/internal/api/request"
	"commerce-backend/internal/errors"
	"commerce-backend/internal/middleware"
	"commerce-backend/internal/model"
	"commerce-backend/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryServiceInterface
}

func NewInventoryHandler(inventoryService service.InventoryServiceInterface) *InventoryHandler {
	return &InventoryHandler{inventoryService}
}

// List 支持 stock_status=out|low|good 过滤
func (h *InventoryHandler) List(c *gin.Context) {
	page, pageSize := request.Page(c)
	locationID, err := request.QueryInt64(c, "location_id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	variantID, err := request.QueryInt64(c, "variant_id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	status := model.StockStatus(c.Query("stock_status"))
	switch status {
	case "", model.StockOut, model.StockLow, model.StockGood:
	default:
		errors.HandleError(c, errors.New(errors.ErrBadRequest, "无效的库存状态"))
		return
	}

	items, total, err := h.inventoryService.ListItems(c.Request.Context(), model.InventoryFilter{
		LocationID:  locationID,
		VariantID:   variantID,
		StockStatus: status,
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *InventoryHandler) Get(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	item, err := h.inventoryService.GetItem(c.Request.Context(), id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"item": item})
}

func (h *InventoryHandler) Create(c *gin.Context) {
	var cmd service.CreateInventoryItemCommand
	if err := request.BindJSON(c, &cmd); err != nil {
		errors.HandleError(c, err)
		return
	}
	item, err := h.inventoryService.CreateItem(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusCreated, gin.H{"item": item})
}

func (h *InventoryHandler) Adjust(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	var cmd service.AdjustInventoryCommand
	if err := request.BindJSON(c, &cmd); err != nil {
		errors.HandleError(c, err)
		return
	}
	cmd.ItemID = id
	cmd.ActorID = middleware.ActorID(c)

	item, err := h.inventoryService.Adjust(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"item": item})
}

func (h *InventoryHandler) SetQuantity(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	var cmd service.SetQuantityCommand
	if err := request.BindJSON(c, &cmd); err != nil {
		errors.HandleError(c, err)
		return
	}
	cmd.ItemID = id
	cmd.ActorID = middleware.ActorID(c)

	item, err := h.inventoryService.SetQuantity(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"item": item})
}

func (h *InventoryHandler) UpdateReorderSettings(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	var cmd service.UpdateReorderSettingsCommand
	if err := request.BindJSON(c, &cmd); err != nil {
		errors.HandleError(c, err)
		return
	}
	cmd.ItemID = id

	item, err := h.inventoryService.UpdateReorderSettings(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"item": item})
}

func (h *InventoryHandler) Adjustments(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	adjs, err := h.inventoryService.ListAdjustments(c.Request.Context(), id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"adjustments": adjs})
}
