package discount

import (
	"commerce-backend/internal/api/request"
	"commerce-backend/internal/errors"
	"commerce-backend/internal/middleware"
	"commerce-backend/internal/model"
	"commerce-backend/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type DiscountHandler struct {
	discountService service.DiscountServiceInterface
}

func NewDiscountHandler(discountService service.DiscountServiceInterface) *DiscountHandler {
	return &DiscountHandler{discountService}
}

// Validate 结算页校验折扣码，校验不通过时 success 仍为 true，原因在 validation 中
func (h *DiscountHandler) Validate(c *gin.Context) {
	var query service.ValidateDiscountQuery
	if err := request.BindJSON(c, &query); err != nil {
		errors.HandleError(c, err)
		return
	}
	query.CustomerID = middleware.ActorID(c)

	result, err := h.discountService.Validate(c.Request.Context(), query)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"validation": result})
}

func (h *DiscountHandler) Create(c *gin.Context) {
	var cmd service.CreateDiscountCommand
	if err := request.BindJSON(c, &cmd); err != nil {
		errors.HandleError(c, err)
		return
	}
	cmd.ActorID = middleware.ActorID(c)

	d, err := h.discountService.CreateDiscount(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusCreated, gin.H{"discount": d})
}

func (h *DiscountHandler) Update(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	var cmd service.UpdateDiscountCommand
	if err := request.BindJSON(c, &cmd); err != nil {
		errors.HandleError(c, err)
		return
	}
	cmd.ID = id
	cmd.ActorID = middleware.ActorID(c)

	d, err := h.discountService.UpdateDiscount(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"discount": d})
}

func (h *DiscountHandler) Enable(c *gin.Context) {
	h.setEnabled(c, true)
}

func (h *DiscountHandler) Disable(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *DiscountHandler) setEnabled(c *gin.Context, enabled bool) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	d, err := h.discountService.SetEnabled(c.Request.Context(), id, enabled, middleware.ActorID(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"discount": d})
}

func (h *DiscountHandler) Get(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	d, err := h.discountService.GetDiscount(c.Request.Context(), id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"discount": d})
}

func (h *DiscountHandler) List(c *gin.Context) {
	page, pageSize := request.Page(c)
	discounts, total, err := h.discountService.ListDiscounts(c.Request.Context(), model.DiscountFilter{
		Status:   model.DiscountStatus(c.Query("status")),
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{
		"discounts": discounts,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *DiscountHandler) Usages(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	usages, err := h.discountService.ListUsages(c.Request.Context(), id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"usages": usages})
}

// VerifyUsage 核对使用计数与使用记录
func (h *DiscountHandler) VerifyUsage(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	check, err := h.discountService.VerifyUsageCounter(c.Request.Context(), id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"check": check})
}
