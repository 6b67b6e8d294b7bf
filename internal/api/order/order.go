package order

import (
	"commerce-backend/internal/api/request"
	"commerce-backend/internal/errors"
	"commerce-backend/internal/middleware"
	"commerce-backend/internal/model"
	"commerce-backend/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OrderHandler 结算与订单相关接口
type OrderHandler struct {
	orderService service.OrderServiceInterface
}

func NewOrderHandler(orderService service.OrderServiceInterface) *OrderHandler {
	return &OrderHandler{orderService}
}

// Checkout 完成结算并创建订单，访客也可下单
func (h *OrderHandler) Checkout(c *gin.Context) {
	var cmd service.CreateOrderCommand
	if err := request.BindJSON(c, &cmd); err != nil {
		errors.HandleError(c, err)
		return
	}
	cmd.CustomerID = middleware.ActorID(c)

	order, err := h.orderService.CreateOrder(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusCreated, gin.H{"order": order})
}

// GetMyOrder 顾客查看自己的订单
func (h *OrderHandler) GetMyOrder(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	order, err := h.orderService.GetOrderForCustomer(c.Request.Context(), id, *middleware.ActorID(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"order": order})
}

// ListMyOrders 顾客的订单列表
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	page, pageSize := request.Page(c)
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), model.OrderFilter{
		CustomerID: middleware.ActorID(c),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{
		"orders":    orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// 后台订单管理

func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, pageSize := request.Page(c)
	customerID, err := request.QueryInt64(c, "customer_id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), model.OrderFilter{
		Status:        model.OrderStatus(c.Query("status")),
		PaymentStatus: model.OrderPaymentStatus(c.Query("payment_status")),
		CustomerID:    customerID,
		Search:        c.Query("search"),
		Page:          page,
		PageSize:      pageSize,
	})
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{
		"orders":    orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"order": order})
}

func (h *OrderHandler) GetTimeline(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	history, err := h.orderService.GetTimeline(c.Request.Context(), id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"history": history})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	var cmd service.UpdateOrderStatusCommand
	if err := request.BindJSON(c, &cmd); err != nil {
		errors.HandleError(c, err)
		return
	}
	cmd.OrderID = id
	cmd.ActorID = middleware.ActorID(c)

	order, err := h.orderService.UpdateStatus(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"order": order})
}

func (h *OrderHandler) AddNote(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	var cmd service.AddOrderNoteCommand
	if err := request.BindJSON(c, &cmd); err != nil {
		errors.HandleError(c, err)
		return
	}
	cmd.OrderID = id
	cmd.ActorID = middleware.ActorID(c)

	entry, err := h.orderService.AddNote(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusCreated, gin.H{"entry": entry})
}

func (h *OrderHandler) Fulfill(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	var cmd service.FulfillOrderCommand
	if c.Request.ContentLength > 0 {
		if err := request.BindJSON(c, &cmd); err != nil {
			errors.HandleError(c, err)
			return
		}
	}
	cmd.OrderID = id
	cmd.ActorID = middleware.ActorID(c)

	order, err := h.orderService.Fulfill(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"order": order})
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	var cmd service.CancelOrderCommand
	if err := request.BindJSON(c, &cmd); err != nil {
		errors.HandleError(c, err)
		return
	}
	cmd.OrderID = id
	cmd.ActorID = middleware.ActorID(c)

	order, err := h.orderService.Cancel(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"order": order})
}
