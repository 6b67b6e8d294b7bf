package payment

import (
	"commerce-backend/internal/api/request"
	"commerce-backend/internal/errors"
	"commerce-backend/internal/middleware"
	"commerce-backend/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PaymentHandler 支付流水操作，支付网关回调也调用这些接口
type PaymentHandler struct {
	paymentService service.PaymentServiceInterface
}

func NewPaymentHandler(paymentService service.PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{paymentService}
}

func (h *PaymentHandler) Authorize(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	payment, err := h.paymentService.Authorize(c.Request.Context(), service.PaymentActionCommand{
		PaymentID: id,
		ActorID:   middleware.ActorID(c),
	})
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"payment": payment})
}

func (h *PaymentHandler) Fail(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	var cmd service.FailPaymentCommand
	if err := request.BindJSON(c, &cmd); err != nil {
		errors.HandleError(c, err)
		return
	}
	cmd.PaymentID = id
	cmd.ActorID = middleware.ActorID(c)

	payment, err := h.paymentService.Fail(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"payment": payment})
}

func (h *PaymentHandler) Capture(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	payment, err := h.paymentService.Capture(c.Request.Context(), service.PaymentActionCommand{
		PaymentID: id,
		ActorID:   middleware.ActorID(c),
	})
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"payment": payment})
}

func (h *PaymentHandler) Void(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	var cmd service.VoidPaymentCommand
	if err := request.BindJSON(c, &cmd); err != nil {
		errors.HandleError(c, err)
		return
	}
	cmd.PaymentID = id
	cmd.ActorID = middleware.ActorID(c)

	payment, err := h.paymentService.Void(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"payment": payment})
}
