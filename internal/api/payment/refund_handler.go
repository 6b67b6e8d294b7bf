package payment

import (
	"commerce-backend/internal/api/request"
	"commerce-backend/internal/errors"
	"commerce-backend/internal/middleware"
	"commerce-backend/internal/service"
	"commerce-backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Refund 对一笔已收款的支付退款
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	var cmd service.RefundPaymentCommand
	if err := request.BindJSON(c, &cmd); err != nil {
		util.Logger.Info("无效的退款请求", zap.Int64("payment_id", id), zap.Error(err))
		errors.HandleError(c, err)
		return
	}
	cmd.PaymentID = id
	cmd.ActorID = middleware.ActorID(c)

	result, err := h.paymentService.Refund(c.Request.Context(), cmd)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{
		"refund": result.Refund,
		"order":  result.Order,
	})
}
