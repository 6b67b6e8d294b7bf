package payment

import (
	"bytes"
	"commerce-backend/internal/model"
	"commerce-backend/internal/service"
	serviceErrors "commerce-backend/internal/service/errors"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockPaymentService 是 PaymentServiceInterface 的模拟实现
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Authorize(ctx context.Context, cmd service.PaymentActionCommand) (*model.Payment, error) {
	args := m.Called(cmd)
	p, _ := args.Get(0).(*model.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentService) Fail(ctx context.Context, cmd service.FailPaymentCommand) (*model.Payment, error) {
	args := m.Called(cmd)
	p, _ := args.Get(0).(*model.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentService) Capture(ctx context.Context, cmd service.PaymentActionCommand) (*model.Payment, error) {
	args := m.Called(cmd)
	p, _ := args.Get(0).(*model.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentService) Void(ctx context.Context, cmd service.VoidPaymentCommand) (*model.Payment, error) {
	args := m.Called(cmd)
	p, _ := args.Get(0).(*model.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentService) Refund(ctx context.Context, cmd service.RefundPaymentCommand) (*service.RefundResult, error) {
	args := m.Called(cmd)
	r, _ := args.Get(0).(*service.RefundResult)
	return r, args.Error(1)
}

var _ service.PaymentServiceInterface = (*MockPaymentService)(nil)

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// TestRefund 测试退款处理器
func TestRefund(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockService := new(MockPaymentService)
	handler := NewPaymentHandler(mockService)
	router := gin.New()
	router.POST("/payments/:id/refund", handler.Refund)

	// 缺少退款原因
	w := post(router, "/payments/1/refund", `{"amount":500}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 金额必须为正
	w = post(router, "/payments/1/refund", `{"amount":-5,"reason":"退货"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Refund", mock.Anything)

	mockService.On("Refund", mock.MatchedBy(func(cmd service.RefundPaymentCommand) bool {
		return cmd.PaymentID == 1 && cmd.Amount != nil && *cmd.Amount == 50000
	})).Return(nil, serviceErrors.New(serviceErrors.ErrConflict, "退款金额 50000 超过可退金额 20000"))
	w = post(router, "/payments/1/refund", `{"amount":50000,"reason":"多退"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "超过可退金额")

	refundOf := int64(2)
	mockService.On("Refund", mock.MatchedBy(func(cmd service.RefundPaymentCommand) bool {
		return cmd.PaymentID == 2 && cmd.Amount == nil && cmd.NotifyCustomer && len(cmd.RestockItems) == 1
	})).Return(&service.RefundResult{
		Refund: &model.Payment{ID: 10, ParentPaymentID: &refundOf, Amount: -3000},
		Order:  &model.Order{ID: 1, RefundedAmount: 3000, PaymentStatus: model.OrderPaymentRefunded},
	}, nil)
	w = post(router, "/payments/2/refund",
		`{"reason":"退货","notify_customer":true,"restock_items":[{"order_item_id":4,"quantity":1}]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"amount":-3000`)
	assert.Contains(t, w.Body.String(), `"payment_status":"refunded"`)
	mockService.AssertExpectations(t)
}

// TestCapture 测试收款处理器
func TestCapture(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockService := new(MockPaymentService)
	handler := NewPaymentHandler(mockService)
	router := gin.New()
	router.POST("/payments/:id/capture", handler.Capture)

	mockService.On("Capture", service.PaymentActionCommand{PaymentID: 3}).
		Return(nil, serviceErrors.New(serviceErrors.ErrConflict, "仅已授权的支付可以收款，当前状态: pending"))
	w := post(router, "/payments/3/capture", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	mockService.On("Capture", service.PaymentActionCommand{PaymentID: 4}).
		Return(nil, serviceErrors.New(serviceErrors.ErrThirdParty, "支付网关收款失败"))
	w = post(router, "/payments/4/capture", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = post(router, "/payments/0/capture", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertExpectations(t)
}
