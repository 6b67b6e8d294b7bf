package audit

import (
	"bytes"
	"commerce-backend/internal/model"
	"commerce-backend/internal/service"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockAuditService 是 AuditServiceInterface 的模拟实现
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, int, error) {
	args := m.Called(filter)
	logs, _ := args.Get(0).([]*model.AuditLog)
	return logs, args.Int(1), args.Error(2)
}

func (m *MockAuditService) Export(ctx context.Context, query service.ExportAuditQuery) (*service.ExportResult, error) {
	args := m.Called(query)
	r, _ := args.Get(0).(*service.ExportResult)
	return r, args.Error(1)
}

var _ service.AuditServiceInterface = (*MockAuditService)(nil)

func TestList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockService := new(MockAuditService)
	handler := NewAuditHandler(mockService)
	router := gin.New()
	router.GET("/audit-logs", handler.List)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit-logs?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mockService.On("List", mock.MatchedBy(func(f model.AuditFilter) bool {
		return f.Action == model.AuditActionRefund && f.From != nil && f.From.Equal(from) && f.Page == 2
	})).Return([]*model.AuditLog{{ID: 1, Action: model.AuditActionRefund}}, 21, nil)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/audit-logs?action=payment.refund&from=2025-06-01T08:00:00%2B08:00&page=2", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":21`)
	mockService.AssertExpectations(t)
}

func TestExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockService := new(MockAuditService)
	handler := NewAuditHandler(mockService)
	router := gin.New()
	router.POST("/audit-logs/export", handler.Export)

	post := func(body string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(http.MethodPost, "/audit-logs/export", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := post(`{"from":"2025-06-02T00:00:00Z","to":"2025-06-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Export", mock.Anything)

	mockService.On("Export", mock.AnythingOfType("service.ExportAuditQuery")).
		Return(&service.ExportResult{Location: "audit/audit_20250601_20250602_1.csv", Count: 3}, nil)
	w = post(`{"from":"2025-06-01T00:00:00Z","to":"2025-06-02T00:00:00Z"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"count":3`)
	mockService.AssertExpectations(t)
}
