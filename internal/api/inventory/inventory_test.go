package inventory

import (
	"bytes"
	"commerce-backend/internal/model"
	"commerce-backend/internal/service"
	serviceErrors "commerce-backend/internal/service/errors"
	"commerce-backend/internal/util"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockInventoryService 是 InventoryServiceInterface 的模拟实现
type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) view(args mock.Arguments) (*model.InventoryItemView, error) {
	v, _ := args.Get(0).(*model.InventoryItemView)
	return v, args.Error(1)
}

func (m *MockInventoryService) CreateItem(ctx context.Context, cmd service.CreateInventoryItemCommand) (*model.InventoryItemView, error) {
	return m.view(m.Called(cmd))
}

func (m *MockInventoryService) Adjust(ctx context.Context, cmd service.AdjustInventoryCommand) (*model.InventoryItemView, error) {
	return m.view(m.Called(cmd))
}

func (m *MockInventoryService) SetQuantity(ctx context.Context, cmd service.SetQuantityCommand) (*model.InventoryItemView, error) {
	return m.view(m.Called(cmd))
}

func (m *MockInventoryService) UpdateReorderSettings(ctx context.Context, cmd service.UpdateReorderSettingsCommand) (*model.InventoryItemView, error) {
	return m.view(m.Called(cmd))
}

func (m *MockInventoryService) GetItem(ctx context.Context, id int64) (*model.InventoryItemView, error) {
	return m.view(m.Called(id))
}

func (m *MockInventoryService) ListItems(ctx context.Context, filter model.InventoryFilter) ([]model.InventoryItemView, int, error) {
	args := m.Called(filter)
	items, _ := args.Get(0).([]model.InventoryItemView)
	return items, args.Int(1), args.Error(2)
}

func (m *MockInventoryService) ListAdjustments(ctx context.Context, itemID int64) ([]*model.InventoryAdjustment, error) {
	args := m.Called(itemID)
	adjs, _ := args.Get(0).([]*model.InventoryAdjustment)
	return adjs, args.Error(1)
}

var _ service.InventoryServiceInterface = (*MockInventoryService)(nil)

func setup(t *testing.T) (*gin.Engine, *MockInventoryService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		util.RegisterValidations(v)
	}
	mockService := new(MockInventoryService)
	handler := NewInventoryHandler(mockService)
	router := gin.New()
	router.GET("/inventory", handler.List)
	router.POST("/inventory/:id/adjust", handler.Adjust)
	return router, mockService
}

func TestList(t *testing.T) {
	router, mockService := setup(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inventory?stock_status=plenty", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.On("ListItems", mock.MatchedBy(func(f model.InventoryFilter) bool {
		return f.StockStatus == model.StockLow && f.LocationID != nil && *f.LocationID == 1
	})).Return([]model.InventoryItemView{}, 0, nil)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inventory?stock_status=low&location_id=1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestAdjust(t *testing.T) {
	router, mockService := setup(t)
	adjust := func(body string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(http.MethodPost, "/inventory/3/adjust", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := adjust(`{"delta":-1,"reason":"stolen"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Adjust", mock.Anything)

	mockService.On("Adjust", mock.MatchedBy(func(cmd service.AdjustInventoryCommand) bool {
		return cmd.ItemID == 3 && cmd.Delta == -5
	})).Return(nil, serviceErrors.New(serviceErrors.ErrConflict, "库存不能为负数"))
	w = adjust(`{"delta":-5,"reason":"damaged"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	mockService.AssertExpectations(t)
}
