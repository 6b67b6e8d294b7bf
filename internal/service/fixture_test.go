package service

import (
	"commerce-backend/internal/gateway"
	"commerce-backend/internal/model"
	"commerce-backend/internal/repository/mysql"
	"commerce-backend/internal/storage"
	"commerce-backend/internal/testutil"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier 是 Notifier 的模拟实现
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) RefundIssued(order *model.Order, refund *model.Payment) {
	m.Called(order, refund)
}

// MockGateway 是 gateway.Gateway 的模拟实现
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) Authorize(ctx context.Context, charge gateway.Charge) (gateway.Result, error) {
	args := m.Called(ctx, charge)
	return args.Get(0).(gateway.Result), args.Error(1)
}

func (m *MockGateway) Capture(ctx context.Context, charge gateway.Charge) (gateway.Result, error) {
	args := m.Called(ctx, charge)
	return args.Get(0).(gateway.Result), args.Error(1)
}

func (m *MockGateway) Void(ctx context.Context, charge gateway.Charge) (gateway.Result, error) {
	args := m.Called(ctx, charge)
	return args.Get(0).(gateway.Result), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, charge gateway.Charge) (gateway.Result, error) {
	args := m.Called(ctx, charge)
	return args.Get(0).(gateway.Result), args.Error(1)
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db        *sqlx.DB
	ctx       context.Context
	orders    *OrderService
	payments  *PaymentService
	discounts *DiscountService
	inventory *InventoryService
	audit     *AuditService
	notifier  *MockNotifier
	exportDir string
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithGateway(t, gateway.NewManualGateway())
}

func newFixtureWithGateway(t *testing.T, gw gateway.Gateway) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	tx := mysql.NewTxManager(db)
	orderRepo := mysql.NewOrderRepository(db)
	paymentRepo := mysql.NewPaymentRepository(db)

	f := &fixture{db: db, ctx: context.Background(), notifier: new(MockNotifier), exportDir: dir}
	f.audit = NewAuditService(mysql.NewAuditRepository(db), store)
	f.discounts = NewDiscountService(tx, mysql.NewDiscountRepository(db), f.audit)
	f.inventory = NewInventoryService(tx, mysql.NewInventoryRepository(db), f.audit)
	f.payments = NewPaymentService(tx, paymentRepo, orderRepo, f.inventory, f.audit, gw, f.notifier)
	f.orders = NewOrderService(tx, orderRepo, paymentRepo, f.discounts, f.inventory, f.payments, f.audit)

	clock := func() time.Time { return fixedNow }
	f.audit.now = clock
	f.discounts.now = clock
	f.inventory.now = clock
	f.payments.now = clock
	f.orders.now = clock
	return f
}

func (f *fixture) stock(t *testing.T, variantID, quantity int64) *model.InventoryItemView {
	t.Helper()
	item, err := f.inventory.CreateItem(f.ctx, CreateInventoryItemCommand{
		VariantID:    variantID,
		LocationID:   1,
		SKU:          fmt.Sprintf("SKU-%d", variantID),
		Quantity:     quantity,
		ReorderPoint: 2,
	})
	require.NoError(t, err)
	return item
}

// placeOrder 以单个商品下单，customerID 为 0 时按访客下单
func (f *fixture) placeOrder(t *testing.T, customerID, variantID, quantity, unitPrice int64) *model.Order {
	t.Helper()
	cmd := CreateOrderCommand{
		Email:         "buyer@example.com",
		Currency:      "USD",
		PaymentMethod: "card",
		Items: []CheckoutItem{{
			ProductID:   100 + variantID,
			VariantID:   variantID,
			LocationID:  1,
			ProductName: "测试商品",
			Quantity:    quantity,
			UnitPrice:   unitPrice,
		}},
	}
	if customerID != 0 {
		cmd.CustomerID = &customerID
	}
	order, err := f.orders.CreateOrder(f.ctx, cmd)
	require.NoError(t, err)
	return order
}

// paidOrder 下单并完成授权与收款，返回订单与原支付ID
func (f *fixture) paidOrder(t *testing.T, variantID, quantity, unitPrice int64) (*model.Order, int64) {
	t.Helper()
	order := f.placeOrder(t, 7, variantID, quantity, unitPrice)
	paymentID := order.Payments[0].ID
	_, err := f.payments.Authorize(f.ctx, PaymentActionCommand{PaymentID: paymentID})
	require.NoError(t, err)
	_, err = f.payments.Capture(f.ctx, PaymentActionCommand{PaymentID: paymentID})
	require.NoError(t, err)
	return order, paymentID
}

func (f *fixture) countRows(t *testing.T, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.Get(&n, query, args...))
	return n
}
