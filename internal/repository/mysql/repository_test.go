package mysql

import (
	"commerce-backend/internal/model"
	"commerce-backend/internal/repository/interfaces"
	"commerce-backend/internal/testutil"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func countAudit(t *testing.T, db *sqlx.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM audit_logs`))
	return n
}

func auditEntry(action string) *model.AuditLog {
	return &model.AuditLog{Action: action, EntityType: model.EntityOrder, EntityID: 1, CreatedAt: testNow}
}

func TestTxManager(t *testing.T) {
	db := testutil.NewDB(t)
	tx := NewTxManager(db)
	repo := NewAuditRepository(db)
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := tx.Transact(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.CreateAuditLog(ctx, auditEntry("a")))
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, countAudit(t, db))

	// 内层事务复用外层，外层失败时一起回滚
	err = tx.Transact(ctx, func(ctx context.Context) error {
		if err := tx.Transact(ctx, func(ctx context.Context) error {
			return repo.CreateAuditLog(ctx, auditEntry("inner"))
		}); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, countAudit(t, db))

	err = tx.Transact(ctx, func(ctx context.Context) error {
		return repo.CreateAuditLog(ctx, auditEntry("ok"))
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countAudit(t, db))
}

func createOrder(t *testing.T, repo *OrderRepository, total int64) *model.Order {
	t.Helper()
	order := &model.Order{
		Email:             "buyer@example.com",
		Currency:          "USD",
		SubtotalAmount:    total,
		TotalAmount:       total,
		Status:            model.OrderStatusPending,
		PaymentStatus:     model.OrderPaymentPending,
		FulfillmentStatus: model.FulfillmentUnfulfilled,
		CreatedAt:         testNow,
		UpdatedAt:         testNow,
		Items: []*model.OrderItem{{
			ProductID: 1, VariantID: 1, LocationID: 1, ProductName: "围巾",
			Quantity: 2, UnitPrice: total / 2, TotalPrice: total,
		}},
	}
	require.NoError(t, repo.CreateOrder(context.Background(), order))
	return order
}

func TestOrderRepository_Guards(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	order := createOrder(t, repo, 1000)

	assert.Equal(t, "ORD-2025-0001", order.OrderNumber)
	require.NotZero(t, order.Items[0].ID)

	require.NoError(t, repo.AddRefundedAmount(ctx, order.ID, 600, testNow))
	err := repo.AddRefundedAmount(ctx, order.ID, 500, testNow)
	assert.ErrorIs(t, err, interfaces.ErrConditionFailed)

	loaded, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), loaded.RefundedAmount)

	err = repo.UpdateOrderStatus(ctx, order.ID, model.OrderStatusConfirmed, model.OrderStatusShipped, testNow)
	assert.ErrorIs(t, err, interfaces.ErrConditionFailed)
	require.NoError(t, repo.UpdateOrderStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusConfirmed, testNow))

	itemID := order.Items[0].ID
	require.NoError(t, repo.AddItemRestocked(ctx, itemID, 1))
	require.NoError(t, repo.AddItemRestocked(ctx, itemID, 1))
	assert.ErrorIs(t, repo.AddItemRestocked(ctx, itemID, 1), interfaces.ErrConditionFailed)

	missing, err := repo.GetOrderByID(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPaymentRepository_Sums(t *testing.T) {
	db := testutil.NewDB(t)
	orders := NewOrderRepository(db)
	repo := NewPaymentRepository(db)
	ctx := context.Background()
	order := createOrder(t, orders, 20000)

	original := &model.Payment{
		OrderID: order.ID, Amount: 20000, Currency: "USD", Status: model.PaymentCaptured,
		Gateway: "manual", PaymentMethod: "card", CreatedAt: testNow, UpdatedAt: testNow,
	}
	require.NoError(t, repo.CreatePayment(ctx, original))
	for _, amount := range []int64{5000, 3000} {
		require.NoError(t, repo.CreatePayment(ctx, &model.Payment{
			OrderID: order.ID, ParentPaymentID: &original.ID, Amount: -amount, Currency: "USD",
			Status: model.PaymentRefunded, Gateway: "manual", PaymentMethod: "card",
			CreatedAt: testNow, UpdatedAt: testNow,
		}))
	}

	refunded, err := repo.SumRefunded(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), refunded)

	captured, err := repo.SumCaptured(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), captured)

	err = repo.UpdatePaymentStatus(ctx, &model.Payment{ID: original.ID, Status: model.PaymentCancelled, UpdatedAt: testNow},
		model.PaymentAuthorized)
	assert.ErrorIs(t, err, interfaces.ErrConditionFailed)
}

func TestDiscountRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewDiscountRepository(db)
	ctx := context.Background()
	limit := int64(1)

	newDiscount := func(code string, startsAt time.Time, status model.DiscountStatus) *model.Discount {
		d := &model.Discount{
			Code: code, Type: model.DiscountFixedAmount, Value: 100, Scope: model.DiscountScopeAll,
			UsageLimit: &limit, StartsAt: startsAt, Status: status, CreatedAt: testNow, UpdatedAt: testNow,
		}
		require.NoError(t, repo.CreateDiscount(ctx, d))
		return d
	}
	active := newDiscount("ACTIVE", testNow.Add(-time.Hour), model.DiscountActive)
	newDiscount("LATER", testNow.Add(time.Hour), model.DiscountActive)
	newDiscount("PAUSED", testNow.Add(-time.Hour), model.DiscountDisabled)

	require.NoError(t, repo.IncrementUsage(ctx, active.ID))
	assert.ErrorIs(t, repo.IncrementUsage(ctx, active.ID), interfaces.ErrConditionFailed)

	require.NoError(t, repo.ReplaceTargets(ctx, active.ID, []int64{3, 1}, []int64{9}))
	loaded, err := repo.GetDiscountByCode(ctx, "ACTIVE")
	require.NoError(t, err)
	require.NoError(t, repo.LoadTargets(ctx, loaded))
	assert.Equal(t, []int64{1, 3}, loaded.ProductIDs)
	assert.Equal(t, []int64{9}, loaded.CollectionIDs)
	assert.Equal(t, int64(1), loaded.CurrentUsage)

	tests := []struct {
		status model.DiscountStatus
		want   string
	}{
		{model.DiscountActive, "ACTIVE"},
		{model.DiscountScheduled, "LATER"},
		{model.DiscountDisabled, "PAUSED"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			list, total, err := repo.ListDiscounts(ctx, model.DiscountFilter{Status: tt.status, Now: testNow})
			require.NoError(t, err)
			require.Equal(t, 1, total)
			assert.Equal(t, tt.want, list[0].Code)
		})
	}

	missing, err := repo.GetDiscountByCode(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPageBounds(t *testing.T) {
	limit, offset := pageBounds(0, 0)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	limit, offset = pageBounds(3, 500)
	assert.Equal(t, 100, limit)
	assert.Equal(t, 200, offset)
}
