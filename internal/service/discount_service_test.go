package service

import (
	"commerce-backend/internal/model"
	serviceErrors "commerce-backend/internal/service/errors"
	"commerce-backend/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSave10(t *testing.T, f *fixture) *model.Discount {
	t.Helper()
	d, err := f.discounts.CreateDiscount(f.ctx, CreateDiscountCommand{
		Code: "save10",
		DiscountRules: DiscountRules{
			Title:         "九折",
			Type:          model.DiscountPercentage,
			Value:         1000,
			MinimumAmount: testutil.Int64(5000),
		},
	})
	require.NoError(t, err)
	return d
}

func TestDiscount_Save10(t *testing.T) {
	f := newFixture(t)
	d := createSave10(t, f)
	assert.Equal(t, "SAVE10", d.Code)
	assert.Equal(t, model.DiscountActive, d.Status)

	usage, err := f.discounts.Apply(f.ctx, ApplyDiscountCommand{Code: "SAVE10", OrderID: 1, OrderAmount: 10000})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), usage.Amount)

	_, err = f.discounts.Apply(f.ctx, ApplyDiscountCommand{Code: "SAVE10", OrderID: 2, OrderAmount: 4000})
	require.Error(t, err)
	assert.True(t, serviceErrors.Is(err, serviceErrors.ErrConflict))
	assert.Contains(t, err.Error(), "5000")

	result, err := f.discounts.Validate(f.ctx, ValidateDiscountQuery{Code: "save10", OrderAmount: testutil.Int64(4000)})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, model.DiscountRejectMinimumAmount, result.Reason)

	check, err := f.discounts.VerifyUsageCounter(f.ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
	assert.Equal(t, int64(1), check.CurrentUsage)
}

func TestDiscount_UsageLimit(t *testing.T) {
	f := newFixture(t)
	d, err := f.discounts.CreateDiscount(f.ctx, CreateDiscountCommand{
		Code: "LIMIT2",
		DiscountRules: DiscountRules{
			Type:       model.DiscountFixedAmount,
			Value:      500,
			UsageLimit: testutil.Int64(2),
		},
	})
	require.NoError(t, err)

	for i := int64(1); i <= 2; i++ {
		_, err := f.discounts.Apply(f.ctx, ApplyDiscountCommand{Code: "LIMIT2", OrderID: i, OrderAmount: 3000})
		require.NoError(t, err)
	}

	_, err = f.discounts.Apply(f.ctx, ApplyDiscountCommand{Code: "LIMIT2", OrderID: 3, OrderAmount: 3000})
	require.Error(t, err)
	assert.True(t, serviceErrors.Is(err, serviceErrors.ErrConflict))

	check, err := f.discounts.VerifyUsageCounter(f.ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), check.CurrentUsage)
	assert.Equal(t, int64(2), check.LedgerCount)
	assert.True(t, check.Consistent)

	result, err := f.discounts.Validate(f.ctx, ValidateDiscountQuery{Code: "LIMIT2"})
	require.NoError(t, err)
	assert.Equal(t, model.DiscountRejectUsageLimit, result.Reason)

	_, err = f.discounts.UpdateDiscount(f.ctx, UpdateDiscountCommand{
		ID: d.ID,
		DiscountRules: DiscountRules{
			Type:       model.DiscountFixedAmount,
			Value:      500,
			UsageLimit: testutil.Int64(1),
		},
	})
	assert.True(t, serviceErrors.Is(err, serviceErrors.ErrConflict))
}

func TestDiscount_OncePerCustomer(t *testing.T) {
	f := newFixture(t)
	_, err := f.discounts.CreateDiscount(f.ctx, CreateDiscountCommand{
		Code: "WELCOME",
		DiscountRules: DiscountRules{
			Type:            model.DiscountFixedAmount,
			Value:           300,
			OncePerCustomer: true,
		},
	})
	require.NoError(t, err)

	alice, bob := testutil.Int64(1), testutil.Int64(2)
	_, err = f.discounts.Apply(f.ctx, ApplyDiscountCommand{Code: "WELCOME", CustomerID: alice, OrderID: 1, OrderAmount: 1000})
	require.NoError(t, err)

	_, err = f.discounts.Apply(f.ctx, ApplyDiscountCommand{Code: "WELCOME", CustomerID: alice, OrderID: 2, OrderAmount: 1000})
	assert.True(t, serviceErrors.Is(err, serviceErrors.ErrConflict))

	result, err := f.discounts.Validate(f.ctx, ValidateDiscountQuery{Code: "WELCOME", CustomerID: alice})
	require.NoError(t, err)
	assert.Equal(t, model.DiscountRejectOncePerCustomer, result.Reason)

	_, err = f.discounts.Apply(f.ctx, ApplyDiscountCommand{Code: "WELCOME", CustomerID: bob, OrderID: 3, OrderAmount: 1000})
	assert.NoError(t, err)
}

func TestDiscount_UsageLimitPerCustomer(t *testing.T) {
	f := newFixture(t)
	d, err := f.discounts.CreateDiscount(f.ctx, CreateDiscountCommand{
		Code: "TWICE",
		DiscountRules: DiscountRules{
			Type:                  model.DiscountFixedAmount,
			Value:                 200,
			UsageLimitPerCustomer: testutil.Int64(2),
		},
	})
	require.NoError(t, err)

	alice, bob := testutil.Int64(1), testutil.Int64(2)
	for i := int64(1); i <= 2; i++ {
		_, err := f.discounts.Apply(f.ctx, ApplyDiscountCommand{Code: "TWICE", CustomerID: alice, OrderID: i, OrderAmount: 1000})
		require.NoError(t, err)
	}

	_, err = f.discounts.Apply(f.ctx, ApplyDiscountCommand{Code: "TWICE", CustomerID: alice, OrderID: 3, OrderAmount: 1000})
	require.Error(t, err)
	assert.True(t, serviceErrors.Is(err, serviceErrors.ErrConflict))

	result, err := f.discounts.Validate(f.ctx, ValidateDiscountQuery{Code: "TWICE", CustomerID: alice})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, model.DiscountRejectCustomerLimit, result.Reason)

	_, err = f.discounts.Apply(f.ctx, ApplyDiscountCommand{Code: "TWICE", CustomerID: bob, OrderID: 4, OrderAmount: 1000})
	assert.NoError(t, err)
	_, err = f.discounts.Apply(f.ctx, ApplyDiscountCommand{Code: "TWICE", OrderID: 5, OrderAmount: 1000})
	assert.NoError(t, err)

	check, err := f.discounts.VerifyUsageCounter(f.ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), check.CurrentUsage)
	assert.True(t, check.Consistent)
}

func TestDiscount_StatusRejections(t *testing.T) {
	f := newFixture(t)
	future := fixedNow.Add(24 * time.Hour)
	_, err := f.discounts.CreateDiscount(f.ctx, CreateDiscountCommand{
		Code:          "SOON",
		DiscountRules: DiscountRules{Type: model.DiscountFixedAmount, Value: 100, StartsAt: &future},
	})
	require.NoError(t, err)
	off, err := f.discounts.CreateDiscount(f.ctx, CreateDiscountCommand{
		Code:          "OFF",
		DiscountRules: DiscountRules{Type: model.DiscountFixedAmount, Value: 100},
	})
	require.NoError(t, err)
	_, err = f.discounts.SetEnabled(f.ctx, off.ID, false, testutil.Int64(9))
	require.NoError(t, err)

	cases := []struct {
		code string
		want model.DiscountRejection
	}{
		{"SOON", model.DiscountRejectOutsideWindow},
		{"OFF", model.DiscountRejectInactive},
		{"MISSING", model.DiscountRejectNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			result, err := f.discounts.Validate(f.ctx, ValidateDiscountQuery{Code: tc.code})
			require.NoError(t, err)
			assert.False(t, result.Valid)
			assert.Equal(t, tc.want, result.Reason)
			assert.NotEmpty(t, result.Error)
		})
	}

	assert.Equal(t, 1, f.countRows(t, `SELECT COUNT(*) FROM audit_logs WHERE action = ? AND entity_id = ?`,
		model.AuditActionDiscountToggle, off.ID))

	scheduled, total, err := f.discounts.ListDiscounts(f.ctx, model.DiscountFilter{Status: model.DiscountScheduled})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "SOON", scheduled[0].Code)
}

func TestDiscount_CreateValidation(t *testing.T) {
	f := newFixture(t)
	createSave10(t, f)

	_, err := f.discounts.CreateDiscount(f.ctx, CreateDiscountCommand{
		Code:          "SAVE10",
		DiscountRules: DiscountRules{Type: model.DiscountFixedAmount, Value: 100},
	})
	assert.True(t, serviceErrors.Is(err, serviceErrors.ErrDuplicate))

	_, err = f.discounts.CreateDiscount(f.ctx, CreateDiscountCommand{
		Code:          "TOOMUCH",
		DiscountRules: DiscountRules{Type: model.DiscountPercentage, Value: 20000},
	})
	assert.True(t, serviceErrors.Is(err, serviceErrors.ErrInvalidInput))

	_, err = f.discounts.CreateDiscount(f.ctx, CreateDiscountCommand{
		Code:          "NOTYPE",
		DiscountRules: DiscountRules{Type: "bogus", Value: 1},
	})
	assert.True(t, serviceErrors.Is(err, serviceErrors.ErrInvalidInput))
}
