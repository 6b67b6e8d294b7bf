package gateway

import (
	"commerce-backend/internal/common"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) Authorize(ctx context.Context, charge Charge) (Result, error) {
	args := m.Called(ctx, charge)
	return args.Get(0).(Result), args.Error(1)
}

func (m *MockGateway) Capture(ctx context.Context, charge Charge) (Result, error) {
	args := m.Called(ctx, charge)
	return args.Get(0).(Result), args.Error(1)
}

func (m *MockGateway) Void(ctx context.Context, charge Charge) (Result, error) {
	args := m.Called(ctx, charge)
	return args.Get(0).(Result), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, charge Charge) (Result, error) {
	args := m.Called(ctx, charge)
	return args.Get(0).(Result), args.Error(1)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Temporary() bool { return true }

func TestManualGateway_GeneratesTransactionID(t *testing.T) {
	g := NewManualGateway()

	res, err := g.Authorize(context.Background(), Charge{PaymentID: 1, Amount: 100})
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.TransactionID, "manual_"))

	captured, err := g.Capture(context.Background(), Charge{PaymentID: 1, TransactionID: res.TransactionID})
	assert.NoError(t, err)
	assert.Equal(t, res.TransactionID, captured.TransactionID)
}

func TestRetryingGateway_RetriesTemporaryFailure(t *testing.T) {
	next := new(MockGateway)
	charge := Charge{PaymentID: 7, Amount: 500}
	next.On("Capture", mock.Anything, charge).Return(Result{}, timeoutErr{}).Once()
	next.On("Capture", mock.Anything, charge).Return(Result{TransactionID: "tx_1"}, nil).Once()

	g := NewRetryingGateway(next, common.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond})
	res, err := g.Capture(context.Background(), charge)

	assert.NoError(t, err)
	assert.Equal(t, "tx_1", res.TransactionID)
	next.AssertNumberOfCalls(t, "Capture", 2)
}

func TestRetryingGateway_DoesNotRetryDecline(t *testing.T) {
	next := new(MockGateway)
	charge := Charge{PaymentID: 7, Amount: 500}
	next.On("Refund", mock.Anything, charge).Return(Result{}, ErrDeclined)

	g := NewRetryingGateway(next, common.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond})
	_, err := g.Refund(context.Background(), charge)

	assert.ErrorIs(t, err, ErrDeclined)
	next.AssertNumberOfCalls(t, "Refund", 1)
}
