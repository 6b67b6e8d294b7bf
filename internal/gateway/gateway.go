package gateway

import (
	"commerce-backend/internal/common"
	"commerce-backend/internal/util"
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrDeclined 网关明确拒绝了请求，重试没有意义
var ErrDeclined = errors.New("gateway declined the request")

// Charge 发往网关的金额请求
type Charge struct {
	OrderID       int64
	PaymentID     int64
	Amount        int64
	Currency      string
	PaymentMethod string
	// TransactionID 已有交易号（capture/void/refund 时使用）
	TransactionID string
}

// Result 网关返回
type Result struct {
	TransactionID string
}

// Gateway 外部支付网关
type Gateway interface {
	Name() string
	Authorize(ctx context.Context, charge Charge) (Result, error)
	Capture(ctx context.Context, charge Charge) (Result, error)
	Void(ctx context.Context, charge Charge) (Result, error)
	Refund(ctx context.Context, charge Charge) (Result, error)
}

// ManualGateway 线下/手工收款：所有操作直接成功，生成本地交易号
type ManualGateway struct{}

func NewManualGateway() *ManualGateway {
	return &ManualGateway{}
}

func (g *ManualGateway) Name() string { return "manual" }

func (g *ManualGateway) Authorize(ctx context.Context, charge Charge) (Result, error) {
	return g.result(ctx, charge)
}

func (g *ManualGateway) Capture(ctx context.Context, charge Charge) (Result, error) {
	return g.result(ctx, charge)
}

func (g *ManualGateway) Void(ctx context.Context, charge Charge) (Result, error) {
	return g.result(ctx, charge)
}

// Refund 退款总是生成新的交易号
func (g *ManualGateway) Refund(ctx context.Context, charge Charge) (Result, error) {
	charge.TransactionID = ""
	return g.result(ctx, charge)
}

func (g *ManualGateway) result(ctx context.Context, charge Charge) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if charge.TransactionID != "" {
		return Result{TransactionID: charge.TransactionID}, nil
	}
	return Result{TransactionID: "manual_" + uuid.NewString()}, nil
}

// RetryingGateway 对临时性失败做指数退避重试
type RetryingGateway struct {
	next   Gateway
	policy common.RetryPolicy
}

func NewRetryingGateway(next Gateway, policy common.RetryPolicy) *RetryingGateway {
	return &RetryingGateway{next: next, policy: policy}
}

func (g *RetryingGateway) Name() string { return g.next.Name() }

func (g *RetryingGateway) Authorize(ctx context.Context, charge Charge) (Result, error) {
	return g.do(ctx, "authorize", charge, g.next.Authorize)
}

func (g *RetryingGateway) Capture(ctx context.Context, charge Charge) (Result, error) {
	return g.do(ctx, "capture", charge, g.next.Capture)
}

func (g *RetryingGateway) Void(ctx context.Context, charge Charge) (Result, error) {
	return g.do(ctx, "void", charge, g.next.Void)
}

func (g *RetryingGateway) Refund(ctx context.Context, charge Charge) (Result, error) {
	return g.do(ctx, "refund", charge, g.next.Refund)
}

func (g *RetryingGateway) do(ctx context.Context, op string, charge Charge,
	call func(context.Context, Charge) (Result, error)) (Result, error) {
	var res Result
	attempt := 0
	err := common.WithRetry(ctx, g.policy, func(ctx context.Context) error {
		attempt++
		var err error
		res, err = call(ctx, charge)
		if err != nil {
			util.Logger.Warn("支付网关调用失败",
				zap.String("gateway", g.next.Name()),
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Int64("payment_id", charge.PaymentID),
				zap.Error(err))
		}
		return err
	})
	return res, err
}
