package service

import (
	"commerce-backend/config"
	"commerce-backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refundFixture() (*model.Order, *model.Payment) {
	reason := "商品<破损>"
	order := &model.Order{
		ID:             42,
		OrderNumber:    "ORD20250601000042",
		Email:          "buyer@example.com",
		Currency:       "USD",
		TotalAmount:    20000,
		RefundedAmount: 5000,
	}
	refund := &model.Payment{Amount: -5000, RefundReason: &reason}
	return order, refund
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "50.00 USD", formatAmount(5000, "USD"))
	assert.Equal(t, "0.05 EUR", formatAmount(5, "EUR"))
	assert.Equal(t, "-12.34 CNY", formatAmount(-1234, "CNY"))
}

func TestBuildRefundEmail(t *testing.T) {
	s := NewEmailService(config.Config{FrontendURL: "https://shop.example.com/"})
	order, refund := refundFixture()

	subject, body := s.buildRefundEmail(order, refund)
	assert.Equal(t, "订单 ORD20250601000042 退款通知", subject)
	assert.Contains(t, body, "退款金额：50.00 USD")
	assert.Contains(t, body, "累计退款：50.00 USD / 200.00 USD")
	assert.Contains(t, body, "商品&lt;破损&gt;")
	assert.Contains(t, body, `href="https://shop.example.com/orders/42"`)
}

func TestRefundIssued_SkipsWithoutSMTP(t *testing.T) {
	s := NewEmailService(config.Config{})
	s.send = func(to, subject, body string) error {
		t.Fatal("send should not be called")
		return nil
	}
	order, refund := refundFixture()
	s.RefundIssued(order, refund)
}

func TestRefundIssued_SendsAsync(t *testing.T) {
	s := NewEmailService(config.Config{SMTPHost: "smtp.example.com", SMTPPort: 465, SMTPUsername: "shop"})
	sent := make(chan string, 1)
	s.send = func(to, subject, body string) error {
		sent <- to
		return nil
	}
	order, refund := refundFixture()
	s.RefundIssued(order, refund)

	select {
	case to := <-sent:
		assert.Equal(t, "buyer@example.com", to)
	case <-time.After(time.Second):
		require.FailNow(t, "refund email was not sent")
	}
}
