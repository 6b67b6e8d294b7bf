package service

import (
	"commerce-backend/config"
	"commerce-backend/internal/model"
	"commerce-backend/internal/util"
	"crypto/tls"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// EmailService 通过 SMTP 发送顾客通知
type EmailService struct {
	smtpHost    string
	smtpPort    int
	username    string
	password    string
	from        string
	frontendURL string
	enabled     bool
	send        func(to, subject, body string) error
}

var _ Notifier = (*EmailService)(nil)

func NewEmailService(cfg config.Config) *EmailService {
	s := &EmailService{
		smtpHost:    cfg.SMTPHost,
		smtpPort:    cfg.SMTPPort,
		username:    cfg.SMTPUsername,
		password:    cfg.SMTPPassword,
		from:        cfg.MailFrom,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		enabled:     cfg.SMTPEnabled(),
	}
	s.send = s.sendEmail
	return s
}

// RefundIssued 异步发送退款通知
func (s *EmailService) RefundIssued(order *model.Order, refund *model.Payment) {
	if !s.enabled {
		util.Logger.Info("未配置 SMTP，跳过退款通知", zap.Int64("order_id", order.ID))
		return
	}
	if order.Email == "" {
		return
	}
	subject, body := s.buildRefundEmail(order, refund)
	s.sendEmailAsync(order.Email, subject, body)
}

func (s *EmailService) buildRefundEmail(order *model.Order, refund *model.Payment) (string, string) {
	amount := -refund.Amount
	subject := fmt.Sprintf("订单 %s 退款通知", order.OrderNumber)
	reason := ""
	if refund.RefundReason != nil {
		reason = *refund.RefundReason
	}
	orderLink := fmt.Sprintf("%s/orders/%d", s.frontendURL, order.ID)

	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html lang="zh-CN">
	<head>
		<meta charset="UTF-8">
		<title>退款通知</title>
	</head>
	<body>
		<div class="container">
			<h2>您的退款已处理</h2>
			<p>订单编号：%s</p>
			<p>退款金额：%s</p>
			<p>累计退款：%s / %s</p>
			<p>退款原因：%s</p>
			<p>退款将按原支付方式退回，到账时间以支付渠道为准。</p>
			<p><a href="%s">查看订单详情</a></p>
			<p>此邮件由系统自动发送，请勿直接回复。</p>
		</div>
	</body>
	</html>
	`,
		html.EscapeString(order.OrderNumber),
		formatAmount(amount, order.Currency),
		formatAmount(order.RefundedAmount, order.Currency),
		formatAmount(order.TotalAmount, order.Currency),
		html.EscapeString(reason),
		orderLink)
	return subject, body
}

// formatAmount 把最小货币单位格式化为两位小数
func formatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, currency)
}

func (s *EmailService) sendEmailAsync(to, subject, body string) {
	go func() {
		if err := s.send(to, subject, body); err != nil {
			util.Logger.Error("异步发送邮件失败", zap.Error(err), zap.String("to", to))
		}
	}()
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	util.Logger.Info("开始发送邮件",
		zap.String("to", to),
		zap.String("subject", subject))

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := mail.NewDialer(s.smtpHost, s.smtpPort, s.username, s.password)
	d.Timeout = 20 * time.Second
	d.SSL = s.smtpPort == 465
	d.TLSConfig = &tls.Config{ServerName: s.smtpHost}

	if err := d.DialAndSend(m); err != nil {
		util.Logger.Error("发送邮件失败", zap.Error(err))
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	util.Logger.Info("邮件发送成功", zap.String("to", to))
	return nil
}
