// Package sender 通知发送通道实现
package sender

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/odinlabs/claimportal/pkg/config"
)

// SMTPSender 基于 SMTP 的邮件发送器
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
	fromName string
}

// NewSMTPSender 创建 SMTP 邮件发送器
func NewSMTPSender(cfg config.NotifyConfig) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.FromAddress,
		fromName: cfg.FromName,
	}
}

// Send 发送邮件
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		s.fromName, s.from, to, subject, body))

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	addr := s.host + ":" + s.port

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", to, err)
	}
	return nil
}
