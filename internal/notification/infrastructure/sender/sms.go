package sender

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/odinlabs/claimportal/pkg/config"
)

// SMSGatewaySender 通过 HTTP 短信网关发送短信
type SMSGatewaySender struct {
	gateway string
	key     string
	secret  string
	client  *http.Client
}

// NewSMSGatewaySender 创建短信网关发送器
func NewSMSGatewaySender(cfg config.NotifyConfig) *SMSGatewaySender {
	return &SMSGatewaySender{
		gateway: cfg.SMSGateway,
		key:     cfg.SMSKey,
		secret:  cfg.SMSSecret,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Send 发送短信
func (s *SMSGatewaySender) Send(ctx context.Context, phone, text string) error {
	form := url.Values{}
	form.Set("api_key", s.key)
	form.Set("api_secret", s.secret)
	form.Set("to", phone)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gateway,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
