// Package ledgerrpc 封装外部钱包账本服务的 HTTP RPC 调用。
// 所有调用均为带 Basic Auth 的同步请求，非 200 或响应格式异常视为硬错误。
package ledgerrpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds 账本返回余额不足
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrMalformedResponse 响应体不符合预期格式
	ErrMalformedResponse = errors.New("ledger: malformed response")
)

var insufficientPattern = regexp.MustCompile(`(?i)insufficient`)

// Config 客户端配置
type Config struct {
	// RPC 网关地址，例如 https://wallet.example.org/api/blockchain
	Host    string
	Client  string
	Secret  string
	Timeout time.Duration
}

// Client 账本 RPC 客户端
type Client struct {
	cfg  Config
	http *http.Client
}

// New 创建账本 RPC 客户端
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// GetAddress 获取（必要时生成）账户的收款地址
func (c *Client) GetAddress(ctx context.Context, account string) (string, error) {
	body, err := c.call(ctx, "getaccountaddress", url.Values{"account": {account}})
	if err != nil {
		return "", err
	}
	address := strings.TrimSpace(body)
	if address == "" {
		return "", fmt.Errorf("%w: empty address", ErrMalformedResponse)
	}
	return address, nil
}

// Move 在账本内部账户之间划转资金
func (c *Client) Move(ctx context.Context, from, to string, amount decimal.Decimal) (bool, error) {
	body, err := c.call(ctx, "move", url.Values{
		"fromaccount": {from},
		"toaccount":   {to},
		"amount":      {amount.String()},
	})
	if err != nil {
		return false, err
	}
	switch strings.TrimSpace(body) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrMalformedResponse, body)
}

// SendFrom 从账本账户向外部地址付款，成功返回交易 ID。
// 余额不足返回 ErrInsufficientFunds；其余异常一律视为失败，
// 调用方不得盲目重试（首次调用可能已在服务端成功）。
func (c *Client) SendFrom(ctx context.Context, from, to string, amount decimal.Decimal) (string, error) {
	body, err := c.call(ctx, "sendfrom", url.Values{
		"fromaccount": {from},
		"toaccount":   {to},
		"amount":      {amount.String()},
	})
	if err != nil {
		return "", err
	}

	body = strings.TrimSpace(body)
	if insufficientPattern.MatchString(body) {
		return "", ErrInsufficientFunds
	}
	if len(body) != 64 {
		return "", fmt.Errorf("%w: unexpected txid %q", ErrMalformedResponse, body)
	}
	return body, nil
}

// GetBalance 查询地址当前余额
func (c *Client) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	body, err := c.call(ctx, "getbalance", url.Values{"address": {address}})
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := decimal.NewFromString(strings.TrimSpace(body))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: balance %q", ErrMalformedResponse, body)
	}
	return balance, nil
}

// VerifyMessage 校验地址对消息的签名
func (c *Client) VerifyMessage(ctx context.Context, address, signature, message string) (bool, error) {
	body, err := c.call(ctx, "verifymessage", url.Values{
		"address": {address},
		"signed":  {signature},
		"message": {message},
	})
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(body) == "true", nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (string, error) {
	endpoint := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.cfg.Host, "/"), method, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("ledger %s: %w", method, err)
	}
	req.SetBasicAuth(c.cfg.Client, c.cfg.Secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ledger %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ledger %s: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ledger %s: unexpected status %d", method, resp.StatusCode)
	}

	return string(data), nil
}
