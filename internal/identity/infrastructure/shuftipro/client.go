// Package shuftipro 身份核验服务商的 HTTP 客户端
package shuftipro

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/odinlabs/claimportal/internal/identity/domain"
)

// Client 服务商客户端。提交为表单编码的 POST，签名是所有字段值
// 按键名排序拼接共享密钥后的 SHA-256。
type Client struct {
	apiHost   string
	clientKey string
	secretKey string
	http      *http.Client
}

// Config 客户端配置
type Config struct {
	APIHost   string
	ClientKey string
	SecretKey string
	Timeout   time.Duration
}

// New 创建服务商客户端
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		apiHost:   strings.TrimRight(cfg.APIHost, "/"),
		clientKey: cfg.ClientKey,
		secretKey: cfg.SecretKey,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

// Submit 提交一次核验请求。服务商同步响应若已携带结果事件则
// 解析为回调载荷返回，否则返回 nil 等待异步回调。
func (c *Client) Submit(ctx context.Context, submission domain.Submission) (*domain.CallbackPayload, error) {
	fields := map[string]string{
		"client_id":      c.clientKey,
		"reference":      submission.Reference,
		"country":        submission.Country,
		"verification":   "document",
		"document_type":  submission.DocumentType,
		"document_id_no": submission.DocumentNumber,
		"first_name":     submission.FirstName,
		"last_name":      submission.LastName,
		"dob":            submission.DateOfBirth,
		"callback_url":   submission.CallbackURL,
		"document_proof": submission.DocumentProof,
		"face_proof":     submission.FaceProof,
		"address_proof":  submission.AddressProof,
	}
	fields["signature"] = c.sign(fields)

	form := url.Values{}
	for key, value := range fields {
		form.Set(key, value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiHost,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		if len(body) > 4096 {
			body = body[:4096]
		}
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(body))
	}

	var payload domain.CallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Event == "" {
		// 受理回执不带事件，结果走异步回调
		return nil, nil
	}
	return &payload, nil
}

// sign 所有字段值按键名排序拼接共享密钥后取 SHA-256
func (c *Client) sign(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, key := range keys {
		builder.WriteString(fields[key])
	}
	builder.WriteString(c.secretKey)

	sum := sha256.Sum256([]byte(builder.String()))
	return hex.EncodeToString(sum[:])
}
