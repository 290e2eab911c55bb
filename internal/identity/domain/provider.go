package domain

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// 回调事件
const (
	EventAccepted = "verification.accepted"
	EventDeclined = "verification.declined"
	EventInvalid  = "request.invalid"
)

// Submission 一次核验提交的内容
type Submission struct {
	// 提交方生成的唯一引用，回调凭它定位记录
	Reference      string
	Country        string
	DocumentType   string
	DocumentNumber string
	FirstName      string
	LastName       string
	DateOfBirth    string
	// 回调接收地址
	CallbackURL string
	// base64 编码的证件与人脸图片
	DocumentProof string
	FaceProof     string
	AddressProof  string
}

// Provider 身份核验服务商接口。同步响应就带出结果时返回非空
// 载荷，由调用方按回调同样处理；纯受理响应返回 nil。
type Provider interface {
	Submit(ctx context.Context, submission Submission) (*CallbackPayload, error)
}

// CallbackPayload 服务商回调的载荷
type CallbackPayload struct {
	Reference  string `json:"reference"`
	Event      string `json:"event"`
	StatusCode string `json:"status_code"`
	Message    string `json:"message"`
	Signature  string `json:"signature"`
	// 服务项与检查项，invalid 时标识出错位置
	Service string `json:"service"`
	Key     string `json:"key"`
	// 核验明细，declined 时由 FindInvalidMark 提取失败路径
	VerificationResult map[string]any `json:"verification_result"`
}

// Status 回调事件对应的核验状态，未知事件一律视为 pending
func (p CallbackPayload) Status() CheckStatus {
	switch p.Event {
	case EventAccepted:
		return CheckStatusAccepted
	case EventDeclined:
		return CheckStatusDeclined
	case EventInvalid:
		return CheckStatusInvalid
	default:
		return CheckStatusPending
	}
}

// Remark 从回调载荷提炼失败原因
func (p CallbackPayload) Remark() string {
	switch p.Status() {
	case CheckStatusDeclined:
		if mark := FindInvalidMark(p.VerificationResult); mark != "" {
			return mark
		}
		return p.Message
	case CheckStatusInvalid:
		if strings.Contains(strings.ToLower(p.Message), "not active") {
			return "provider.inactive"
		}
		if p.Service != "" && p.Key != "" {
			return p.Service + "." + p.Key
		}
		return p.Message
	default:
		return ""
	}
}

// CallbackSignature 回调签名：状态码、消息与引用拼接共享密钥后取
// SHA-256 的十六进制
func CallbackSignature(statusCode, message, reference, secret string) string {
	sum := sha256.Sum256([]byte(statusCode + message + reference + secret))
	return hex.EncodeToString(sum[:])
}

// ValidSignature 校验回调签名，常数时间比较
func (p CallbackPayload) ValidSignature(secret string) bool {
	expected := CallbackSignature(p.StatusCode, p.Message, p.Reference, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(p.Signature)) == 1
}
