// Package domain 提现领域层：提现请求聚合与结算仓储接口
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrClaimNotSetup 账本开户未完成，无法提现
	ErrClaimNotSetup = errors.New("claim not setup")
	// ErrRequestBlocked 申领未获批准，提现被阻断
	ErrRequestBlocked = errors.New("withdraw request blocked")
	// ErrInsufficientBalance 申领余额不足
	ErrInsufficientBalance = errors.New("insufficient claim balance")
	// ErrRequestTerminal 请求已到终态，不可再变更
	ErrRequestTerminal = errors.New("withdraw request already terminal")
)

// RequestStatus 提现请求状态，由 SentAt 推导
type RequestStatus int8

const (
	RequestStatusPending  RequestStatus = 1 // 待结算
	RequestStatusRejected RequestStatus = 2 // 已拒绝
	RequestStatusSettled  RequestStatus = 3 // 已付款
)

func (s RequestStatus) String() string {
	switch s {
	case RequestStatusPending:
		return "pending"
	case RequestStatusRejected:
		return "rejected"
	case RequestStatusSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// 终态标记值
const (
	rejectedSentAt = -1
	rejectedTx     = "-1"
)

// WithdrawRequest 提现请求聚合根。状态编码在 SentAt 与 Tx 里：
// SentAt 为 0 待结算、-1 已拒绝、正数为付款的 Unix 时间；
// Tx 为空待结算、"-1" 已拒绝、64 位交易 ID 已付款。
type WithdrawRequest struct {
	gorm.Model
	AccountID string          `gorm:"column:account_id;type:varchar(64);index;not null" json:"account_id"`
	Address   string          `gorm:"column:address;type:varchar(128);not null" json:"address"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(20,8);not null" json:"amount"`
	SentAt    int64           `gorm:"column:sent_at;not null;default:0;index" json:"sent_at"`
	Tx        string          `gorm:"column:tx;type:varchar(64)" json:"tx"`
	// 拒绝原因，仅拒绝时有值
	Reason string `gorm:"column:reason;type:varchar(256)" json:"reason,omitempty"`
}

// TableName 表名
func (WithdrawRequest) TableName() string {
	return "withdraw_requests"
}

// Status 由 SentAt 推导的请求状态
func (r *WithdrawRequest) Status() RequestStatus {
	switch {
	case r.SentAt == rejectedSentAt:
		return RequestStatusRejected
	case r.SentAt > 0:
		return RequestStatusSettled
	default:
		return RequestStatusPending
	}
}

// MarkSettled 标记付款完成
func (r *WithdrawRequest) MarkSettled(txid string, at time.Time) error {
	if r.Status() != RequestStatusPending {
		return ErrRequestTerminal
	}
	r.SentAt = at.Unix()
	r.Tx = txid
	return nil
}

// MarkRejected 标记拒绝
func (r *WithdrawRequest) MarkRejected(reason string) error {
	if r.Status() != RequestStatusPending {
		return ErrRequestTerminal
	}
	r.SentAt = rejectedSentAt
	r.Tx = rejectedTx
	r.Reason = reason
	return nil
}

// WithdrawRepository 提现请求仓储接口。Settle 与 Reject 是带
// "仍为待结算" 条件的终态写入，返回值指明本调用是否真正完成了
// 状态迁移；输掉竞争的调用方得到 false 且不得再做任何动作。
// Settle 在同一事务里扣减申领余额。
type WithdrawRepository interface {
	Save(ctx context.Context, request *WithdrawRequest) error
	Get(ctx context.Context, id uint) (*WithdrawRequest, error)
	FindByAccount(ctx context.Context, accountID string) ([]*WithdrawRequest, error)
	// FindMature 早于 cutoff 创建且仍待结算的请求，按创建顺序
	FindMature(ctx context.Context, cutoff time.Time, limit int) ([]*WithdrawRequest, error)
	Settle(ctx context.Context, id uint, txid string, at time.Time, accountID string, amount decimal.Decimal) (bool, error)
	Reject(ctx context.Context, id uint, reason string) (bool, error)
}
