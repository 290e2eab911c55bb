// Package domain 申领账户领域层：
// 1) ClaimAccount 聚合根与状态枚举
// 2) 奖励计算器
// 3) 申领状态协调器（claim_status 唯一写入方）
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ClaimStatus 申领状态
type ClaimStatus int8

const (
	ClaimStatusPending  ClaimStatus = 1 // 待定
	ClaimStatusApproved ClaimStatus = 2 // 已批准，可提现
	ClaimStatusDeclined ClaimStatus = 3 // 已拒绝
)

func (s ClaimStatus) String() string {
	switch s {
	case ClaimStatusPending:
		return "pending"
	case ClaimStatusApproved:
		return "approved"
	case ClaimStatusDeclined:
		return "declined"
	default:
		return "unknown"
	}
}

// IdentityStatus 身份核验状态
type IdentityStatus int8

const (
	IdentityStatusPending  IdentityStatus = 1 // 待核验
	IdentityStatusInvalid  IdentityStatus = 2 // 提交无效，可重试
	IdentityStatusDeclined IdentityStatus = 3 // 核验被拒，可重试
	IdentityStatusAccepted IdentityStatus = 4 // 核验通过，终态
)

func (s IdentityStatus) String() string {
	switch s {
	case IdentityStatusPending:
		return "pending"
	case IdentityStatusInvalid:
		return "invalid"
	case IdentityStatusDeclined:
		return "declined"
	case IdentityStatusAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// IsTerminal 是否为终态（终态不再自动迁移）
func (s IdentityStatus) IsTerminal() bool {
	return s == IdentityStatusAccepted || s == IdentityStatusDeclined || s == IdentityStatusInvalid
}

var (
	// ErrAlreadyLocked 余额已锁定，锁定操作幂等拒绝
	ErrAlreadyLocked = errors.New("balance already locked")
	// ErrLockWindowClosed 已过锁定截止时间
	ErrLockWindowClosed = errors.New("lock window closed")
	// ErrConflict 乐观并发冲突，调用方应重读后重试
	ErrConflict = errors.New("concurrent modification conflict")
	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = errors.New("claim account not found")
)

// ClaimAccount 申领账户聚合根。每个用户恰好一个，至多一次锁定。
type ClaimAccount struct {
	gorm.Model
	AccountID   string `gorm:"column:account_id;type:varchar(64);uniqueIndex;not null" json:"account_id"`
	Email       string `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	CountryCode string `gorm:"column:country_code;type:varchar(8)" json:"country_code"`
	Phone       string `gorm:"column:phone;type:varchar(32)" json:"phone"`
	// 手机已验证才允许发送短信通知
	PhoneVerified bool `gorm:"column:phone_verified;default:false" json:"phone_verified"`

	// 源链钱包地址及最近一次拉取的余额
	WalletAddress string          `gorm:"column:wallet_address;type:varchar(128)" json:"wallet_address"`
	Balance       decimal.Decimal `gorm:"column:balance;type:decimal(20,8);default:0" json:"balance"`

	// 锁定快照。LockedSum 仅在锁定时写入一次，之后不再变更；
	// 快照比对产生的修正写入 LockedSumDiff，保留审计轨迹。
	BalanceLocked bool            `gorm:"column:balance_locked;default:false" json:"balance_locked"`
	LockedAt      *time.Time      `gorm:"column:locked_at" json:"locked_at"`
	LockedSum     decimal.Decimal `gorm:"column:locked_sum;type:decimal(20,8);default:0" json:"locked_sum"`
	LockedSumDiff decimal.Decimal `gorm:"column:locked_sum_diff;type:decimal(20,8);default:0" json:"locked_sum_diff"`

	// 申领余额，锁定时一次性计算，提现结算后递减
	ClaimBalance decimal.Decimal `gorm:"column:claim_balance;type:decimal(20,8);default:0" json:"claim_balance"`

	ClaimStatus    ClaimStatus    `gorm:"column:claim_status;type:tinyint;not null;default:1" json:"claim_status"`
	IdentityStatus IdentityStatus `gorm:"column:identity_status;type:tinyint;not null;default:1" json:"identity_status"`

	// 外部账本侧的申领账户地址，SetupComplete 后方可提现
	LedgerAddress string `gorm:"column:ledger_address;type:varchar(128)" json:"ledger_address"`
	SetupComplete bool   `gorm:"column:setup_complete;default:false" json:"setup_complete"`

	// 乐观并发版本号
	Version uint `gorm:"column:version;not null;default:0" json:"-"`
}

// TableName 表名
func (ClaimAccount) TableName() string {
	return "claim_accounts"
}

// Lock 写入锁定快照。lockedSum 与 claimBalance 只在此处写入一次。
func (a *ClaimAccount) Lock(now time.Time, lockedSum, claimBalance decimal.Decimal) error {
	if a.BalanceLocked {
		return ErrAlreadyLocked
	}
	a.BalanceLocked = true
	a.LockedAt = &now
	a.LockedSum = lockedSum
	a.ClaimBalance = claimBalance
	return nil
}

// DebitClaimBalance 结算成功后扣减申领余额
func (a *ClaimAccount) DebitClaimBalance(amount decimal.Decimal) {
	a.ClaimBalance = a.ClaimBalance.Sub(amount)
}

// AccountRepository 申领账户仓储接口。Update 系列方法以版本号做
// 条件更新，丢失竞争时返回 ErrConflict 而非静默覆盖。
type AccountRepository interface {
	Save(ctx context.Context, account *ClaimAccount) error
	Get(ctx context.Context, accountID string) (*ClaimAccount, error)
	GetByLedgerAddress(ctx context.Context, address string) (*ClaimAccount, error)
	UpdateVersioned(ctx context.Context, account *ClaimAccount) error
	ListLocked(ctx context.Context, limit, offset int) ([]*ClaimAccount, error)
}
