package domain

import (
	"context"

	"gorm.io/gorm"
)

// 风险标记类型
const (
	FlagDuplicateIdentity = "identityVerification/duplicate_identity"
	FlagBalanceRemoval    = "balanceRefresh/balance_removal"
)

// AccountFlag 账户风险标记，供人工审核使用，只增不改
type AccountFlag struct {
	gorm.Model
	AccountID string `gorm:"column:account_id;type:varchar(64);index;not null" json:"account_id"`
	Kind      string `gorm:"column:kind;type:varchar(128);index;not null" json:"kind"`
	Reason    string `gorm:"column:reason;type:varchar(512)" json:"reason"`
	// Extra 标记上下文的 JSON 快照，例如重复证件关联的账户或刷新前后的余额
	Extra string `gorm:"column:extra;type:text" json:"extra"`
}

// TableName 指定表名
func (AccountFlag) TableName() string {
	return "account_flags"
}

// FlagRepository 风险标记仓储接口
type FlagRepository interface {
	Save(ctx context.Context, flag *AccountFlag) error
	FindByAccount(ctx context.Context, accountID string) ([]*AccountFlag, error)
	FindByKind(ctx context.Context, kind string) ([]*AccountFlag, error)
}
