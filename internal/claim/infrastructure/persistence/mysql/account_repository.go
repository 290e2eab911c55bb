// Package mysql 申领账户与风险标记的 GORM 仓储实现
package mysql

import (
	"context"
	"errors"

	"github.com/odinlabs/claimportal/internal/claim/domain"
	"gorm.io/gorm"
)

// AccountRepository 申领账户仓储
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository 创建申领账户仓储
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Save 保存账户
func (r *AccountRepository) Save(ctx context.Context, account *domain.ClaimAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// Get 按账户 ID 查询
func (r *AccountRepository) Get(ctx context.Context, accountID string) (*domain.ClaimAccount, error) {
	var account domain.ClaimAccount
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByLedgerAddress 按账本地址查询
func (r *AccountRepository) GetByLedgerAddress(ctx context.Context, address string) (*domain.ClaimAccount, error) {
	var account domain.ClaimAccount
	if err := r.db.WithContext(ctx).
		Where("ledger_address = ?", address).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// UpdateVersioned 以版本号做条件更新，命中失败返回 ErrConflict
func (r *AccountRepository) UpdateVersioned(ctx context.Context, account *domain.ClaimAccount) error {
	version := account.Version
	account.Version = version + 1

	result := r.db.WithContext(ctx).
		Model(&domain.ClaimAccount{}).
		Where("account_id = ? AND version = ?", account.AccountID, version).
		Select("*").
		Omit("id", "created_at", "account_id").
		Updates(account)
	if result.Error != nil {
		account.Version = version
		return result.Error
	}
	if result.RowsAffected == 0 {
		account.Version = version
		return domain.ErrConflict
	}
	return nil
}

// ListLocked 分页列出已锁定的账户，按主键排序保证遍历稳定
func (r *AccountRepository) ListLocked(ctx context.Context, limit, offset int) ([]*domain.ClaimAccount, error) {
	var accounts []*domain.ClaimAccount
	if err := r.db.WithContext(ctx).
		Where("balance_locked = ?", true).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}
