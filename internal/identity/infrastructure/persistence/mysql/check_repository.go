// Package mysql 核验记录的 GORM 仓储实现
package mysql

import (
	"context"
	"errors"

	"github.com/odinlabs/claimportal/internal/identity/domain"
	"gorm.io/gorm"
)

// CheckRepository 核验记录仓储
type CheckRepository struct {
	db *gorm.DB
}

// NewCheckRepository 创建核验记录仓储
func NewCheckRepository(db *gorm.DB) *CheckRepository {
	return &CheckRepository{db: db}
}

// Save 保存核验记录
func (r *CheckRepository) Save(ctx context.Context, check *domain.IdentityCheck) error {
	return r.db.WithContext(ctx).Save(check).Error
}

// FindByReference 按引用查询
func (r *CheckRepository) FindByReference(ctx context.Context, referenceID string) (*domain.IdentityCheck, error) {
	var check domain.IdentityCheck
	if err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		First(&check).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCheckNotFound
		}
		return nil, err
	}
	return &check, nil
}

// FindByAccount 账户的核验历史，从新到旧
func (r *CheckRepository) FindByAccount(ctx context.Context, accountID string) ([]*domain.IdentityCheck, error) {
	var checks []*domain.IdentityCheck
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Find(&checks).Error; err != nil {
		return nil, err
	}
	return checks, nil
}

// FindBySecret 按证件号摘要跨账户查询
func (r *CheckRepository) FindBySecret(ctx context.Context, referenceSecret string) ([]*domain.IdentityCheck, error) {
	var checks []*domain.IdentityCheck
	if err := r.db.WithContext(ctx).
		Where("reference_secret = ?", referenceSecret).
		Find(&checks).Error; err != nil {
		return nil, err
	}
	return checks, nil
}
