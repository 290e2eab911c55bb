package mysql

import (
	"context"

	"github.com/odinlabs/claimportal/internal/claim/domain"
	"gorm.io/gorm"
)

// FlagRepository 风险标记仓储
type FlagRepository struct {
	db *gorm.DB
}

// NewFlagRepository 创建风险标记仓储
func NewFlagRepository(db *gorm.DB) *FlagRepository {
	return &FlagRepository{db: db}
}

// Save 追加一条风险标记
func (r *FlagRepository) Save(ctx context.Context, flag *domain.AccountFlag) error {
	return r.db.WithContext(ctx).Create(flag).Error
}

// FindByAccount 查询账户的全部风险标记
func (r *FlagRepository) FindByAccount(ctx context.Context, accountID string) ([]*domain.AccountFlag, error) {
	var flags []*domain.AccountFlag
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id DESC").
		Find(&flags).Error; err != nil {
		return nil, err
	}
	return flags, nil
}

// FindByKind 按类型查询风险标记
func (r *FlagRepository) FindByKind(ctx context.Context, kind string) ([]*domain.AccountFlag, error) {
	var flags []*domain.AccountFlag
	if err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("id DESC").
		Find(&flags).Error; err != nil {
		return nil, err
	}
	return flags, nil
}
