// Package mysql 通知偏好的 GORM 仓储实现
package mysql

import (
	"context"

	"github.com/odinlabs/claimportal/internal/notification/domain"
	"gorm.io/gorm"
)

// PreferenceRepository 通知偏好仓储
type PreferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository 创建通知偏好仓储
func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get 按账户查询偏好
func (r *PreferenceRepository) Get(ctx context.Context, accountID string) (*domain.Preference, error) {
	var pref domain.Preference
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&pref).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}

// Save 保存偏好
func (r *PreferenceRepository) Save(ctx context.Context, pref *domain.Preference) error {
	return r.db.WithContext(ctx).Save(pref).Error
}
