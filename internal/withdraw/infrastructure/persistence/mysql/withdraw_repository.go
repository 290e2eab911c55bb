// Package mysql 提现请求的 GORM 仓储实现
package mysql

import (
	"context"
	"errors"
	"time"

	claimdomain "github.com/odinlabs/claimportal/internal/claim/domain"
	"github.com/odinlabs/claimportal/internal/withdraw/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawRepository 提现请求仓储
type WithdrawRepository struct {
	db *gorm.DB
}

// NewWithdrawRepository 创建提现请求仓储
func NewWithdrawRepository(db *gorm.DB) *WithdrawRepository {
	return &WithdrawRepository{db: db}
}

// Save 保存请求
func (r *WithdrawRepository) Save(ctx context.Context, request *domain.WithdrawRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

// Get 按 ID 查询
func (r *WithdrawRepository) Get(ctx context.Context, id uint) (*domain.WithdrawRequest, error) {
	var request domain.WithdrawRequest
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// FindByAccount 账户的提现请求，从新到旧
func (r *WithdrawRepository) FindByAccount(ctx context.Context, accountID string) ([]*domain.WithdrawRequest, error) {
	var requests []*domain.WithdrawRequest
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// FindMature 早于 cutoff 创建且仍待结算的请求，按创建顺序
func (r *WithdrawRepository) FindMature(ctx context.Context, cutoff time.Time, limit int) ([]*domain.WithdrawRequest, error) {
	var requests []*domain.WithdrawRequest
	if err := r.db.WithContext(ctx).
		Where("sent_at = 0 AND created_at < ?", cutoff).
		Order("id ASC").
		Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// Settle 条件终态写入：请求仍为待结算时写入付款结果，并在同一
// 事务里扣减账户的申领余额。条件未命中说明竞争已被他人赢得，
// 返回 false 且不产生任何写入。
func (r *WithdrawRepository) Settle(ctx context.Context, id uint, txid string, at time.Time, accountID string, amount decimal.Decimal) (bool, error) {
	claimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.WithdrawRequest{}).
			Where("id = ? AND sent_at = 0", id).
			Updates(map[string]any{
				"sent_at": at.Unix(),
				"tx":      txid,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		debit := tx.Model(&claimdomain.ClaimAccount{}).
			Where("account_id = ?", accountID).
			Updates(map[string]any{
				"claim_balance": gorm.Expr("claim_balance - ?", amount),
				"version":       gorm.Expr("version + 1"),
			})
		if debit.Error != nil {
			return debit.Error
		}
		if debit.RowsAffected == 0 {
			return errors.New("claim account missing during settlement")
		}

		claimed = true
		return nil
	})
	return claimed, err
}

// Reject 条件终态写入：请求仍为待结算时标记拒绝
func (r *WithdrawRepository) Reject(ctx context.Context, id uint, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.WithdrawRequest{}).
		Where("id = ? AND sent_at = 0", id).
		Updates(map[string]any{
			"sent_at": -1,
			"tx":      "-1",
			"reason":  reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
