package application

import (
	"context"
	"log/slog"

	"github.com/odinlabs/claimportal/internal/claim/domain"
	"github.com/shopspring/decimal"
)

// SnapshotSource 快照数据源，按钱包地址提供上线日的链上余额
type SnapshotSource interface {
	Balance(address string) (decimal.Decimal, bool)
}

// SnapshotComparer 把锁定金额与上线日快照逐户比对，差额写入
// LockedSumDiff。LockedSum 本身永不改写，审计轨迹保持完整；
// 差额达到阈值的账户由状态协调器在下一次核验时拒绝申领。
type SnapshotComparer struct {
	accounts  domain.AccountRepository
	source    SnapshotSource
	batchSize int
	logger    *slog.Logger
}

// NewSnapshotComparer 创建快照比对任务
func NewSnapshotComparer(accounts domain.AccountRepository, source SnapshotSource, batchSize int, logger *slog.Logger) *SnapshotComparer {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &SnapshotComparer{
		accounts:  accounts,
		source:    source,
		batchSize: batchSize,
		logger:    logger,
	}
}

// RunOnce 执行一轮全量比对，返回写入差额的账户数。
// 快照中缺失的地址按零余额处理，差额即整个锁定金额。
func (c *SnapshotComparer) RunOnce(ctx context.Context) (int, error) {
	updated := 0
	for offset := 0; ; offset += c.batchSize {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		accounts, err := c.accounts.ListLocked(ctx, c.batchSize, offset)
		if err != nil {
			return updated, err
		}
		if len(accounts) == 0 {
			return updated, nil
		}

		for _, account := range accounts {
			snapshot, found := c.source.Balance(account.WalletAddress)
			if !found {
				snapshot = decimal.Zero
			}
			diff := account.LockedSum.Sub(snapshot)
			if diff.Equal(account.LockedSumDiff) {
				continue
			}

			account.LockedSumDiff = diff
			if err := c.accounts.UpdateVersioned(ctx, account); err != nil {
				c.logger.Error("write snapshot diff failed",
					"account_id", account.AccountID, "error", err)
				continue
			}
			updated++

			if diff.GreaterThanOrEqual(decimal.Zero) && !diff.IsZero() {
				c.logger.Warn("locked sum exceeds snapshot balance",
					"account_id", account.AccountID,
					"locked_sum", account.LockedSum.String(),
					"snapshot", snapshot.String(),
					"diff", diff.String())
			}
		}
	}
}
