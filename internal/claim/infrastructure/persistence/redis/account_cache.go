// Package redis 申领账户的读缓存装饰器
package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/odinlabs/claimportal/internal/claim/domain"
	goredis "github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "claimportal:account:"

// AccountCache 包装底层仓储，为按 ID 的读提供 Redis 缓存。
// 任何写路径先落库再删除缓存，缓存故障降级为直查数据库。
// 结算进程直接写库不经过本缓存，claim_balance 的缓存读
// 最多滞后一个 TTL；写路径凭版本号条件更新兜底，旧版本
// 写库必然失败，不会因脏读造成超发。
type AccountCache struct {
	inner  domain.AccountRepository
	client *goredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewAccountCache 创建账户缓存装饰器
func NewAccountCache(inner domain.AccountRepository, client *goredis.Client, ttl time.Duration, logger *slog.Logger) *AccountCache {
	return &AccountCache{inner: inner, client: client, ttl: ttl, logger: logger}
}

// Get 优先读缓存，未命中回源并回填
func (c *AccountCache) Get(ctx context.Context, accountID string) (*domain.ClaimAccount, error) {
	key := cacheKeyPrefix + accountID

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var account domain.ClaimAccount
		if err := json.Unmarshal(data, &account); err == nil {
			return &account, nil
		}
		// 缓存内容损坏，删掉回源
		c.client.Del(ctx, key)
	} else if err != goredis.Nil {
		c.logger.Warn("account cache read failed", "account_id", accountID, "error", err)
	}

	account, err := c.inner.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(account); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("account cache write failed", "account_id", accountID, "error", err)
		}
	}
	return account, nil
}

// Save 落库后失效缓存
func (c *AccountCache) Save(ctx context.Context, account *domain.ClaimAccount) error {
	if err := c.inner.Save(ctx, account); err != nil {
		return err
	}
	c.invalidate(ctx, account.AccountID)
	return nil
}

// UpdateVersioned 落库后失效缓存
func (c *AccountCache) UpdateVersioned(ctx context.Context, account *domain.ClaimAccount) error {
	if err := c.inner.UpdateVersioned(ctx, account); err != nil {
		return err
	}
	c.invalidate(ctx, account.AccountID)
	return nil
}

// GetByLedgerAddress 直查数据库，该路径只在结算侧使用
func (c *AccountCache) GetByLedgerAddress(ctx context.Context, address string) (*domain.ClaimAccount, error) {
	return c.inner.GetByLedgerAddress(ctx, address)
}

// ListLocked 直查数据库
func (c *AccountCache) ListLocked(ctx context.Context, limit, offset int) ([]*domain.ClaimAccount, error) {
	return c.inner.ListLocked(ctx, limit, offset)
}

func (c *AccountCache) invalidate(ctx context.Context, accountID string) {
	if err := c.client.Del(ctx, cacheKeyPrefix+accountID).Err(); err != nil {
		c.logger.Warn("account cache invalidate failed", "account_id", accountID, "error", err)
	}
}
