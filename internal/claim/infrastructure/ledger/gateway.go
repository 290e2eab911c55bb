// Package ledger 账本网关的 RPC 适配器
package ledger

import (
	"context"

	"github.com/odinlabs/claimportal/pkg/ledgerrpc"
	"github.com/shopspring/decimal"
)

// Gateway 把 ledgerrpc 客户端适配为申领领域的账本网关
type Gateway struct {
	client *ledgerrpc.Client
}

// NewGateway 创建账本网关
func NewGateway(client *ledgerrpc.Client) *Gateway {
	return &Gateway{client: client}
}

// GetAddress 获取账户在账本上的收款地址
func (g *Gateway) GetAddress(ctx context.Context, accountID string) (string, error) {
	return g.client.GetAddress(ctx, accountID)
}

// Move 账本内部划转
func (g *Gateway) Move(ctx context.Context, from, to string, amount decimal.Decimal) (bool, error) {
	return g.client.Move(ctx, from, to, amount)
}

// GetBalance 查询地址余额
func (g *Gateway) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return g.client.GetBalance(ctx, address)
}
