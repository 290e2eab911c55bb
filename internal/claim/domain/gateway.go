package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// LedgerGateway 账本网关接口，由基础设施层对接外部账本节点实现
type LedgerGateway interface {
	// GetAddress 获取账户在账本上的收款地址，不存在时由节点创建
	GetAddress(ctx context.Context, accountID string) (string, error)
	// Move 账本内部划转，不产生链上交易
	Move(ctx context.Context, from, to string, amount decimal.Decimal) (bool, error)
	// GetBalance 查询地址当前余额
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
}
