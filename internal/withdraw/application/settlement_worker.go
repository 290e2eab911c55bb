package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	claimdomain "github.com/odinlabs/claimportal/internal/claim/domain"
	notifdomain "github.com/odinlabs/claimportal/internal/notification/domain"
	"github.com/odinlabs/claimportal/internal/withdraw/domain"
	"github.com/odinlabs/claimportal/pkg/ledgerrpc"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// PayoutGateway 账本付款接口，成功返回交易 ID。
// 由 ledgerrpc.Client 实现。
type PayoutGateway interface {
	SendFrom(ctx context.Context, from, to string, amount decimal.Decimal) (string, error)
}

// WorkerConfig 结算任务配置
type WorkerConfig struct {
	// 请求成熟窗口，晚于该窗口创建的请求暂不结算
	MaturityWindow time.Duration
	// 轮询间隔
	Interval time.Duration
	// 并行结算的账户数上限
	MaxParallel int
	// 单轮处理的请求数上限
	BatchLimit int
}

// SettlementWorker 提现结算任务。每轮取出成熟的待结算请求，
// 按账户分组后并行结算，同一账户内严格串行。
//
// 付款调用是不可重试的：sendfrom 出错时服务端可能已经付款，
// 盲目重试就是重复付款，所以任何付款失败都把请求置为终态拒绝，
// 留给人工对账。终态写入带 "仍为待结算" 条件，多实例并发下
// 输掉竞争的一方不再做任何动作。
type SettlementWorker struct {
	requests domain.WithdrawRepository
	accounts claimdomain.AccountRepository
	ledger   PayoutGateway
	notifier Notifier
	cfg      WorkerConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewSettlementWorker 创建结算任务
func NewSettlementWorker(
	requests domain.WithdrawRepository,
	accounts claimdomain.AccountRepository,
	ledger PayoutGateway,
	notifier Notifier,
	cfg WorkerConfig,
	logger *slog.Logger,
) *SettlementWorker {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 8
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 500
	}
	return &SettlementWorker{
		requests: requests,
		accounts: accounts,
		ledger:   ledger,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Start 按固定间隔轮询，直到上下文取消
func (w *SettlementWorker) Start(ctx context.Context) {
	w.logger.Info("settlement worker started",
		"interval", w.cfg.Interval.String(),
		"maturity_window", w.cfg.MaturityWindow.String())

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("settlement worker stopped")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("settlement pass failed", "error", err)
			}
		}
	}
}

// RunOnce 执行一轮结算
func (w *SettlementWorker) RunOnce(ctx context.Context) error {
	cutoff := w.now().Add(-w.cfg.MaturityWindow)
	mature, err := w.requests.FindMature(ctx, cutoff, w.cfg.BatchLimit)
	if err != nil {
		return err
	}
	if len(mature) == 0 {
		return nil
	}

	byAccount := make(map[string][]*domain.WithdrawRequest)
	order := make([]string, 0)
	for _, request := range mature {
		if _, seen := byAccount[request.AccountID]; !seen {
			order = append(order, request.AccountID)
		}
		byAccount[request.AccountID] = append(byAccount[request.AccountID], request)
	}

	w.logger.Info("settlement pass",
		"requests", len(mature), "accounts", len(order))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(w.cfg.MaxParallel)
	for _, accountID := range order {
		requests := byAccount[accountID]
		group.Go(func() error {
			for _, request := range requests {
				if err := ctx.Err(); err != nil {
					return err
				}
				w.settle(ctx, request)
			}
			return nil
		})
	}
	return group.Wait()
}

// settle 结算单笔请求。所有失败路径都落终态并通知，绝不留下
// 可被重复结算的中间状态。
func (w *SettlementWorker) settle(ctx context.Context, request *domain.WithdrawRequest) {
	account, err := w.accounts.Get(ctx, request.AccountID)
	if err != nil {
		w.logger.Error("load account for settlement failed",
			"request_id", request.ID, "account_id", request.AccountID, "error", err)
		return
	}

	// 结算时点重新校验资格：锁定后到结算前申领可能已被拒绝
	if account.ClaimStatus != claimdomain.ClaimStatusApproved || !account.SetupComplete {
		w.reject(ctx, request, account, "claim no longer approved")
		return
	}
	if request.Amount.GreaterThan(account.ClaimBalance) {
		w.reject(ctx, request, account, "insufficient claim balance")
		return
	}

	txid, err := w.ledger.SendFrom(ctx, request.AccountID, request.Address, request.Amount)
	if err != nil {
		reason := "ledger payout failed"
		if errors.Is(err, ledgerrpc.ErrInsufficientFunds) {
			reason = "insufficient ledger funds"
		}
		w.logger.Error("payout failed, rejecting request",
			"request_id", request.ID,
			"account_id", request.AccountID,
			"amount", request.Amount.String(),
			"error", err)
		w.reject(ctx, request, account, reason)
		return
	}

	at := w.now()
	claimed, err := w.requests.Settle(ctx, request.ID, txid, at, request.AccountID, request.Amount)
	if err != nil {
		w.logger.Error("persist settlement failed",
			"request_id", request.ID, "txid", txid, "error", err)
		return
	}
	if !claimed {
		// 另一实例已写入终态，本次付款结果以先写入者为准
		w.logger.Warn("settlement race lost",
			"request_id", request.ID, "txid", txid)
		return
	}

	w.logger.Info("withdraw settled",
		"request_id", request.ID,
		"account_id", request.AccountID,
		"amount", request.Amount.String(),
		"txid", txid)

	w.notifier.Notify(ctx, recipientOf(account), notifdomain.Message{
		Subject: "Withdraw Request Settled",
		Body: fmt.Sprintf(
			"Your withdraw request for %s has been settled. Transaction: %s",
			request.Amount.StringFixed(8), txid),
		SMS: fmt.Sprintf("Your withdraw of %s has been settled.", request.Amount.StringFixed(8)),
	})
}

func (w *SettlementWorker) reject(ctx context.Context, request *domain.WithdrawRequest, account *claimdomain.ClaimAccount, reason string) {
	claimed, err := w.requests.Reject(ctx, request.ID, reason)
	if err != nil {
		w.logger.Error("persist rejection failed",
			"request_id", request.ID, "reason", reason, "error", err)
		return
	}
	if !claimed {
		return
	}

	w.logger.Info("withdraw rejected",
		"request_id", request.ID,
		"account_id", request.AccountID,
		"reason", reason)

	w.notifier.Notify(ctx, recipientOf(account), notifdomain.Message{
		Subject: "Withdraw Request Rejected",
		Body: fmt.Sprintf(
			"Your withdraw request for %s has been rejected. "+
				"Please contact support if you believe this is an error.",
			request.Amount.StringFixed(8)),
		SMS: fmt.Sprintf("Your withdraw request for %s was rejected.", request.Amount.StringFixed(8)),
	})
}
