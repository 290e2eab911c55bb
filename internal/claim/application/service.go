// Package application 申领应用服务：余额锁定、账本开户与状态推进
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odinlabs/claimportal/internal/claim/domain"
	notifdomain "github.com/odinlabs/claimportal/internal/notification/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotLocked 余额尚未锁定，无法进行后续步骤
	ErrNotLocked = errors.New("balance not locked")
	// ErrNotApproved 申领未获批准
	ErrNotApproved = errors.New("claim not approved")
	// ErrSetupDone 账本开户已完成，幂等拒绝
	ErrSetupDone = errors.New("claim setup already complete")
)

// Notifier 通知分发接口，由通知上下文的应用服务实现
type Notifier interface {
	Notify(ctx context.Context, recipient notifdomain.Recipient, msg notifdomain.Message)
}

// Service 申领应用服务
type Service struct {
	accounts    domain.AccountRepository
	flags       domain.FlagRepository
	ledger      domain.LedgerGateway
	calc        *domain.BonusCalculator
	coordinator *domain.StatusCoordinator
	notifier    Notifier
	terms       domain.ProgramTerms
	poolAccount string
	logger      *slog.Logger
	now         func() time.Time
}

// NewService 创建申领应用服务
func NewService(
	accounts domain.AccountRepository,
	flags domain.FlagRepository,
	ledger domain.LedgerGateway,
	terms domain.ProgramTerms,
	poolAccount string,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		accounts:    accounts,
		flags:       flags,
		ledger:      ledger,
		calc:        domain.NewBonusCalculator(terms),
		coordinator: domain.NewStatusCoordinator(terms),
		notifier:    notifier,
		terms:       terms,
		poolAccount: poolAccount,
		logger:      logger,
		now:         time.Now,
	}
}

// GetAccount 查询申领账户
func (s *Service) GetAccount(ctx context.Context, accountID string) (*domain.ClaimAccount, error) {
	return s.accounts.Get(ctx, accountID)
}

// LockBalance 锁定账户余额。锁定前尽力刷新链上余额：
// 刷新失败退回最近一次已知余额继续锁定，刷新成功且余额骤降
// 超过阈值时记一条 balance_removal 风险标记但不阻断流程。
// 锁定后一次性计算申领余额，之后不再随行情变化。
func (s *Service) LockBalance(ctx context.Context, accountID string) (*domain.ClaimAccount, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.BalanceLocked {
		return nil, domain.ErrAlreadyLocked
	}

	now := s.now()
	if now.After(s.terms.LockDeadline) {
		return nil, domain.ErrLockWindowClosed
	}

	s.refreshBalance(ctx, account)

	lockedSum := account.Balance
	claimBalance := s.calc.ClaimBalance(lockedSum, account.CreatedAt, &now)
	if err := account.Lock(now, lockedSum, claimBalance); err != nil {
		return nil, err
	}
	if err := s.accounts.UpdateVersioned(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("balance locked",
		"account_id", accountID,
		"locked_sum", lockedSum.String(),
		"claim_balance", claimBalance.String())

	s.notifier.Notify(ctx, recipientOf(account), notifdomain.Message{
		Subject: "Claim Balance Locked",
		Body: fmt.Sprintf(
			"Your balance of %s has been locked for the claim program. "+
				"Your claim balance is %s and will be available for withdrawal once your claim is approved.",
			lockedSum.StringFixed(8), claimBalance.StringFixed(8)),
		SMS: fmt.Sprintf("Your balance of %s has been locked. Claim balance: %s.",
			lockedSum.StringFixed(8), claimBalance.StringFixed(8)),
	})
	return account, nil
}

// refreshBalance 从链上刷新余额，失败时保留最近一次已知余额
func (s *Service) refreshBalance(ctx context.Context, account *domain.ClaimAccount) {
	if account.WalletAddress == "" {
		return
	}
	current, err := s.ledger.GetBalance(ctx, account.WalletAddress)
	if err != nil {
		s.logger.Warn("balance refresh failed, using last known balance",
			"account_id", account.AccountID,
			"balance", account.Balance.String(),
			"error", err)
		return
	}

	previous := account.Balance
	if previous.Sub(current).GreaterThanOrEqual(s.terms.BalanceRemovalThreshold) {
		s.flagBalanceRemoval(ctx, account, previous, current)
	}
	account.Balance = current
}

func (s *Service) flagBalanceRemoval(ctx context.Context, account *domain.ClaimAccount, previous, current decimal.Decimal) {
	extra, _ := json.Marshal(map[string]string{
		"previous": previous.String(),
		"current":  current.String(),
		"address":  account.WalletAddress,
	})
	flag := &domain.AccountFlag{
		AccountID: account.AccountID,
		Kind:      domain.FlagBalanceRemoval,
		Reason:    "balance dropped over removal threshold before lock",
		Extra:     string(extra),
	}
	if err := s.flags.Save(ctx, flag); err != nil {
		s.logger.Error("save balance removal flag failed",
			"account_id", account.AccountID, "error", err)
	}
}

// RefreshBalance 刷新未锁定账户的余额并持久化，供仪表盘展示。
// 已锁定账户的余额不再变更。
func (s *Service) RefreshBalance(ctx context.Context, accountID string) (*domain.ClaimAccount, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.BalanceLocked {
		return account, nil
	}

	before := account.Balance
	s.refreshBalance(ctx, account)
	if account.Balance.Equal(before) {
		return account, nil
	}
	if err := s.accounts.UpdateVersioned(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// SetupClaim 在外部账本上为已批准的申领开户并注入资金：
// 获取账本地址后从资金池划转 claimBalance + 1（多出的 1 作为
// 后续链上付款的手续费缓冲）。只执行一次。
func (s *Service) SetupClaim(ctx context.Context, accountID string) (*domain.ClaimAccount, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.BalanceLocked {
		return nil, ErrNotLocked
	}
	if account.ClaimStatus != domain.ClaimStatusApproved {
		return nil, ErrNotApproved
	}
	if account.SetupComplete {
		return nil, ErrSetupDone
	}

	address, err := s.ledger.GetAddress(ctx, account.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get ledger address: %w", err)
	}

	funding := account.ClaimBalance.Add(decimal.NewFromInt(1))
	ok, err := s.ledger.Move(ctx, s.poolAccount, account.AccountID, funding)
	if err != nil {
		return nil, fmt.Errorf("fund claim account: %w", err)
	}
	if !ok {
		return nil, errors.New("ledger rejected funding move")
	}

	account.LedgerAddress = address
	account.SetupComplete = true
	if err := s.accounts.UpdateVersioned(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("claim setup complete",
		"account_id", accountID,
		"ledger_address", address,
		"funding", funding.String())
	return account, nil
}

// ApplyIdentityOutcome 应用一次身份核验结果：经协调器推导申领状态、
// 持久化并按需派发通知。身份回调上下文经由此方法修改申领账户。
func (s *Service) ApplyIdentityOutcome(ctx context.Context, accountID string, outcome domain.IdentityStatus) (domain.StatusChange, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return domain.StatusChange{}, err
	}

	change := s.coordinator.Reconcile(account, outcome)
	if err := s.accounts.UpdateVersioned(ctx, account); err != nil {
		return domain.StatusChange{}, err
	}

	s.logger.Info("claim status reconciled",
		"account_id", accountID,
		"identity_status", change.IdentityStatus.String(),
		"claim_status", change.ClaimStatus.String())

	if change.Notify {
		s.notifier.Notify(ctx, recipientOf(account), notifdomain.Message{
			Subject: change.Subject,
			Body:    change.Body,
			SMS:     change.SMS,
		})
	}
	return change, nil
}

// FlagAccount 为账户追加一条风险标记，供其他上下文复用
func (s *Service) FlagAccount(ctx context.Context, accountID, kind, reason string, extra map[string]string) error {
	var encoded string
	if len(extra) > 0 {
		data, err := json.Marshal(extra)
		if err != nil {
			return err
		}
		encoded = string(data)
	}
	return s.flags.Save(ctx, &domain.AccountFlag{
		AccountID: accountID,
		Kind:      kind,
		Reason:    reason,
		Extra:     encoded,
	})
}

// Flags 查询账户的风险标记
func (s *Service) Flags(ctx context.Context, accountID string) ([]*domain.AccountFlag, error) {
	return s.flags.FindByAccount(ctx, accountID)
}

func recipientOf(account *domain.ClaimAccount) notifdomain.Recipient {
	return notifdomain.Recipient{
		AccountID:     account.AccountID,
		Email:         account.Email,
		CountryCode:   account.CountryCode,
		Phone:         account.Phone,
		PhoneVerified: account.PhoneVerified,
	}
}
