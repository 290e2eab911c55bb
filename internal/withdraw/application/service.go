// Package application 提现应用服务与结算任务
package application

import (
	"context"
	"fmt"
	"log/slog"

	claimdomain "github.com/odinlabs/claimportal/internal/claim/domain"
	notifdomain "github.com/odinlabs/claimportal/internal/notification/domain"
	"github.com/odinlabs/claimportal/internal/withdraw/domain"
	"github.com/shopspring/decimal"
)

// Notifier 通知分发接口
type Notifier interface {
	Notify(ctx context.Context, recipient notifdomain.Recipient, msg notifdomain.Message)
}

// Service 提现应用服务
type Service struct {
	requests domain.WithdrawRepository
	accounts claimdomain.AccountRepository
	notifier Notifier
	// 提现保留额，全额提现时留在账上的零头
	reserveEpsilon decimal.Decimal
	logger         *slog.Logger
}

// NewService 创建提现应用服务
func NewService(
	requests domain.WithdrawRepository,
	accounts claimdomain.AccountRepository,
	notifier Notifier,
	reserveEpsilon decimal.Decimal,
	logger *slog.Logger,
) *Service {
	return &Service{
		requests:       requests,
		accounts:       accounts,
		notifier:       notifier,
		reserveEpsilon: reserveEpsilon,
		logger:         logger,
	}
}

// RequestWithdraw 受理一笔提现请求。请求只入队，不触发付款；
// 付款由结算任务在成熟窗口之后执行。全额提现会被削减一个
// 保留额，账上永远留有零头覆盖账本侧的划转误差。
func (s *Service) RequestWithdraw(ctx context.Context, accountID, address string, amount decimal.Decimal) (*domain.WithdrawRequest, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.SetupComplete {
		return nil, domain.ErrClaimNotSetup
	}
	if account.ClaimStatus != claimdomain.ClaimStatusApproved {
		return nil, domain.ErrRequestBlocked
	}
	if amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(account.ClaimBalance) {
		return nil, domain.ErrInsufficientBalance
	}

	if amount.Equal(account.ClaimBalance) {
		amount = amount.Sub(s.reserveEpsilon)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInsufficientBalance
	}

	request := &domain.WithdrawRequest{
		AccountID: accountID,
		Address:   address,
		Amount:    amount,
	}
	if err := s.requests.Save(ctx, request); err != nil {
		return nil, err
	}

	s.logger.Info("withdraw request accepted",
		"account_id", accountID,
		"request_id", request.ID,
		"amount", amount.String())

	s.notifier.Notify(ctx, recipientOf(account), notifdomain.Message{
		Subject: "Withdraw Request Received",
		Body: fmt.Sprintf(
			"Your withdraw request for %s has been received and queued for processing. "+
				"You will be notified once it has been settled.",
			amount.StringFixed(8)),
		SMS: fmt.Sprintf("Withdraw request for %s received and queued.", amount.StringFixed(8)),
	})
	return request, nil
}

// ListRequests 账户的提现请求列表
func (s *Service) ListRequests(ctx context.Context, accountID string) ([]*domain.WithdrawRequest, error) {
	return s.requests.FindByAccount(ctx, accountID)
}

func recipientOf(account *claimdomain.ClaimAccount) notifdomain.Recipient {
	return notifdomain.Recipient{
		AccountID:     account.AccountID,
		Email:         account.Email,
		CountryCode:   account.CountryCode,
		Phone:         account.Phone,
		PhoneVerified: account.PhoneVerified,
	}
}
