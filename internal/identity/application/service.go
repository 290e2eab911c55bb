// Package application 身份核验应用服务：提交闸门与回调处理
package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	claimdomain "github.com/odinlabs/claimportal/internal/claim/domain"
	"github.com/odinlabs/claimportal/internal/identity/domain"
)

// ClaimPortal 申领上下文暴露给身份核验的操作面
type ClaimPortal interface {
	GetAccount(ctx context.Context, accountID string) (*claimdomain.ClaimAccount, error)
	ApplyIdentityOutcome(ctx context.Context, accountID string, outcome claimdomain.IdentityStatus) (claimdomain.StatusChange, error)
	FlagAccount(ctx context.Context, accountID, kind, reason string, extra map[string]string) error
}

// SubmitCommand 一次核验提交
type SubmitCommand struct {
	AccountID      string
	Country        string
	DocumentType   string
	DocumentNumber string
	FirstName      string
	LastName       string
	DateOfBirth    string
	DocumentProof  string
	FaceProof      string
	AddressProof   string
}

// Service 身份核验应用服务
type Service struct {
	checks      domain.CheckRepository
	provider    domain.Provider
	sweeper     *domain.Sweeper
	claims      ClaimPortal
	secretKey   string
	callbackURL string
	logger      *slog.Logger
}

// NewService 创建身份核验应用服务
func NewService(
	checks domain.CheckRepository,
	provider domain.Provider,
	sweeper *domain.Sweeper,
	claims ClaimPortal,
	secretKey string,
	callbackURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		checks:      checks,
		provider:    provider,
		sweeper:     sweeper,
		claims:      claims,
		secretKey:   secretKey,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// Submit 受理一次核验提交。顺序固定：先过闸门、再查证件重复，
// 都通过才落记录并调用服务商，避免无意义的服务商费用。
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*domain.IdentityCheck, error) {
	account, err := s.claims.GetAccount(ctx, cmd.AccountID)
	if err != nil {
		return nil, err
	}

	history, err := s.checks.FindByAccount(ctx, cmd.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.sweeper.Admit(history); err != nil {
		return nil, err
	}

	secret := domain.HashDocumentNumber(cmd.DocumentNumber)
	if err := s.rejectDuplicate(ctx, cmd.AccountID, secret); err != nil {
		return nil, err
	}

	check := &domain.IdentityCheck{
		AccountID:       cmd.AccountID,
		ReferenceID:     uuid.New().String(),
		ReferenceSecret: secret,
		DocumentType:    cmd.DocumentType,
		Country:         cmd.Country,
		Status:          domain.CheckStatusPending,
	}
	if err := s.checks.Save(ctx, check); err != nil {
		return nil, err
	}

	submission := domain.Submission{
		Reference:      check.ReferenceID,
		Country:        cmd.Country,
		DocumentType:   cmd.DocumentType,
		DocumentNumber: cmd.DocumentNumber,
		FirstName:      cmd.FirstName,
		LastName:       cmd.LastName,
		DateOfBirth:    cmd.DateOfBirth,
		CallbackURL:    s.callbackURL,
		DocumentProof:  cmd.DocumentProof,
		FaceProof:      cmd.FaceProof,
		AddressProof:   cmd.AddressProof,
	}
	result, err := s.provider.Submit(ctx, submission)
	if err != nil {
		check.Status = domain.CheckStatusInvalid
		check.Remarks = "provider.unreachable"
		if saveErr := s.checks.Save(ctx, check); saveErr != nil {
			s.logger.Error("mark check invalid failed",
				"reference", check.ReferenceID, "error", saveErr)
		}
		return nil, err
	}

	s.logger.Info("identity check submitted",
		"account_id", account.AccountID, "reference", check.ReferenceID)

	// 同步响应已带结果时按回调同样处理，签名校验与幂等逻辑共用
	if result != nil {
		if err := s.HandleCallback(ctx, *result); err != nil {
			return nil, err
		}
		return s.checks.FindByReference(ctx, check.ReferenceID)
	}
	return check, nil
}

// rejectDuplicate 同一证件号出现在其他账户时记风险标记并拒绝
func (s *Service) rejectDuplicate(ctx context.Context, accountID, secret string) error {
	existing, err := s.checks.FindBySecret(ctx, secret)
	if err != nil {
		return err
	}
	for _, check := range existing {
		if check.AccountID == accountID {
			continue
		}
		if err := s.claims.FlagAccount(ctx, accountID,
			claimdomain.FlagDuplicateIdentity,
			"document number already used by another account",
			map[string]string{"other_account_id": check.AccountID}); err != nil {
			s.logger.Error("save duplicate identity flag failed",
				"account_id", accountID, "error", err)
		}
		return domain.ErrDuplicateIdentity
	}
	return nil
}

// HandleCallback 处理服务商回调。签名不符的载荷静默丢弃：
// 只记日志、不改任何状态，响应侧仍然返回 200，不给攻击方探针。
// 未知引用同样只记日志。
func (s *Service) HandleCallback(ctx context.Context, payload domain.CallbackPayload) error {
	if !payload.ValidSignature(s.secretKey) {
		s.logger.Warn("callback signature mismatch, discarded",
			"reference", payload.Reference, "event", payload.Event)
		return nil
	}

	check, err := s.checks.FindByReference(ctx, payload.Reference)
	if err != nil {
		if errors.Is(err, domain.ErrCheckNotFound) {
			s.logger.Warn("callback for unknown reference, discarded",
				"reference", payload.Reference, "event", payload.Event)
			return nil
		}
		return err
	}
	if check.Notified {
		s.logger.Info("callback replay ignored", "reference", payload.Reference)
		return nil
	}

	status := payload.Status()
	// 未知事件不是终态，保持待定并等待真正的结果回调
	if status == domain.CheckStatusPending {
		s.logger.Info("non-terminal callback event ignored",
			"reference", payload.Reference, "event", payload.Event)
		return nil
	}
	check.Status = status
	check.Remarks = payload.Remark()
	if err := s.checks.Save(ctx, check); err != nil {
		return err
	}

	if _, err := s.claims.ApplyIdentityOutcome(ctx, check.AccountID, claimStatusOf(status)); err != nil {
		return err
	}

	check.Notified = true
	if err := s.checks.Save(ctx, check); err != nil {
		return err
	}

	s.logger.Info("identity check resolved",
		"account_id", check.AccountID,
		"reference", check.ReferenceID,
		"status", status.String(),
		"remarks", check.Remarks)
	return nil
}

// History 账户的核验历史，从新到旧
func (s *Service) History(ctx context.Context, accountID string) ([]*domain.IdentityCheck, error) {
	return s.checks.FindByAccount(ctx, accountID)
}

func claimStatusOf(status domain.CheckStatus) claimdomain.IdentityStatus {
	switch status {
	case domain.CheckStatusAccepted:
		return claimdomain.IdentityStatusAccepted
	case domain.CheckStatusDeclined:
		return claimdomain.IdentityStatusDeclined
	case domain.CheckStatusInvalid:
		return claimdomain.IdentityStatusInvalid
	default:
		return claimdomain.IdentityStatusPending
	}
}
