package application

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	claimdomain "github.com/odinlabs/claimportal/internal/claim/domain"
	"github.com/odinlabs/claimportal/internal/identity/domain"
)

type fakeCheckRepo struct {
	checks []*domain.IdentityCheck
}

func (r *fakeCheckRepo) Save(ctx context.Context, check *domain.IdentityCheck) error {
	for i, existing := range r.checks {
		if existing.ReferenceID == check.ReferenceID {
			r.checks[i] = check
			return nil
		}
	}
	r.checks = append(r.checks, check)
	return nil
}

func (r *fakeCheckRepo) FindByReference(ctx context.Context, referenceID string) (*domain.IdentityCheck, error) {
	for _, check := range r.checks {
		if check.ReferenceID == referenceID {
			return check, nil
		}
	}
	return nil, domain.ErrCheckNotFound
}

func (r *fakeCheckRepo) FindByAccount(ctx context.Context, accountID string) ([]*domain.IdentityCheck, error) {
	var out []*domain.IdentityCheck
	// 从新到旧
	for i := len(r.checks) - 1; i >= 0; i-- {
		if r.checks[i].AccountID == accountID {
			out = append(out, r.checks[i])
		}
	}
	return out, nil
}

func (r *fakeCheckRepo) FindBySecret(ctx context.Context, referenceSecret string) ([]*domain.IdentityCheck, error) {
	var out []*domain.IdentityCheck
	for _, check := range r.checks {
		if check.ReferenceSecret == referenceSecret {
			out = append(out, check)
		}
	}
	return out, nil
}

type fakeProvider struct {
	submissions []domain.Submission
	err         error
	// 非空时作为同步响应返回，reference 在返回前填成提交的引用
	syncResult *domain.CallbackPayload
}

func (p *fakeProvider) Submit(ctx context.Context, submission domain.Submission) (*domain.CallbackPayload, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.submissions = append(p.submissions, submission)
	if p.syncResult != nil {
		result := *p.syncResult
		result.Reference = submission.Reference
		result.Signature = domain.CallbackSignature(result.StatusCode, result.Message, result.Reference, "secret")
		return &result, nil
	}
	return nil, nil
}

type fakeClaimPortal struct {
	accounts map[string]*claimdomain.ClaimAccount
	outcomes []claimdomain.IdentityStatus
	flags    []string
}

func newFakeClaimPortal() *fakeClaimPortal {
	return &fakeClaimPortal{accounts: map[string]*claimdomain.ClaimAccount{
		"acct-1": {AccountID: "acct-1", Email: "holder@example.org"},
		"acct-2": {AccountID: "acct-2", Email: "other@example.org"},
	}}
}

func (p *fakeClaimPortal) GetAccount(ctx context.Context, accountID string) (*claimdomain.ClaimAccount, error) {
	account, ok := p.accounts[accountID]
	if !ok {
		return nil, claimdomain.ErrAccountNotFound
	}
	return account, nil
}

func (p *fakeClaimPortal) ApplyIdentityOutcome(ctx context.Context, accountID string, outcome claimdomain.IdentityStatus) (claimdomain.StatusChange, error) {
	p.outcomes = append(p.outcomes, outcome)
	return claimdomain.StatusChange{IdentityStatus: outcome}, nil
}

func (p *fakeClaimPortal) FlagAccount(ctx context.Context, accountID, kind, reason string, extra map[string]string) error {
	p.flags = append(p.flags, accountID+":"+kind)
	return nil
}

func newIdentityService(repo *fakeCheckRepo, provider *fakeProvider, claims *fakeClaimPortal) *Service {
	sweeper := domain.NewSweeper(3, 5, 30*time.Minute)
	return NewService(repo, provider, sweeper, claims, "secret",
		"https://portal.example.org/api/kyc/callback", slog.Default())
}

func submitCmd(accountID string) SubmitCommand {
	return SubmitCommand{
		AccountID:      accountID,
		Country:        "DE",
		DocumentType:   "passport",
		DocumentNumber: "P1234567",
		FirstName:      "Erika",
		LastName:       "Mustermann",
		DateOfBirth:    "1985-02-11",
		DocumentProof:  "ZG9j",
		FaceProof:      "ZmFjZQ==",
	}
}

func TestSubmit(t *testing.T) {
	repo := &fakeCheckRepo{}
	provider := &fakeProvider{}
	svc := newIdentityService(repo, provider, newFakeClaimPortal())

	check, err := svc.Submit(context.Background(), submitCmd("acct-1"))
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if check.ReferenceID == "" {
		t.Error("missing reference id")
	}
	if check.Status != domain.CheckStatusPending {
		t.Errorf("status = %s, want pending", check.Status)
	}
	if check.ReferenceSecret != domain.HashDocumentNumber("P1234567") {
		t.Error("reference secret is not the document number digest")
	}
	if len(provider.submissions) != 1 {
		t.Fatalf("provider submissions = %d, want 1", len(provider.submissions))
	}
	if provider.submissions[0].Reference != check.ReferenceID {
		t.Error("provider submission carries wrong reference")
	}
}

func TestSubmitBlockedBySweeper(t *testing.T) {
	repo := &fakeCheckRepo{}
	for i := 0; i < 3; i++ {
		repo.checks = append(repo.checks, &domain.IdentityCheck{
			AccountID:   "acct-1",
			ReferenceID: domain.HashDocumentNumber(string(rune('a' + i))),
			Status:      domain.CheckStatusDeclined,
		})
	}
	provider := &fakeProvider{}
	svc := newIdentityService(repo, provider, newFakeClaimPortal())

	_, err := svc.Submit(context.Background(), submitCmd("acct-1"))
	if !errors.Is(err, domain.ErrKycMaxDeclines) {
		t.Fatalf("error = %v, want ErrKycMaxDeclines", err)
	}
	if len(provider.submissions) != 0 {
		t.Error("provider must not be called when the gate blocks")
	}
}

func TestSubmitDuplicateIdentity(t *testing.T) {
	repo := &fakeCheckRepo{}
	repo.checks = append(repo.checks, &domain.IdentityCheck{
		AccountID:       "acct-2",
		ReferenceID:     "ref-other",
		ReferenceSecret: domain.HashDocumentNumber("P1234567"),
		Status:          domain.CheckStatusAccepted,
	})
	provider := &fakeProvider{}
	claims := newFakeClaimPortal()
	svc := newIdentityService(repo, provider, claims)

	_, err := svc.Submit(context.Background(), submitCmd("acct-1"))
	if !errors.Is(err, domain.ErrDuplicateIdentity) {
		t.Fatalf("error = %v, want ErrDuplicateIdentity", err)
	}
	if len(provider.submissions) != 0 {
		t.Error("provider must not be called for duplicate identity")
	}
	if len(claims.flags) != 1 || claims.flags[0] != "acct-1:"+claimdomain.FlagDuplicateIdentity {
		t.Errorf("flags = %v, want duplicate identity flag on acct-1", claims.flags)
	}
}

func TestSubmitProviderFailure(t *testing.T) {
	repo := &fakeCheckRepo{}
	provider := &fakeProvider{err: errors.New("provider down")}
	svc := newIdentityService(repo, provider, newFakeClaimPortal())

	if _, err := svc.Submit(context.Background(), submitCmd("acct-1")); err == nil {
		t.Fatal("expected error")
	}
	if len(repo.checks) != 1 {
		t.Fatalf("checks = %d, want 1", len(repo.checks))
	}
	if repo.checks[0].Status != domain.CheckStatusInvalid {
		t.Errorf("status = %s, want invalid", repo.checks[0].Status)
	}
	if repo.checks[0].Remarks != "provider.unreachable" {
		t.Errorf("remarks = %q, want provider.unreachable", repo.checks[0].Remarks)
	}
}

func TestSubmitSynchronousResult(t *testing.T) {
	repo := &fakeCheckRepo{}
	provider := &fakeProvider{syncResult: &domain.CallbackPayload{
		Event:      domain.EventAccepted,
		StatusCode: "SP1",
		Message:    "verified",
	}}
	claims := newFakeClaimPortal()
	svc := newIdentityService(repo, provider, claims)

	check, err := svc.Submit(context.Background(), submitCmd("acct-1"))
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if check.Status != domain.CheckStatusAccepted {
		t.Errorf("status = %s, want accepted", check.Status)
	}
	if !check.Notified {
		t.Error("synchronous terminal result must mark the check notified")
	}
	if len(claims.outcomes) != 1 || claims.outcomes[0] != claimdomain.IdentityStatusAccepted {
		t.Errorf("outcomes = %v, want one accepted", claims.outcomes)
	}
}

func callbackFor(reference, event string) domain.CallbackPayload {
	payload := domain.CallbackPayload{
		Reference:  reference,
		Event:      event,
		StatusCode: "SP1",
		Message:    "processed",
	}
	payload.Signature = domain.CallbackSignature(payload.StatusCode, payload.Message, payload.Reference, "secret")
	return payload
}

func TestHandleCallbackAccepted(t *testing.T) {
	repo := &fakeCheckRepo{}
	claims := newFakeClaimPortal()
	svc := newIdentityService(repo, &fakeProvider{}, claims)

	check, _ := svc.Submit(context.Background(), submitCmd("acct-1"))

	if err := svc.HandleCallback(context.Background(), callbackFor(check.ReferenceID, domain.EventAccepted)); err != nil {
		t.Fatalf("HandleCallback() error: %v", err)
	}

	stored, _ := repo.FindByReference(context.Background(), check.ReferenceID)
	if stored.Status != domain.CheckStatusAccepted {
		t.Errorf("status = %s, want accepted", stored.Status)
	}
	if !stored.Notified {
		t.Error("check not marked notified")
	}
	if len(claims.outcomes) != 1 || claims.outcomes[0] != claimdomain.IdentityStatusAccepted {
		t.Errorf("outcomes = %v, want one accepted", claims.outcomes)
	}
}

func TestHandleCallbackTamperedSignature(t *testing.T) {
	repo := &fakeCheckRepo{}
	claims := newFakeClaimPortal()
	svc := newIdentityService(repo, &fakeProvider{}, claims)

	check, _ := svc.Submit(context.Background(), submitCmd("acct-1"))

	payload := callbackFor(check.ReferenceID, domain.EventAccepted)
	payload.Signature = "forged"

	if err := svc.HandleCallback(context.Background(), payload); err != nil {
		t.Fatalf("HandleCallback() error: %v", err)
	}

	stored, _ := repo.FindByReference(context.Background(), check.ReferenceID)
	if stored.Status != domain.CheckStatusPending {
		t.Errorf("status = %s, tampered callback must not mutate", stored.Status)
	}
	if len(claims.outcomes) != 0 {
		t.Error("tampered callback must not reach the claim context")
	}
}

func TestHandleCallbackReplay(t *testing.T) {
	repo := &fakeCheckRepo{}
	claims := newFakeClaimPortal()
	svc := newIdentityService(repo, &fakeProvider{}, claims)

	check, _ := svc.Submit(context.Background(), submitCmd("acct-1"))
	payload := callbackFor(check.ReferenceID, domain.EventAccepted)

	if err := svc.HandleCallback(context.Background(), payload); err != nil {
		t.Fatalf("first callback error: %v", err)
	}
	if err := svc.HandleCallback(context.Background(), payload); err != nil {
		t.Fatalf("replayed callback error: %v", err)
	}
	if len(claims.outcomes) != 1 {
		t.Errorf("outcomes = %d, replay must not apply twice", len(claims.outcomes))
	}
}

func TestHandleCallbackNonTerminalEvent(t *testing.T) {
	repo := &fakeCheckRepo{}
	claims := newFakeClaimPortal()
	svc := newIdentityService(repo, &fakeProvider{}, claims)

	check, _ := svc.Submit(context.Background(), submitCmd("acct-1"))

	if err := svc.HandleCallback(context.Background(), callbackFor(check.ReferenceID, "request.received")); err != nil {
		t.Fatalf("HandleCallback() error: %v", err)
	}

	stored, _ := repo.FindByReference(context.Background(), check.ReferenceID)
	if stored.Notified {
		t.Error("interim event must not mark the check notified")
	}
	if len(claims.outcomes) != 0 {
		t.Error("interim event must not reach the claim context")
	}

	// 真正的终态回调仍然生效
	if err := svc.HandleCallback(context.Background(), callbackFor(check.ReferenceID, domain.EventAccepted)); err != nil {
		t.Fatalf("terminal callback error: %v", err)
	}
	if len(claims.outcomes) != 1 {
		t.Errorf("outcomes = %d, want 1 after terminal callback", len(claims.outcomes))
	}
}

func TestHandleCallbackUnknownReference(t *testing.T) {
	svc := newIdentityService(&fakeCheckRepo{}, &fakeProvider{}, newFakeClaimPortal())

	if err := svc.HandleCallback(context.Background(), callbackFor("unknown-ref", domain.EventAccepted)); err != nil {
		t.Errorf("unknown reference must be acked, got error: %v", err)
	}
}
