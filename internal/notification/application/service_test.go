package application

import (
	"context"
	"log/slog"
	"testing"

	"github.com/odinlabs/claimportal/internal/notification/domain"
	"github.com/odinlabs/claimportal/internal/notification/infrastructure/sender"
	"gorm.io/gorm"
)

type fakePrefRepo struct {
	prefs map[string]*domain.Preference
}

func (r *fakePrefRepo) Get(ctx context.Context, accountID string) (*domain.Preference, error) {
	pref, ok := r.prefs[accountID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return pref, nil
}

func (r *fakePrefRepo) Save(ctx context.Context, pref *domain.Preference) error {
	if r.prefs == nil {
		r.prefs = make(map[string]*domain.Preference)
	}
	r.prefs[pref.AccountID] = pref
	return nil
}

func verifiedRecipient() domain.Recipient {
	return domain.Recipient{
		AccountID:     "acct-1",
		Email:         "holder@example.org",
		CountryCode:   "+49",
		Phone:         "15112345678",
		PhoneVerified: true,
	}
}

func testMessage() domain.Message {
	return domain.Message{
		Subject: "Claim Status Updated",
		Body:    "Your claim has been approved.",
		SMS:     "Your claim is approved.",
	}
}

func newNotifyService(prefs domain.PreferenceRepository, mock *sender.MockSender) *Service {
	return NewService(prefs, mock.Email(), mock.SMS(), nil, "", slog.Default())
}

func countChannel(sent []sender.MockMessage, channel string) int {
	n := 0
	for _, msg := range sent {
		if msg.Channel == channel {
			n++
		}
	}
	return n
}

func TestDispatchBothChannels(t *testing.T) {
	mock := sender.NewMockSender()
	svc := newNotifyService(&fakePrefRepo{}, mock)

	svc.dispatch(context.Background(), verifiedRecipient(), testMessage())

	sent := mock.Sent()
	if countChannel(sent, "email") != 1 {
		t.Errorf("emails = %d, want 1", countChannel(sent, "email"))
	}
	if countChannel(sent, "sms") != 1 {
		t.Errorf("sms = %d, want 1", countChannel(sent, "sms"))
	}
	for _, msg := range sent {
		if msg.Channel == "sms" && msg.To != "+4915112345678" {
			t.Errorf("sms to = %q, want prefixed number", msg.To)
		}
	}
}

func TestDispatchSkipsUnverifiedPhone(t *testing.T) {
	mock := sender.NewMockSender()
	svc := newNotifyService(&fakePrefRepo{}, mock)

	recipient := verifiedRecipient()
	recipient.PhoneVerified = false
	svc.dispatch(context.Background(), recipient, testMessage())

	if countChannel(mock.Sent(), "sms") != 0 {
		t.Error("unverified phone must not receive sms")
	}
	if countChannel(mock.Sent(), "email") != 1 {
		t.Error("email should still be sent")
	}
}

func TestDispatchHonorsPreferences(t *testing.T) {
	prefs := &fakePrefRepo{prefs: map[string]*domain.Preference{
		"acct-1": {AccountID: "acct-1", EmailClaim: false, SMSClaim: true},
	}}
	mock := sender.NewMockSender()
	svc := newNotifyService(prefs, mock)

	svc.dispatch(context.Background(), verifiedRecipient(), testMessage())

	if countChannel(mock.Sent(), "email") != 0 {
		t.Error("email disabled by preference must not be sent")
	}
	if countChannel(mock.Sent(), "sms") != 1 {
		t.Error("sms enabled by preference should be sent")
	}
}

func TestDispatchSkipsEmptySMSText(t *testing.T) {
	mock := sender.NewMockSender()
	svc := newNotifyService(&fakePrefRepo{}, mock)

	msg := testMessage()
	msg.SMS = ""
	svc.dispatch(context.Background(), verifiedRecipient(), msg)

	if countChannel(mock.Sent(), "sms") != 0 {
		t.Error("empty sms text must not be sent")
	}
}

func TestUpdatePreference(t *testing.T) {
	prefs := &fakePrefRepo{}
	svc := newNotifyService(prefs, sender.NewMockSender())

	if err := svc.UpdatePreference(context.Background(), "acct-1", false, true); err != nil {
		t.Fatalf("UpdatePreference() error: %v", err)
	}

	stored, err := prefs.Get(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if stored.EmailClaim || !stored.SMSClaim {
		t.Errorf("preference = (%v, %v), want (false, true)", stored.EmailClaim, stored.SMSClaim)
	}
}
