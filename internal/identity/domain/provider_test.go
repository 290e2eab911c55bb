package domain

import "testing"

func TestCallbackSignature(t *testing.T) {
	payload := CallbackPayload{
		Reference:  "ref-1",
		Event:      EventAccepted,
		StatusCode: "SP1",
		Message:    "verified",
	}
	payload.Signature = CallbackSignature(payload.StatusCode, payload.Message, payload.Reference, "secret")

	if !payload.ValidSignature("secret") {
		t.Error("valid signature rejected")
	}
	if payload.ValidSignature("other-secret") {
		t.Error("signature accepted with wrong secret")
	}

	tampered := payload
	tampered.Message = "declined"
	if tampered.ValidSignature("secret") {
		t.Error("tampered payload accepted")
	}
}

func TestCallbackStatus(t *testing.T) {
	tests := []struct {
		event string
		want  CheckStatus
	}{
		{EventAccepted, CheckStatusAccepted},
		{EventDeclined, CheckStatusDeclined},
		{EventInvalid, CheckStatusInvalid},
		{"request.pending", CheckStatusPending},
		{"", CheckStatusPending},
	}
	for _, tt := range tests {
		if got := (CallbackPayload{Event: tt.event}).Status(); got != tt.want {
			t.Errorf("Status(%q) = %s, want %s", tt.event, got, tt.want)
		}
	}
}

func TestCallbackRemark(t *testing.T) {
	declined := CallbackPayload{
		Event: EventDeclined,
		VerificationResult: map[string]any{
			"document": map[string]any{"face_match": float64(0)},
		},
	}
	if got := declined.Remark(); got != "document.face_match" {
		t.Errorf("declined remark = %q, want document.face_match", got)
	}

	declinedNoDetail := CallbackPayload{Event: EventDeclined, Message: "documents rejected"}
	if got := declinedNoDetail.Remark(); got != "documents rejected" {
		t.Errorf("declined remark = %q, want provider message", got)
	}

	inactive := CallbackPayload{Event: EventInvalid, Message: "Your account is NOT ACTIVE"}
	if got := inactive.Remark(); got != "provider.inactive" {
		t.Errorf("inactive remark = %q, want provider.inactive", got)
	}

	serviceKey := CallbackPayload{Event: EventInvalid, Service: "face", Key: "proof", Message: "bad image"}
	if got := serviceKey.Remark(); got != "face.proof" {
		t.Errorf("service key remark = %q, want face.proof", got)
	}

	accepted := CallbackPayload{Event: EventAccepted}
	if got := accepted.Remark(); got != "" {
		t.Errorf("accepted remark = %q, want empty", got)
	}
}
