package service

import (
	"errors"
	"testing"
	"time"

	"vehiclerental/internal/domain"
)

func TestParsePaymentStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw   string
		fraud string
		want  domain.PaymentStatus
	}{
		{"settlement", "", domain.PaymentStatusSettlement},
		{" SETTLEMENT ", "", domain.PaymentStatusSettlement},
		{"capture", "accept", domain.PaymentStatusCapture},
		{"capture", "challenge", domain.PaymentStatusPending},
		{"capture", "deny", domain.PaymentStatusDeny},
		{"pending", "", domain.PaymentStatusPending},
		{"authorize", "", domain.PaymentStatusPending},
		{"deny", "", domain.PaymentStatusDeny},
		{"cancel", "", domain.PaymentStatusCancel},
		{"expire", "", domain.PaymentStatusExpire},
		{"failure", "", domain.PaymentStatusFailure},
	}

	for _, tt := range tests {
		got, err := ParsePaymentStatus(tt.raw, tt.fraud)
		if err != nil {
			t.Errorf("ParsePaymentStatus(%q, %q): unexpected error %v", tt.raw, tt.fraud, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePaymentStatus(%q, %q) = %s, want %s", tt.raw, tt.fraud, got, tt.want)
		}
	}
}

func TestParsePaymentStatus_Unknown(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "refund", "partial_refund", "weird"} {
		if _, err := ParsePaymentStatus(raw, ""); !errors.Is(err, ErrUnknownGatewayStatus) {
			t.Errorf("ParsePaymentStatus(%q): expected ErrUnknownGatewayStatus, got %v", raw, err)
		}
	}
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	tests := map[domain.PaymentStatus]domain.PaymentOutcome{
		domain.PaymentStatusPending:    domain.PaymentOutcomePending,
		domain.PaymentStatusSettlement: domain.PaymentOutcomePaid,
		domain.PaymentStatusCapture:    domain.PaymentOutcomePaid,
		domain.PaymentStatusDeny:       domain.PaymentOutcomeFailed,
		domain.PaymentStatusCancel:     domain.PaymentOutcomeFailed,
		domain.PaymentStatusExpire:     domain.PaymentOutcomeFailed,
		domain.PaymentStatusFailure:    domain.PaymentOutcomeFailed,
	}
	for status, want := range tests {
		if got := Outcome(status); got != want {
			t.Errorf("Outcome(%s) = %s, want %s", status, got, want)
		}
	}
}

func TestApplyPaymentStatus_PendingToSettlement(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)
	p := &domain.Payment{ID: "p-1", Status: domain.PaymentStatusPending}

	changed, err := ApplyPaymentStatus(p, domain.PaymentStatusSettlement, now)
	if err != nil || !changed {
		t.Fatalf("expected change, got changed=%v err=%v", changed, err)
	}
	if p.Status != domain.PaymentStatusSettlement {
		t.Errorf("status = %s", p.Status)
	}
	if !p.PaidAt.Equal(now) {
		t.Errorf("PaidAt = %v, want %v", p.PaidAt, now)
	}
}

func TestApplyPaymentStatus_Monotonic(t *testing.T) {
	t.Parallel()

	p := &domain.Payment{ID: "p-1", Status: domain.PaymentStatusSettlement}

	changed, err := ApplyPaymentStatus(p, domain.PaymentStatusPending, time.Now())
	if !errors.Is(err, ErrStaleUpdate) {
		t.Errorf("expected ErrStaleUpdate, got %v", err)
	}
	if changed || p.Status != domain.PaymentStatusSettlement {
		t.Errorf("terminal payment modified: changed=%v status=%s", changed, p.Status)
	}

	changed, err = ApplyPaymentStatus(p, domain.PaymentStatusExpire, time.Now())
	if err != nil || changed {
		t.Errorf("terminal after terminal: changed=%v err=%v", changed, err)
	}
	if p.Status != domain.PaymentStatusSettlement {
		t.Errorf("status = %s, want settlement", p.Status)
	}
}

func TestApplyPaymentStatus_SameStatusIsNoop(t *testing.T) {
	t.Parallel()

	p := &domain.Payment{ID: "p-1", Status: domain.PaymentStatusPending}
	changed, err := ApplyPaymentStatus(p, domain.PaymentStatusPending, time.Now())
	if err != nil || changed {
		t.Errorf("changed=%v err=%v", changed, err)
	}
}
