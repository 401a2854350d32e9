package service

import (
	"fmt"
	"strings"
	"time"

	"vehiclerental/internal/domain"
)

// ParsePaymentStatus classifies a gateway transaction status into the closed
// PaymentStatus set. fraudStatus may be empty.
func ParsePaymentStatus(raw, fraudStatus string) (domain.PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "settlement", "settled", "success", "paid":
		return domain.PaymentStatusSettlement, nil
	case "capture", "captured":
		// A captured card payment flagged for review is not paid yet.
		if strings.EqualFold(fraudStatus, "challenge") {
			return domain.PaymentStatusPending, nil
		}
		if strings.EqualFold(fraudStatus, "deny") {
			return domain.PaymentStatusDeny, nil
		}
		return domain.PaymentStatusCapture, nil
	case "pending", "authorize":
		return domain.PaymentStatusPending, nil
	case "deny", "denied":
		return domain.PaymentStatusDeny, nil
	case "cancel", "canceled", "cancelled":
		return domain.PaymentStatusCancel, nil
	case "expire", "expired":
		return domain.PaymentStatusExpire, nil
	case "failure", "failed":
		return domain.PaymentStatusFailure, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGatewayStatus, raw)
}

// Outcome derives the coarse result of a payment status.
func Outcome(s domain.PaymentStatus) domain.PaymentOutcome {
	switch s {
	case domain.PaymentStatusSettlement, domain.PaymentStatusCapture:
		return domain.PaymentOutcomePaid
	case domain.PaymentStatusDeny, domain.PaymentStatusCancel,
		domain.PaymentStatusExpire, domain.PaymentStatusFailure:
		return domain.PaymentOutcomeFailed
	}
	return domain.PaymentOutcomePending
}

// ApplyPaymentStatus moves p to next. Once p is terminal every further
// terminal status is ignored and a pending status fails with ErrStaleUpdate.
// changed reports whether p was modified.
func ApplyPaymentStatus(p *domain.Payment, next domain.PaymentStatus, now time.Time) (changed bool, err error) {
	if p.Status.IsTerminal() {
		if !next.IsTerminal() {
			return false, fmt.Errorf("%w: payment %s is %s, got %s", ErrStaleUpdate, p.ID, p.Status, next)
		}
		return false, nil
	}

	if next == p.Status {
		return false, nil
	}

	p.Status = next
	p.UpdatedAt = now
	if Outcome(next) == domain.PaymentOutcomePaid {
		p.PaidAt = now
	}
	return true, nil
}
