package service

import (
	"net/url"
	"strings"

	"vehiclerental/internal/domain"
)

// Signal is a payment result reported by the embedded checkout page.
type Signal string

const (
	SignalNone    Signal = ""
	SignalSuccess Signal = "success"
	SignalPending Signal = "pending"
	SignalError   Signal = "error"
)

// Navigation is where the client should go next. It may be optimistic and
// never feeds back into rental guards.
type Navigation string

const (
	NavigateNone    Navigation = ""
	NavigateSuccess Navigation = "success"
	NavigatePending Navigation = "pending"
	NavigateError   Navigation = "error"
)

// ParseSignal accepts checkout event names as sent by the web and mobile bridges.
func ParseSignal(event string) (Signal, error) {
	switch strings.ToLower(strings.TrimSpace(event)) {
	case "success", "onpaymentsuccess", "payment_success":
		return SignalSuccess, nil
	case "pending", "onpaymentpending", "payment_pending":
		return SignalPending, nil
	case "error", "onpaymenterror", "payment_error", "failure":
		return SignalError, nil
	}
	return SignalNone, invalid("event", "must be one of success, pending, error")
}

var (
	successKeywords = []string{"finish", "success", "settlement", "capture"}
	failureKeywords = []string{"error", "failure", "deny", "cancel"}
)

// ClassifySignalURL derives a signal from a URL the checkout page navigated
// to. An explicit transaction_status query parameter wins; otherwise the URL
// is matched by keyword, pending first unless settlement is present, then
// failure, then success.
func ClassifySignalURL(raw string) Signal {
	if u, err := url.Parse(raw); err == nil {
		if status := u.Query().Get("transaction_status"); status != "" {
			if parsed, err := ParsePaymentStatus(status, u.Query().Get("fraud_status")); err == nil {
				return signalForOutcome(Outcome(parsed))
			}
		}
	}

	lower := strings.ToLower(raw)
	if strings.Contains(lower, "pending") && !strings.Contains(lower, "settlement") {
		return SignalPending
	}
	if containsAny(lower, failureKeywords) {
		return SignalError
	}
	if containsAny(lower, successKeywords) {
		return SignalSuccess
	}
	return SignalNone
}

func signalForOutcome(o domain.PaymentOutcome) Signal {
	switch o {
	case domain.PaymentOutcomePaid:
		return SignalSuccess
	case domain.PaymentOutcomeFailed:
		return SignalError
	}
	return SignalPending
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
