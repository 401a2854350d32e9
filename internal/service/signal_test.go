package service

import "testing"

func TestParseSignal(t *testing.T) {
	t.Parallel()

	tests := map[string]Signal{
		"onPaymentSuccess": SignalSuccess,
		"success":          SignalSuccess,
		"onPaymentPending": SignalPending,
		"onPaymentError":   SignalError,
		"failure":          SignalError,
	}
	for event, want := range tests {
		got, err := ParseSignal(event)
		if err != nil || got != want {
			t.Errorf("ParseSignal(%q) = %q, %v; want %q", event, got, err, want)
		}
	}

	if _, err := ParseSignal("closed"); err == nil {
		t.Error("expected error for unknown event")
	}
}

func TestClassifySignalURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want Signal
	}{
		{"https://app.example/payment/finish?order_id=RENT-1", SignalSuccess},
		{"https://app.example/payment/finish?order_id=RENT-1&transaction_status=pending", SignalPending},
		{"https://app.example/payment/finish?transaction_status=settlement", SignalSuccess},
		{"https://app.example/payment/finish?transaction_status=deny", SignalError},
		{"https://app.example/payment/finish?transaction_status=capture&fraud_status=challenge", SignalPending},
		{"https://app.example/payment/pending", SignalPending},
		{"https://app.example/payment/pending-settlement", SignalSuccess},
		{"https://app.example/payment/error", SignalError},
		{"https://app.example/payment/cancel", SignalError},
		{"https://app.example/payment/success", SignalSuccess},
		{"https://app.example/home", SignalNone},
	}

	for _, tt := range tests {
		if got := ClassifySignalURL(tt.url); got != tt.want {
			t.Errorf("ClassifySignalURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
