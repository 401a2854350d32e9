package domain

import "time"

// PaymentStatus mirrors the gateway transaction status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusSettlement PaymentStatus = "settlement"
	PaymentStatusCapture    PaymentStatus = "capture"
	PaymentStatusDeny       PaymentStatus = "deny"
	PaymentStatusCancel     PaymentStatus = "cancel"
	PaymentStatusExpire     PaymentStatus = "expire"
	PaymentStatusFailure    PaymentStatus = "failure"
)

// IsTerminal reports whether no further transitions are possible.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusSettlement, PaymentStatusCapture,
		PaymentStatusDeny, PaymentStatusCancel, PaymentStatusExpire, PaymentStatusFailure:
		return true
	}
	return false
}

// PaymentOutcome is the coarse result derived from a PaymentStatus.
type PaymentOutcome string

const (
	PaymentOutcomePaid    PaymentOutcome = "paid"
	PaymentOutcomePending PaymentOutcome = "pending"
	PaymentOutcomeFailed  PaymentOutcome = "failed"
)

// Payment is the single payment attempt attached to a rental.
type Payment struct {
	ID            string
	RentalID      string
	Amount        float64
	Status        PaymentStatus
	Provider      string
	OrderID       string
	TransactionID string
	PaymentType   string
	SessionToken  string
	RedirectURL   string
	PaidAt        time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
