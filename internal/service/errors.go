package service

import (
	"errors"
	"fmt"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
)

var (
	// ErrInvalidTransition is returned when a rental state guard is not satisfied.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrStaleUpdate is returned when a pending status arrives after a terminal one.
	ErrStaleUpdate = errors.New("stale payment update")

	// ErrUnitUnavailable is returned when a unit cannot be allocated for a period.
	ErrUnitUnavailable = errors.New("unit unavailable")

	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation error")

	// ErrNetwork is returned when the payment gateway could not be reached.
	ErrNetwork = errors.New("network error")

	// ErrServer is returned when the payment gateway failed with a 5xx.
	ErrServer = errors.New("server error")

	// ErrUnauthorized is returned when the gateway rejected our credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when a rental, payment, unit or user does not exist.
	ErrNotFound = repository.ErrNotFound

	// ErrUserNotVerified is returned when an unverified user tries to rent.
	ErrUserNotVerified = errors.New("user identity not verified")

	// ErrBusy is returned when a lock could not be acquired in time.
	ErrBusy = errors.New("resource busy, retry later")

	// ErrUnknownGatewayStatus is returned for gateway status strings outside the known set.
	ErrUnknownGatewayStatus = errors.New("unknown gateway status")

	// ErrInvalidSignature is returned when a gateway notification fails verification.
	ErrInvalidSignature = errors.New("invalid notification signature")

	// ErrForbidden is returned when a user acts on another user's rental.
	ErrForbidden = errors.New("forbidden")
)

// TransitionError describes a rejected rental transition.
type TransitionError struct {
	RentalID string
	From     domain.RentalStatus
	Approval domain.ApprovalStatus
	Action   string
}

func (e *TransitionError) Error() string {
	state := string(e.From)
	if e.Approval != domain.ApprovalStatusNone {
		state += "/" + string(e.Approval)
	}
	return fmt.Sprintf("invalid transition: cannot %s rental %s in state %s", e.Action, e.RentalID, state)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError reports malformed input on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
