package repository

import (
	"context"
	"time"

	"vehiclerental/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByRentalID retrieves the payment attached to a rental.
	GetByRentalID(ctx context.Context, rentalID string) (*domain.Payment, error)

	// GetByOrderID retrieves a payment by its gateway order ID.
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)

	// ListPendingBefore retrieves pending payments created before the cutoff.
	// Payments of rentals that already left pending are skipped.
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Payment, error)

	// Update updates an existing payment.
	Update(ctx context.Context, payment *domain.Payment) error
}
