package repository

import (
	"context"

	"vehiclerental/internal/domain"
)

// RentalFilter narrows rental listings. Zero values match everything.
type RentalFilter struct {
	UserID   string
	Status   domain.RentalStatus
	Approval domain.ApprovalStatus
	Limit    int
}

// RentalRepository defines the persistence operations for rentals.
type RentalRepository interface {
	// Create persists a new rental.
	Create(ctx context.Context, rental *domain.Rental) error

	// GetByID retrieves a rental by ID.
	GetByID(ctx context.Context, id string) (*domain.Rental, error)

	// List retrieves rentals matching the filter, newest first.
	List(ctx context.Context, filter RentalFilter) ([]*domain.Rental, error)

	// ListOverlapping retrieves rentals on the unit whose status is one of
	// statuses and whose period overlaps r.
	ListOverlapping(ctx context.Context, unitID string, r domain.DateRange, statuses []domain.RentalStatus) ([]*domain.Rental, error)

	// Update updates an existing rental.
	Update(ctx context.Context, rental *domain.Rental) error
}
