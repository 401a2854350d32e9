package repository

import (
	"context"

	"vehiclerental/internal/domain"
)

// UserRepository defines the persistence operations for user verification details.
type UserRepository interface {
	// GetByID retrieves the details of a user.
	GetByID(ctx context.Context, userID string) (*domain.UserDetails, error)

	// Update updates the verification fields of a user.
	Update(ctx context.Context, user *domain.UserDetails) error
}
