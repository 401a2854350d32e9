package postgres

import (
	"context"
	"database/sql"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	q Querier
}

var _ repository.UserRepository = (*UserRepository)(nil)

// GetByID retrieves the verification details of a user.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*domain.UserDetails, error) {
	query := `
		SELECT user_id, name, email, phone, ktp_number, ktp_url, ktp_status, sim_number, sim_url, sim_status,
			verification_status, verification_notes, verified_at, created_at, updated_at
		FROM user_details WHERE user_id = $1
	`

	var user domain.UserDetails
	var email, phone, ktpNumber, ktpURL, simNumber, simURL, notes sql.NullString
	var verifiedAt sql.NullTime

	err := r.q.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID,
		&user.Name,
		&email,
		&phone,
		&ktpNumber,
		&ktpURL,
		&user.KTPStatus,
		&simNumber,
		&simURL,
		&user.SIMStatus,
		&user.VerificationStatus,
		&notes,
		&verifiedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	user.Email = email.String
	user.Phone = phone.String
	user.KTPNumber = ktpNumber.String
	user.KTPURL = ktpURL.String
	user.SIMNumber = simNumber.String
	user.SIMURL = simURL.String
	user.VerificationNotes = notes.String
	user.VerifiedAt = verifiedAt.Time

	return &user, nil
}

// Update updates the verification fields of a user.
func (r *UserRepository) Update(ctx context.Context, user *domain.UserDetails) error {
	query := `
		UPDATE user_details
		SET ktp_status = $1, sim_status = $2, verification_status = $3, verification_notes = $4,
			verified_at = $5, updated_at = $6
		WHERE user_id = $7
	`

	result, err := r.q.ExecContext(ctx, query,
		user.KTPStatus,
		user.SIMStatus,
		user.VerificationStatus,
		nullString(user.VerificationNotes),
		nullTime(user.VerifiedAt),
		user.UpdatedAt,
		user.UserID,
	)
	if err != nil {
		return err
	}

	return checkAffected(result)
}
