package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
)

// RentalRepository is a PostgreSQL implementation of repository.RentalRepository.
type RentalRepository struct {
	q Querier
}

var _ repository.RentalRepository = (*RentalRepository)(nil)

const rentalColumns = `id, user_id, vehicle_id, unit_id, start_date, end_date, pickup_location, return_location, notes,
	total_amount, status, admin_approval_status, rejection_reason, cancel_reason,
	created_at, updated_at, confirmed_at, approved_at, completed_at, cancelled_at`

func scanRental(row rowScanner) (*domain.Rental, error) {
	var rental domain.Rental
	var unitID, pickup, dropoff, notes, approval, rejection, cancelReason sql.NullString
	var confirmedAt, approvedAt, completedAt, cancelledAt sql.NullTime

	if err := row.Scan(
		&rental.ID,
		&rental.UserID,
		&rental.VehicleID,
		&unitID,
		&rental.StartDate,
		&rental.EndDate,
		&pickup,
		&dropoff,
		&notes,
		&rental.TotalAmount,
		&rental.Status,
		&approval,
		&rejection,
		&cancelReason,
		&rental.CreatedAt,
		&rental.UpdatedAt,
		&confirmedAt,
		&approvedAt,
		&completedAt,
		&cancelledAt,
	); err != nil {
		return nil, mapError(err)
	}

	rental.UnitID = unitID.String
	rental.PickupLocation = pickup.String
	rental.ReturnLocation = dropoff.String
	rental.Notes = notes.String
	rental.AdminApprovalStatus = domain.ApprovalStatus(approval.String)
	rental.RejectionReason = rejection.String
	rental.CancelReason = cancelReason.String
	rental.ConfirmedAt = confirmedAt.Time
	rental.ApprovedAt = approvedAt.Time
	rental.CompletedAt = completedAt.Time
	rental.CancelledAt = cancelledAt.Time

	return &rental, nil
}

// Create persists a new rental.
func (r *RentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	query := `
		INSERT INTO rentals (` + rentalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.q.ExecContext(ctx, query,
		rental.ID,
		rental.UserID,
		rental.VehicleID,
		nullString(rental.UnitID),
		rental.StartDate,
		rental.EndDate,
		nullString(rental.PickupLocation),
		nullString(rental.ReturnLocation),
		nullString(rental.Notes),
		rental.TotalAmount,
		rental.Status,
		nullString(string(rental.AdminApprovalStatus)),
		nullString(rental.RejectionReason),
		nullString(rental.CancelReason),
		rental.CreatedAt,
		rental.UpdatedAt,
		nullTime(rental.ConfirmedAt),
		nullTime(rental.ApprovedAt),
		nullTime(rental.CompletedAt),
		nullTime(rental.CancelledAt),
	)

	return mapError(err)
}

// GetByID retrieves a rental by ID.
func (r *RentalRepository) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	return scanRental(r.q.QueryRowContext(ctx, query, id))
}

// List retrieves rentals matching the filter, newest first.
func (r *RentalRepository) List(ctx context.Context, filter repository.RentalFilter) ([]*domain.Rental, error) {
	var conds []string
	var args []any

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Approval != "" {
		args = append(args, filter.Approval)
		conds = append(conds, fmt.Sprintf("admin_approval_status = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := `SELECT ` + rentalColumns + ` FROM rentals`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	return r.queryRentals(ctx, query, args...)
}

// ListOverlapping retrieves rentals on the unit in one of statuses that overlap rng.
func (r *RentalRepository) ListOverlapping(ctx context.Context, unitID string, rng domain.DateRange, statuses []domain.RentalStatus) ([]*domain.Rental, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query := `
		SELECT ` + rentalColumns + ` FROM rentals
		WHERE unit_id = $1 AND status = ANY($2) AND start_date < $4 AND $3 < end_date
	`

	return r.queryRentals(ctx, query, unitID, pq.Array(names), rng.Start, rng.End)
}

func (r *RentalRepository) queryRentals(ctx context.Context, query string, args ...any) ([]*domain.Rental, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []*domain.Rental
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, rental)
	}
	return rentals, rows.Err()
}

// Update updates an existing rental.
func (r *RentalRepository) Update(ctx context.Context, rental *domain.Rental) error {
	query := `
		UPDATE rentals
		SET unit_id = $1, status = $2, admin_approval_status = $3, rejection_reason = $4, cancel_reason = $5,
			updated_at = $6, confirmed_at = $7, approved_at = $8, completed_at = $9, cancelled_at = $10
		WHERE id = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(rental.UnitID),
		rental.Status,
		nullString(string(rental.AdminApprovalStatus)),
		nullString(rental.RejectionReason),
		nullString(rental.CancelReason),
		rental.UpdatedAt,
		nullTime(rental.ConfirmedAt),
		nullTime(rental.ApprovedAt),
		nullTime(rental.CompletedAt),
		nullTime(rental.CancelledAt),
		rental.ID,
	)
	if err != nil {
		return mapError(err)
	}

	return checkAffected(result)
}
