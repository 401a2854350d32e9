package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"vehiclerental/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier          = (*sql.DB)(nil)
	_ Querier          = (*sql.Tx)(nil)
	_ repository.Store = (*Store)(nil)
)

// Store is a PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB // nil when the store is bound to a transaction

	units    *UnitRepository
	vehicles *VehicleRepository
	rentals  *RentalRepository
	payments *PaymentRepository
	users    *UserRepository
}

// NewStore creates a store backed by the connection pool.
func NewStore(db *sql.DB) *Store {
	s := newStore(db)
	s.db = db
	return s
}

func newStore(q Querier) *Store {
	return &Store{
		units:    &UnitRepository{q: q},
		vehicles: &VehicleRepository{q: q},
		rentals:  &RentalRepository{q: q},
		payments: &PaymentRepository{q: q},
		users:    &UserRepository{q: q},
	}
}

func (s *Store) Units() repository.UnitRepository       { return s.units }
func (s *Store) Vehicles() repository.VehicleRepository { return s.vehicles }
func (s *Store) Rentals() repository.RentalRepository   { return s.rentals }
func (s *Store) Payments() repository.PaymentRepository { return s.payments }
func (s *Store) Users() repository.UserRepository       { return s.users }

// WithTx runs fn inside a database transaction. Nested calls reuse the
// outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(newStore(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// mapError translates driver errors into repository errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505", "23P01": // unique_violation, exclusion_violation
			return fmt.Errorf("%w: %s", repository.ErrConflict, pqErr.Constraint)
		}
	}
	return err
}

// checkAffected returns ErrNotFound when an UPDATE touched no rows.
func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
