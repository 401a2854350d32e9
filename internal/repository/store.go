package repository

import "context"

// Store groups the repositories that take part in one unit of work.
type Store interface {
	Units() UnitRepository
	Vehicles() VehicleRepository
	Rentals() RentalRepository
	Payments() PaymentRepository
	Users() UserRepository

	// WithTx runs fn against a transaction-scoped Store. The transaction
	// commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
