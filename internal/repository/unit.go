package repository

import (
	"context"

	"vehiclerental/internal/domain"
)

// UnitRepository defines the persistence operations for vehicle units.
type UnitRepository interface {
	// GetByID retrieves a unit by ID.
	GetByID(ctx context.Context, id string) (*domain.VehicleUnit, error)

	// GetByIDForUpdate retrieves a unit and locks it until the surrounding
	// transaction ends. Outside a transaction it behaves like GetByID.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.VehicleUnit, error)

	// ListByVehicle retrieves all units of a vehicle ordered by ID.
	ListByVehicle(ctx context.Context, vehicleID string) ([]*domain.VehicleUnit, error)

	// UpdateStatus updates the status of a unit.
	UpdateStatus(ctx context.Context, id string, status domain.UnitStatus) error
}

// VehicleRepository gives read access to the vehicle catalog.
type VehicleRepository interface {
	// GetByID retrieves a vehicle by ID.
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
}
