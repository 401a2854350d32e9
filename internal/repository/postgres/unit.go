package postgres

import (
	"context"
	"database/sql"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
)

// UnitRepository is a PostgreSQL implementation of repository.UnitRepository.
type UnitRepository struct {
	q Querier
}

var _ repository.UnitRepository = (*UnitRepository)(nil)

const unitColumns = `id, vehicle_id, plate_number, status, created_at, updated_at`

func scanUnit(row rowScanner) (*domain.VehicleUnit, error) {
	var unit domain.VehicleUnit
	var plate sql.NullString
	if err := row.Scan(
		&unit.ID,
		&unit.VehicleID,
		&plate,
		&unit.Status,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	unit.PlateNumber = plate.String
	return &unit, nil
}

// GetByID retrieves a unit by ID.
func (r *UnitRepository) GetByID(ctx context.Context, id string) (*domain.VehicleUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM vehicle_units WHERE id = $1`
	return scanUnit(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a unit holding a row lock for the rest of the transaction.
func (r *UnitRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.VehicleUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM vehicle_units WHERE id = $1 FOR UPDATE`
	return scanUnit(r.q.QueryRowContext(ctx, query, id))
}

// ListByVehicle retrieves all units of a vehicle.
func (r *UnitRepository) ListByVehicle(ctx context.Context, vehicleID string) ([]*domain.VehicleUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM vehicle_units WHERE vehicle_id = $1 ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []*domain.VehicleUnit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// UpdateStatus updates the status of a unit.
func (r *UnitRepository) UpdateStatus(ctx context.Context, id string, status domain.UnitStatus) error {
	query := `UPDATE vehicle_units SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// VehicleRepository is a PostgreSQL implementation of repository.VehicleRepository.
type VehicleRepository struct {
	q Querier
}

var _ repository.VehicleRepository = (*VehicleRepository)(nil)

// GetByID retrieves a vehicle by ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	query := `SELECT id, name, daily_rate FROM vehicles WHERE id = $1`

	var vehicle domain.Vehicle
	if err := r.q.QueryRowContext(ctx, query, id).Scan(&vehicle.ID, &vehicle.Name, &vehicle.DailyRate); err != nil {
		return nil, mapError(err)
	}
	return &vehicle, nil
}
