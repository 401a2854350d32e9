package domain

import "time"

// UnitStatus represents the current status of a vehicle unit.
type UnitStatus string

const (
	UnitStatusAvailable    UnitStatus = "available"
	UnitStatusRented       UnitStatus = "rented"
	UnitStatusMaintenance  UnitStatus = "maintenance"
	UnitStatusOutOfService UnitStatus = "out_of_service"
)

// VehicleUnit is one physical, independently bookable instance of a vehicle.
type VehicleUnit struct {
	ID          string
	VehicleID   string
	PlateNumber string
	Status      UnitStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Vehicle is the catalog entry a unit belongs to.
type Vehicle struct {
	ID        string
	Name      string
	DailyRate float64
}
