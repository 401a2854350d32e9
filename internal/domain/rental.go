package domain

import "time"

// RentalStatus represents the lifecycle status of a rental.
type RentalStatus string

const (
	RentalStatusPending   RentalStatus = "pending"
	RentalStatusConfirmed RentalStatus = "confirmed"
	RentalStatusActive    RentalStatus = "active"
	RentalStatusCompleted RentalStatus = "completed"
	RentalStatusCancelled RentalStatus = "cancelled"
)

// ApprovalStatus represents the admin approval status of a confirmed rental.
// The empty value means approval has not started.
type ApprovalStatus string

const (
	ApprovalStatusNone     ApprovalStatus = ""
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Rental is one booking of a unit over a date range.
type Rental struct {
	ID                  string
	UserID              string
	VehicleID           string
	UnitID              string // empty until a unit is assigned
	StartDate           time.Time
	EndDate             time.Time
	PickupLocation      string
	ReturnLocation      string
	Notes               string
	TotalAmount         float64
	Status              RentalStatus
	AdminApprovalStatus ApprovalStatus
	RejectionReason     string
	CancelReason        string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ConfirmedAt         time.Time
	ApprovedAt          time.Time
	CompletedAt         time.Time
	CancelledAt         time.Time
}

// Range returns the booked period.
func (r *Rental) Range() DateRange {
	return DateRange{Start: r.StartDate, End: r.EndDate}
}

// HoldsUnit reports whether the rental currently keeps its unit out of the pool.
func (r *Rental) HoldsUnit() bool {
	return r.Status == RentalStatusConfirmed || r.Status == RentalStatusActive
}
