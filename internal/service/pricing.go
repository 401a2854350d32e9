package service

import (
	"math"

	"vehiclerental/internal/domain"
)

// Quote is the price breakdown of a booking.
type Quote struct {
	VehicleID string
	DailyRate float64
	Days      int
	Total     float64
}

// QuoteRental prices a booking as the daily rate times whole days, rounded
// to the currency's minor unit.
func QuoteRental(vehicle *domain.Vehicle, rng domain.DateRange) Quote {
	days := rng.Days()
	total := math.Round(vehicle.DailyRate*float64(days)*100) / 100
	return Quote{
		VehicleID: vehicle.ID,
		DailyRate: vehicle.DailyRate,
		Days:      days,
		Total:     total,
	}
}
