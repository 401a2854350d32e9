package domain

import (
	"errors"
	"time"
)

// ErrInvalidDateRange is returned when a range does not end after it starts.
var ErrInvalidDateRange = errors.New("end date must be after start date")

// DateRange is a half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range truncated to whole UTC days.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: truncateDay(start), End: truncateDay(end)}
	if !r.End.After(r.Start) {
		return DateRange{}, ErrInvalidDateRange
	}
	return r, nil
}

// Overlaps reports whether r and other share any instant.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Days returns the number of whole days covered, at least 1.
func (r DateRange) Days() int {
	days := int(r.End.Sub(r.Start).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
