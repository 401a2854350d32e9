package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
)

var (
	// holdingStatuses keep a unit rented.
	holdingStatuses = []domain.RentalStatus{domain.RentalStatusConfirmed, domain.RentalStatusActive}

	// allocationStatuses block a new booking. A pending rental holds its
	// period until its payment resolves.
	allocationStatuses = []domain.RentalStatus{
		domain.RentalStatusPending,
		domain.RentalStatusConfirmed,
		domain.RentalStatusActive,
	}

	allTime = domain.DateRange{
		Start: time.Time{},
		End:   time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
)

// Ledger tracks unit status and answers availability questions. It is the
// only writer of VehicleUnit.Status.
type Ledger struct {
	store  repository.Store
	locker Locker
	log    logrus.FieldLogger
}

// NewLedger creates a new Ledger.
func NewLedger(store repository.Store, locker Locker, log logrus.FieldLogger) *Ledger {
	return &Ledger{
		store:  store,
		locker: locker,
		log:    log.WithField("component", "ledger"),
	}
}

// IsAvailable reports whether the unit is available and free of confirmed or
// active rentals overlapping rng.
func (l *Ledger) IsAvailable(ctx context.Context, unitID string, rng domain.DateRange) (bool, error) {
	return l.isFree(ctx, l.store, unitID, rng, holdingStatuses, false)
}

func (l *Ledger) isFree(ctx context.Context, st repository.Store, unitID string, rng domain.DateRange, statuses []domain.RentalStatus, forUpdate bool) (bool, error) {
	var unit *domain.VehicleUnit
	var err error
	if forUpdate {
		unit, err = st.Units().GetByIDForUpdate(ctx, unitID)
	} else {
		unit, err = st.Units().GetByID(ctx, unitID)
	}
	if err != nil {
		return false, err
	}

	if unit.Status != domain.UnitStatusAvailable {
		return false, nil
	}

	overlapping, err := st.Rentals().ListOverlapping(ctx, unitID, rng, statuses)
	if err != nil {
		return false, err
	}

	return len(overlapping) == 0, nil
}

// Allocate checks the unit and runs persist in one transaction while holding
// the unit lock, so two overlapping bookings can never both pass the check.
// The loser gets ErrUnitUnavailable.
func (l *Ledger) Allocate(ctx context.Context, unitID string, rng domain.DateRange, persist func(tx repository.Store) error) error {
	unlock, err := l.locker.Lock(ctx, unitLockKey(unitID))
	if err != nil {
		return err
	}
	defer unlock()

	err = l.store.WithTx(ctx, func(tx repository.Store) error {
		free, err := l.isFree(ctx, tx, unitID, rng, allocationStatuses, true)
		if err != nil {
			return err
		}
		if !free {
			return ErrUnitUnavailable
		}
		return persist(tx)
	})
	if errors.Is(err, repository.ErrConflict) {
		// The exclusion constraint caught a booking the lock did not see.
		return ErrUnitUnavailable
	}
	return err
}

// MarkRented moves the unit to rented.
func (l *Ledger) MarkRented(ctx context.Context, unitID string) error {
	return l.markRented(ctx, l.store, unitID)
}

// MarkAvailable returns the unit to the pool. It refuses while a confirmed
// or active rental still references the unit.
func (l *Ledger) MarkAvailable(ctx context.Context, unitID string) error {
	return l.store.WithTx(ctx, func(tx repository.Store) error {
		unit, err := tx.Units().GetByIDForUpdate(ctx, unitID)
		if err != nil {
			return err
		}
		if unit.Status == domain.UnitStatusAvailable {
			return nil
		}

		holders, err := tx.Rentals().ListOverlapping(ctx, unitID, allTime, holdingStatuses)
		if err != nil {
			return err
		}
		if len(holders) > 0 {
			return ErrUnitUnavailable
		}
		return l.setStatus(ctx, tx, unitID, domain.UnitStatusAvailable)
	})
}

// MarkMaintenance takes an idle unit out of the pool.
func (l *Ledger) MarkMaintenance(ctx context.Context, unitID string) error {
	return l.store.WithTx(ctx, func(tx repository.Store) error {
		unit, err := tx.Units().GetByIDForUpdate(ctx, unitID)
		if err != nil {
			return err
		}
		switch unit.Status {
		case domain.UnitStatusMaintenance:
			return nil
		case domain.UnitStatusRented:
			return ErrUnitUnavailable
		}
		return l.setStatus(ctx, tx, unitID, domain.UnitStatusMaintenance)
	})
}

func (l *Ledger) markRented(ctx context.Context, st repository.Store, unitID string) error {
	unit, err := st.Units().GetByID(ctx, unitID)
	if err != nil {
		return err
	}

	switch unit.Status {
	case domain.UnitStatusRented:
		return nil
	case domain.UnitStatusAvailable:
		return l.setStatus(ctx, st, unitID, domain.UnitStatusRented)
	default:
		return ErrUnitUnavailable
	}
}

// release returns a rented unit to available once no other rental holds it.
// Units moved out of rented by an admin are left alone.
func (l *Ledger) release(ctx context.Context, st repository.Store, unitID, rentalID string) error {
	if unitID == "" {
		return nil
	}

	unit, err := st.Units().GetByID(ctx, unitID)
	if err != nil {
		return err
	}
	if unit.Status != domain.UnitStatusRented {
		return nil
	}

	holders, err := st.Rentals().ListOverlapping(ctx, unitID, allTime, holdingStatuses)
	if err != nil {
		return err
	}
	for _, h := range holders {
		if h.ID != rentalID {
			l.log.WithFields(logrus.Fields{"unit_id": unitID, "holder": h.ID}).Debug("unit still held, keeping rented")
			return nil
		}
	}

	return l.setStatus(ctx, st, unitID, domain.UnitStatusAvailable)
}

func (l *Ledger) setStatus(ctx context.Context, st repository.Store, unitID string, status domain.UnitStatus) error {
	if err := st.Units().UpdateStatus(ctx, unitID, status); err != nil {
		return err
	}
	l.log.WithFields(logrus.Fields{"unit_id": unitID, "status": status}).Info("unit status updated")
	return nil
}
