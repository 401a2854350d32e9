package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
)

// RentalService handles booking creation, lookup and renter cancellation.
type RentalService struct {
	store    repository.Store
	locker   Locker
	ledger   *Ledger
	gateway  Gateway
	cache    PaymentCache
	notifier *NotificationService
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewRentalService creates a new RentalService. cache may be nil.
func NewRentalService(
	store repository.Store,
	locker Locker,
	ledger *Ledger,
	gateway Gateway,
	cache PaymentCache,
	notifier *NotificationService,
	log logrus.FieldLogger,
) *RentalService {
	return &RentalService{
		store:    store,
		locker:   locker,
		ledger:   ledger,
		gateway:  gateway,
		cache:    cache,
		notifier: notifier,
		log:      log.WithField("component", "rental"),
		now:      time.Now,
	}
}

// CreateRentalRequest contains the parameters for booking a vehicle.
// Exactly one of VehicleID and UnitID is required.
type CreateRentalRequest struct {
	UserID         string
	VehicleID      string
	UnitID         string
	StartDate      time.Time
	EndDate        time.Time
	PickupLocation string
	ReturnLocation string
	Notes          string
}

// CreateRentalResult is the booking plus the checkout the renter must complete.
type CreateRentalResult struct {
	Rental  *domain.Rental
	Payment *domain.Payment
	Quote   Quote
}

// CreateRental books a unit for the period and opens a gateway checkout.
// The rental and payment start pending.
func (s *RentalService) CreateRental(ctx context.Context, req CreateRentalRequest) (*CreateRentalResult, error) {
	if req.UserID == "" {
		return nil, invalid("user_id", "is required")
	}
	if req.VehicleID == "" && req.UnitID == "" {
		return nil, invalid("vehicle_id", "or unit_id is required")
	}

	rng, err := domain.NewDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, invalid("end_date", "must be after start_date")
	}

	user, err := s.store.Users().GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !user.CanRent() {
		return nil, ErrUserNotVerified
	}

	candidates, err := s.candidateUnits(ctx, req)
	if err != nil {
		return nil, err
	}

	vehicleID := candidates[0].VehicleID
	vehicle, err := s.store.Vehicles().GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	quote := QuoteRental(vehicle, rng)

	now := s.now()
	rental := &domain.Rental{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		VehicleID:      vehicleID,
		StartDate:      rng.Start,
		EndDate:        rng.End,
		PickupLocation: strings.TrimSpace(req.PickupLocation),
		ReturnLocation: strings.TrimSpace(req.ReturnLocation),
		Notes:          strings.TrimSpace(req.Notes),
		TotalAmount:    quote.Total,
		Status:         domain.RentalStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	payment := &domain.Payment{
		ID:        uuid.New().String(),
		RentalID:  rental.ID,
		Amount:    quote.Total,
		Status:    domain.PaymentStatusPending,
		Provider:  s.gateway.Name(),
		OrderID:   "RENT-" + strings.ToUpper(strings.ReplaceAll(rental.ID, "-", "")[:16]),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.allocateAny(ctx, candidates, rng, rental, payment); err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateSession(ctx, SessionRequest{
		OrderID:       payment.OrderID,
		RentalID:      rental.ID,
		Amount:        payment.Amount,
		ItemName:      vehicle.Name,
		CustomerName:  user.Name,
		CustomerEmail: user.Email,
	})
	if err != nil {
		s.log.WithError(err).WithField("rental_id", rental.ID).Error("failed to open checkout, releasing booking")
		s.abandon(ctx, rental, payment)
		return nil, err
	}

	payment.SessionToken = session.Token
	payment.RedirectURL = session.RedirectURL
	payment.TransactionID = session.TransactionID
	payment.UpdatedAt = s.now()
	if err := s.store.Payments().Update(ctx, payment); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"rental_id": rental.ID,
		"unit_id":   rental.UnitID,
		"order_id":  payment.OrderID,
		"amount":    payment.Amount,
	}).Info("rental created")

	if s.notifier != nil {
		s.notifier.NotifyRentalCreated(ctx, rental)
	}

	return &CreateRentalResult{Rental: rental, Payment: payment, Quote: quote}, nil
}

func (s *RentalService) candidateUnits(ctx context.Context, req CreateRentalRequest) ([]*domain.VehicleUnit, error) {
	if req.UnitID != "" {
		unit, err := s.store.Units().GetByID(ctx, req.UnitID)
		if err != nil {
			return nil, err
		}
		if req.VehicleID != "" && unit.VehicleID != req.VehicleID {
			return nil, invalid("unit_id", "does not belong to vehicle_id")
		}
		return []*domain.VehicleUnit{unit}, nil
	}

	units, err := s.store.Units().ListByVehicle(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, ErrUnitUnavailable
	}
	return units, nil
}

// allocateAny books the first candidate unit that is free for rng.
func (s *RentalService) allocateAny(ctx context.Context, candidates []*domain.VehicleUnit, rng domain.DateRange, rental *domain.Rental, payment *domain.Payment) error {
	for _, unit := range candidates {
		if unit.Status != domain.UnitStatusAvailable {
			continue
		}

		rental.UnitID = unit.ID
		err := s.ledger.Allocate(ctx, unit.ID, rng, func(tx repository.Store) error {
			if err := tx.Rentals().Create(ctx, rental); err != nil {
				return err
			}
			return tx.Payments().Create(ctx, payment)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrUnitUnavailable) {
			return err
		}
	}

	rental.UnitID = ""
	return ErrUnitUnavailable
}

// abandon cancels a booking whose checkout could not be opened. The payment
// fails in the same write; the gateway never saw the order.
func (s *RentalService) abandon(ctx context.Context, rental *domain.Rental, payment *domain.Payment) {
	now := s.now()
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := TransitionRental(rental, ActionExpire, "checkout unavailable", now); err != nil {
			return err
		}
		if _, err := ApplyPaymentStatus(payment, domain.PaymentStatusFailure, now); err != nil {
			return err
		}
		if err := tx.Rentals().Update(ctx, rental); err != nil {
			return err
		}
		return tx.Payments().Update(ctx, payment)
	})
	if err != nil {
		s.log.WithError(err).WithField("rental_id", rental.ID).Error("failed to release abandoned booking")
	}
}

// GetRental retrieves a rental. A non-empty userID must own it.
func (s *RentalService) GetRental(ctx context.Context, userID, rentalID string) (*domain.Rental, error) {
	if rentalID == "" {
		return nil, invalid("rental_id", "is required")
	}

	rental, err := s.store.Rentals().GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if userID != "" && rental.UserID != userID {
		return nil, ErrForbidden
	}
	return rental, nil
}

// ListRentals retrieves rentals matching the filter.
func (s *RentalService) ListRentals(ctx context.Context, filter repository.RentalFilter) ([]*domain.Rental, error) {
	return s.store.Rentals().List(ctx, filter)
}

// CancelRental cancels a rental on the renter's behalf. It is refused once
// an admin approved the booking.
func (s *RentalService) CancelRental(ctx context.Context, userID, rentalID, reason string) (*domain.Rental, error) {
	if rentalID == "" {
		return nil, invalid("rental_id", "is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "cancelled by renter"
	}

	unlock, err := s.locker.Lock(ctx, rentalLockKey(rentalID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var rental *domain.Rental
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		rental, err = tx.Rentals().GetByID(ctx, rentalID)
		if err != nil {
			return err
		}
		if userID != "" && rental.UserID != userID {
			return ErrForbidden
		}

		wasHolding := rental.HoldsUnit()
		if err := TransitionRental(rental, ActionCancel, reason, s.now()); err != nil {
			return err
		}
		if err := tx.Rentals().Update(ctx, rental); err != nil {
			return err
		}
		if wasHolding {
			return s.ledger.release(ctx, tx, rental.UnitID, rental.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidatePayment(ctx, s.cache, s.log, rentalID)

	s.log.WithField("rental_id", rentalID).Info("rental cancelled by renter")
	if s.notifier != nil {
		s.notifier.NotifyRentalDecision(ctx, rental, ActionCancel)
	}
	return rental, nil
}
