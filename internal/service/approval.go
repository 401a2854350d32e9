package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
)

// ApprovalService moves paid rentals through admin review. Operations on one
// rental never interleave; the first caller whose guard holds wins and later
// callers see the new state.
type ApprovalService struct {
	store    repository.Store
	locker   Locker
	ledger   *Ledger
	cache    PaymentCache
	notifier *NotificationService
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewApprovalService creates a new ApprovalService. cache may be nil.
func NewApprovalService(
	store repository.Store,
	locker Locker,
	ledger *Ledger,
	cache PaymentCache,
	notifier *NotificationService,
	log logrus.FieldLogger,
) *ApprovalService {
	return &ApprovalService{
		store:    store,
		locker:   locker,
		ledger:   ledger,
		cache:    cache,
		notifier: notifier,
		log:      log.WithField("component", "approval"),
		now:      time.Now,
	}
}

// Approve activates a confirmed rental awaiting approval and marks its unit rented.
func (s *ApprovalService) Approve(ctx context.Context, rentalID string) (*domain.Rental, error) {
	return s.decide(ctx, rentalID, ActionApprove, "", func(tx repository.Store, r *domain.Rental) error {
		if r.UnitID == "" {
			return ErrUnitUnavailable
		}
		return s.ledger.markRented(ctx, tx, r.UnitID)
	})
}

// Reject cancels a confirmed rental awaiting approval and releases its unit.
// reason must not be blank.
func (s *ApprovalService) Reject(ctx context.Context, rentalID, reason string) (*domain.Rental, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, invalid("reason", "is required")
	}
	return s.decide(ctx, rentalID, ActionReject, reason, func(tx repository.Store, r *domain.Rental) error {
		return s.ledger.release(ctx, tx, r.UnitID, r.ID)
	})
}

// Complete closes an active rental and returns its unit to the pool.
func (s *ApprovalService) Complete(ctx context.Context, rentalID string) (*domain.Rental, error) {
	return s.decide(ctx, rentalID, ActionComplete, "", func(tx repository.Store, r *domain.Rental) error {
		return s.ledger.release(ctx, tx, r.UnitID, r.ID)
	})
}

// decide loads the rental under its lock, checks the guard, and commits the
// transition together with the unit side effect.
func (s *ApprovalService) decide(
	ctx context.Context,
	rentalID string,
	action RentalAction,
	reason string,
	effect func(tx repository.Store, r *domain.Rental) error,
) (*domain.Rental, error) {
	if rentalID == "" {
		return nil, invalid("rental_id", "is required")
	}

	unlock, err := s.locker.Lock(ctx, rentalLockKey(rentalID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var rental *domain.Rental
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := tx.Rentals().GetByID(ctx, rentalID)
		if err != nil {
			return err
		}

		if err := TransitionRental(current, action, reason, s.now()); err != nil {
			return err
		}
		if err := effect(tx, current); err != nil {
			return err
		}
		if err := tx.Rentals().Update(ctx, current); err != nil {
			return err
		}

		rental = current
		return nil
	})
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"rental_id": rentalID, "action": action}).Warn("admin action refused")
		return nil, err
	}
	invalidatePayment(ctx, s.cache, s.log, rentalID)

	s.log.WithFields(logrus.Fields{
		"rental_id": rentalID,
		"action":    action,
		"status":    rental.Status,
		"unit_id":   rental.UnitID,
	}).Info("admin action applied")

	if s.notifier != nil {
		s.notifier.NotifyRentalDecision(ctx, rental, action)
	}
	return rental, nil
}
