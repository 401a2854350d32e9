package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
)

// SessionRequest describes the checkout a gateway should open.
type SessionRequest struct {
	OrderID       string
	RentalID      string
	Amount        float64
	ItemName      string
	CustomerName  string
	CustomerEmail string
}

// Session is an opened gateway checkout.
type Session struct {
	Token         string
	RedirectURL   string
	TransactionID string
}

// GatewayStatus is a transaction status as reported by a gateway, before
// classification.
type GatewayStatus struct {
	OrderID       string
	TransactionID string
	Status        string
	FraudStatus   string
	PaymentType   string
}

// Gateway is the interface for a payment gateway.
type Gateway interface {
	// Name identifies the provider on stored payments.
	Name() string

	// CreateSession opens a checkout for an order.
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)

	// FetchStatus asks the gateway for the current status of an order.
	// Transport failures wrap ErrNetwork, ErrServer, ErrUnauthorized or ErrNotFound.
	FetchStatus(ctx context.Context, orderID, transactionID string) (*GatewayStatus, error)
}

// NotificationParser verifies and decodes a gateway push notification.
type NotificationParser interface {
	ParseNotification(payload []byte, signature string) (*GatewayStatus, error)
}

// MockGateway is an in-memory Gateway for local runs and tests.
type MockGateway struct {
	mu       sync.Mutex
	statuses   map[string]string
	errs       map[string][]error
	sessionErr error

	FetchCount int
}

// NewMockGateway creates a new mock gateway. New orders start pending.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		statuses: make(map[string]string),
		errs:     make(map[string][]error),
	}
}

func (g *MockGateway) Name() string { return "mock" }

// CreateSession registers the order as pending.
func (g *MockGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.sessionErr; err != nil {
		g.sessionErr = nil
		return nil, err
	}
	g.statuses[req.OrderID] = "pending"
	return &Session{
		Token:       "mock-token-" + req.OrderID,
		RedirectURL: "https://mock.gateway.local/pay/" + req.OrderID,
	}, nil
}

// FetchStatus returns the scripted status, consuming one queued error first if any.
func (g *MockGateway) FetchStatus(ctx context.Context, orderID, transactionID string) (*GatewayStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.FetchCount++

	if queued := g.errs[orderID]; len(queued) > 0 {
		g.errs[orderID] = queued[1:]
		return nil, queued[0]
	}

	status, ok := g.statuses[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return &GatewayStatus{
		OrderID:       orderID,
		TransactionID: "mock-trx-" + orderID,
		Status:        status,
	}, nil
}

// SetStatus scripts the status the gateway reports for an order.
func (g *MockGateway) SetStatus(orderID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[orderID] = status
}

// FailCheckout makes the next CreateSession call fail with err.
func (g *MockGateway) FailCheckout(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessionErr = err
}

// FailNext queues errors returned by the next FetchStatus calls for an order.
func (g *MockGateway) FailNext(orderID string, errs ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[orderID] = append(g.errs[orderID], errs...)
}

// PaymentView is the canonical payment state of a rental.
type PaymentView struct {
	Payment        *domain.Payment
	RentalStatus   domain.RentalStatus
	ApprovalStatus domain.ApprovalStatus
}

// Outcome derives the coarse payment result.
func (v *PaymentView) Outcome() domain.PaymentOutcome {
	return Outcome(v.Payment.Status)
}

// PaymentCache caches payment views. Implementations may drop entries at any time.
type PaymentCache interface {
	GetPayment(ctx context.Context, rentalID string) (*PaymentView, error)
	SetPayment(ctx context.Context, view *PaymentView) error
	InvalidatePayment(ctx context.Context, rentalID string) error
}

// PaymentService owns payment state and drives rentals from payment results.
type PaymentService struct {
	store    repository.Store
	locker   Locker
	ledger   *Ledger
	gateway  Gateway
	cache    PaymentCache
	notifier *NotificationService
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewPaymentService creates a new PaymentService. cache may be nil.
func NewPaymentService(
	store repository.Store,
	locker Locker,
	ledger *Ledger,
	gateway Gateway,
	cache PaymentCache,
	notifier *NotificationService,
	log logrus.FieldLogger,
) *PaymentService {
	return &PaymentService{
		store:    store,
		locker:   locker,
		ledger:   ledger,
		gateway:  gateway,
		cache:    cache,
		notifier: notifier,
		log:      log.WithField("component", "payment"),
		now:      time.Now,
	}
}

// FetchPaymentStatus returns the stored payment of a rental.
func (s *PaymentService) FetchPaymentStatus(ctx context.Context, rentalID string) (*PaymentView, error) {
	if rentalID == "" {
		return nil, invalid("rental_id", "is required")
	}

	if s.cache != nil {
		if view, err := s.cache.GetPayment(ctx, rentalID); err == nil && view != nil {
			return view, nil
		}
	}

	view, err := s.loadView(ctx, s.store, rentalID)
	if err != nil {
		return nil, err
	}
	if s.cache == nil {
		return view, nil
	}

	if err := s.cache.SetPayment(ctx, view); err != nil {
		s.log.WithError(err).Warn("failed to cache payment")
		return view, nil
	}

	// A writer that committed after the load may have invalidated before
	// the fill. Its commit is visible to this reload, so drop the entry.
	fresh, err := s.loadView(ctx, s.store, rentalID)
	if err != nil {
		return nil, err
	}
	if !sameView(view, fresh) {
		s.invalidate(ctx, rentalID)
	}
	return fresh, nil
}

func sameView(a, b *PaymentView) bool {
	return a.RentalStatus == b.RentalStatus &&
		a.ApprovalStatus == b.ApprovalStatus &&
		a.Payment.Status == b.Payment.Status &&
		a.Payment.UpdatedAt.Equal(b.Payment.UpdatedAt)
}

// ForceReconcile asks the gateway for the true status of a rental's payment
// and applies it. A terminal payment is returned as is without a gateway call.
func (s *PaymentService) ForceReconcile(ctx context.Context, rentalID string) (*PaymentView, error) {
	if rentalID == "" {
		return nil, invalid("rental_id", "is required")
	}

	payment, err := s.store.Payments().GetByRentalID(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	if payment.Status.IsTerminal() {
		return s.loadView(ctx, s.store, rentalID)
	}

	status, err := s.gateway.FetchStatus(ctx, payment.OrderID, payment.TransactionID)
	if err != nil {
		s.log.WithError(err).WithField("rental_id", rentalID).Warn("gateway status fetch failed")
		return nil, err
	}

	return s.apply(ctx, payment.RentalID, status, "reconcile")
}

// HandleNotification applies a verified gateway push notification.
func (s *PaymentService) HandleNotification(ctx context.Context, status *GatewayStatus) (*PaymentView, error) {
	if status == nil || status.OrderID == "" {
		return nil, invalid("order_id", "is required")
	}

	payment, err := s.store.Payments().GetByOrderID(ctx, status.OrderID)
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, payment.RentalID, status, "notification")
}

// apply classifies a gateway status and moves the payment and its rental
// under the rental lock. Stale updates are logged and dropped.
func (s *PaymentService) apply(ctx context.Context, rentalID string, report *GatewayStatus, source string) (*PaymentView, error) {
	next, err := ParsePaymentStatus(report.Status, report.FraudStatus)
	if err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"rental_id": rentalID,
		"order_id":  report.OrderID,
		"status":    next,
		"source":    source,
	})

	unlock, err := s.locker.Lock(ctx, rentalLockKey(rentalID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		view    *PaymentView
		changed bool
		rental  *domain.Rental
	)

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		payment, err := tx.Payments().GetByRentalID(ctx, rentalID)
		if err != nil {
			return err
		}
		rental, err = tx.Rentals().GetByID(ctx, rentalID)
		if err != nil {
			return err
		}

		now := s.now()
		changed, err = ApplyPaymentStatus(payment, next, now)
		if err != nil {
			return err
		}

		if changed {
			if report.TransactionID != "" {
				payment.TransactionID = report.TransactionID
			}
			if report.PaymentType != "" {
				payment.PaymentType = report.PaymentType
			}
			if err := tx.Payments().Update(ctx, payment); err != nil {
				return err
			}
			if err := s.settleRental(ctx, tx, rental, payment, now, log); err != nil {
				return err
			}
		}

		view = &PaymentView{
			Payment:        payment,
			RentalStatus:   rental.Status,
			ApprovalStatus: rental.AdminApprovalStatus,
		}
		return nil
	})

	if errors.Is(err, ErrStaleUpdate) {
		log.WithError(err).Warn("ignoring stale payment update")
		return s.loadView(ctx, s.store, rentalID)
	}
	if err != nil {
		return nil, err
	}

	if changed {
		log.Info("payment status updated")
		s.invalidate(ctx, rentalID)
		if s.notifier != nil {
			s.notifier.NotifyPaymentResult(ctx, rental, view.Payment)
		}
	}

	return view, nil
}

// settleRental moves a pending rental once its payment is terminal.
func (s *PaymentService) settleRental(ctx context.Context, tx repository.Store, rental *domain.Rental, payment *domain.Payment, now time.Time, log logrus.FieldLogger) error {
	outcome := Outcome(payment.Status)
	if outcome == domain.PaymentOutcomePending {
		return nil
	}

	if rental.Status != domain.RentalStatusPending {
		// The renter cancelled while the gateway was still processing.
		if outcome == domain.PaymentOutcomePaid {
			log.WithField("rental_status", rental.Status).Warn("payment settled for a rental that is no longer pending, refund required")
		}
		return nil
	}

	if outcome == domain.PaymentOutcomeFailed {
		if err := TransitionRental(rental, ActionExpire, "payment "+string(payment.Status), now); err != nil {
			return err
		}
		return tx.Rentals().Update(ctx, rental)
	}

	if err := TransitionRental(rental, ActionConfirm, "", now); err != nil {
		return err
	}
	if err := tx.Rentals().Update(ctx, rental); err != nil {
		return err
	}

	if rental.UnitID != "" {
		if err := s.ledger.markRented(ctx, tx, rental.UnitID); err != nil {
			if !errors.Is(err, ErrUnitUnavailable) {
				return err
			}
			// Payment is authoritative; the admin resolves the unit on review.
			log.WithField("unit_id", rental.UnitID).Warn("confirmed rental's unit is out of service")
		}
	}
	return nil
}

func (s *PaymentService) loadView(ctx context.Context, st repository.Store, rentalID string) (*PaymentView, error) {
	rental, err := st.Rentals().GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	payment, err := st.Payments().GetByRentalID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	return &PaymentView{
		Payment:        payment,
		RentalStatus:   rental.Status,
		ApprovalStatus: rental.AdminApprovalStatus,
	}, nil
}

func (s *PaymentService) invalidate(ctx context.Context, rentalID string) {
	invalidatePayment(ctx, s.cache, s.log, rentalID)
}

// invalidatePayment drops the cached view of a rental after any committed
// change to its payment or rental status.
func invalidatePayment(ctx context.Context, cache PaymentCache, log logrus.FieldLogger, rentalID string) {
	if cache == nil {
		return
	}
	if err := cache.InvalidatePayment(ctx, rentalID); err != nil {
		log.WithError(err).WithField("rental_id", rentalID).Warn("failed to invalidate cached payment")
	}
}

// ReconcileStale force-reconciles pending payments older than minAge. It
// returns how many payments reached a terminal status.
func (s *PaymentService) ReconcileStale(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	payments, err := s.store.Payments().ListPendingBefore(ctx, s.now().Add(-minAge), limit)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, p := range payments {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}
		view, err := s.ForceReconcile(ctx, p.RentalID)
		if err != nil {
			s.log.WithError(err).WithField("rental_id", p.RentalID).Warn("stale payment reconcile failed")
			continue
		}
		if view.Payment.Status.IsTerminal() {
			resolved++
		}
	}
	return resolved, nil
}
