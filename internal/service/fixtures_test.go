package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository/memory"
)

const (
	testVehicle    = "veh-1"
	testUnit       = "unit-1"
	testUnit2      = "unit-2"
	testUser       = "user-1"
	testUnverified = "user-2"
)

func nullLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func day(n int) time.Time {
	return time.Date(2026, time.November, n, 0, 0, 0, 0, time.UTC)
}

// fixture wires every service over the in-memory store, a local locker and
// the mock gateway.
type fixture struct {
	store        *memory.Store
	locker       *LocalLocker
	gateway      *MockGateway
	ledger       *Ledger
	rentals      *RentalService
	payments     *PaymentService
	approvals    *ApprovalService
	verification *VerificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := nullLogger()
	store := memory.NewStore()
	now := time.Now()

	store.AddVehicle(&domain.Vehicle{ID: testVehicle, Name: "Toyota Avanza", DailyRate: 350000})
	for _, id := range []string{testUnit, testUnit2} {
		store.AddUnit(&domain.VehicleUnit{
			ID:        id,
			VehicleID: testVehicle,
			Status:    domain.UnitStatusAvailable,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	store.AddUser(&domain.UserDetails{
		UserID:             testUser,
		Name:               "Budi",
		Email:              "budi@example.com",
		KTPStatus:          domain.VerificationVerified,
		SIMStatus:          domain.VerificationVerified,
		VerificationStatus: domain.VerificationVerified,
	})
	store.AddUser(&domain.UserDetails{
		UserID:             testUnverified,
		Name:               "Sari",
		Email:              "sari@example.com",
		KTPStatus:          domain.VerificationPending,
		SIMStatus:          domain.VerificationPending,
		VerificationStatus: domain.VerificationPending,
	})

	locker := NewLocalLocker()
	gw := NewMockGateway()
	notifier := NewNotificationService(log)
	ledger := NewLedger(store, locker, log)

	return &fixture{
		store:        store,
		locker:       locker,
		gateway:      gw,
		ledger:       ledger,
		rentals:      NewRentalService(store, locker, ledger, gw, nil, notifier, log),
		payments:     NewPaymentService(store, locker, ledger, gw, nil, notifier, log),
		approvals:    NewApprovalService(store, locker, ledger, nil, notifier, log),
		verification: NewVerificationService(store, locker, notifier, log),
	}
}

// book creates a pending rental of unit over [start, end).
func (f *fixture) book(t *testing.T, unitID string, start, end time.Time) *CreateRentalResult {
	t.Helper()

	res, err := f.rentals.CreateRental(context.Background(), CreateRentalRequest{
		UserID:    testUser,
		UnitID:    unitID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		t.Fatalf("CreateRental: %v", err)
	}
	return res
}

// settle makes the gateway report status for the rental and reconciles it.
func (f *fixture) settle(t *testing.T, res *CreateRentalResult, status string) *PaymentView {
	t.Helper()

	f.gateway.SetStatus(res.Payment.OrderID, status)
	view, err := f.payments.ForceReconcile(context.Background(), res.Rental.ID)
	if err != nil {
		t.Fatalf("ForceReconcile: %v", err)
	}
	return view
}

// confirmed books and pays for a rental, leaving it awaiting approval.
func (f *fixture) confirmed(t *testing.T, unitID string, start, end time.Time) *domain.Rental {
	t.Helper()

	res := f.book(t, unitID, start, end)
	f.settle(t, res, "settlement")
	return f.rental(t, res.Rental.ID)
}

func (f *fixture) rental(t *testing.T, id string) *domain.Rental {
	t.Helper()

	r, err := f.store.Rentals().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get rental %s: %v", id, err)
	}
	return r
}

func (f *fixture) unitStatus(t *testing.T, id string) domain.UnitStatus {
	t.Helper()

	u, err := f.store.Units().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get unit %s: %v", id, err)
	}
	return u.Status
}
