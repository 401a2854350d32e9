package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
)

func TestLoadSeed(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.LoadSeed(filepath.Join("..", "..", "..", "configs", "seed.example.yaml")))
	ctx := context.Background()

	units, err := store.Units().ListByVehicle(ctx, "veh-avanza")
	require.NoError(t, err)
	assert.Len(t, units, 2)

	budi, err := store.Users().GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, budi.CanRent())

	sari, err := store.Users().GetByID(ctx, "user-2")
	require.NoError(t, err)
	assert.False(t, sari.CanRent())
}

func TestLoadSeed_Errors(t *testing.T) {
	store := NewStore()
	assert.Error(t, store.LoadSeed(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("vehicles: [oops"), 0o600))
	assert.Error(t, store.LoadSeed(bad))
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	start := time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Rentals().Create(ctx, &domain.Rental{
		ID:        "r-1",
		UnitID:    "unit-1",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 2),
		Status:    domain.RentalStatusConfirmed,
	}))
	assert.ErrorIs(t, store.Rentals().Create(ctx, &domain.Rental{ID: "r-1"}), repository.ErrConflict)

	r, err := store.Rentals().GetByID(ctx, "r-1")
	require.NoError(t, err)
	r.Status = domain.RentalStatusCancelled

	again, err := store.Rentals().GetByID(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusConfirmed, again.Status)
}

func TestRentalRepository_ListOverlapping(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	day := func(n int) time.Time { return time.Date(2026, time.November, n, 0, 0, 0, 0, time.UTC) }

	for _, r := range []*domain.Rental{
		{ID: "a", UnitID: "unit-1", StartDate: day(1), EndDate: day(4), Status: domain.RentalStatusConfirmed},
		{ID: "b", UnitID: "unit-1", StartDate: day(4), EndDate: day(6), Status: domain.RentalStatusActive},
		{ID: "c", UnitID: "unit-1", StartDate: day(2), EndDate: day(3), Status: domain.RentalStatusCancelled},
		{ID: "d", UnitID: "unit-2", StartDate: day(2), EndDate: day(3), Status: domain.RentalStatusConfirmed},
	} {
		require.NoError(t, store.Rentals().Create(ctx, r))
	}

	rng, err := domain.NewDateRange(day(3), day(4))
	require.NoError(t, err)

	got, err := store.Rentals().ListOverlapping(ctx, "unit-1", rng,
		[]domain.RentalStatus{domain.RentalStatusConfirmed, domain.RentalStatusActive})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestPaymentRepository_ListPendingBefore(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now()

	for id, status := range map[string]domain.RentalStatus{
		"r-1": domain.RentalStatusPending,
		"r-2": domain.RentalStatusPending,
		"r-3": domain.RentalStatusConfirmed,
		"r-4": domain.RentalStatusCancelled,
	} {
		require.NoError(t, store.Rentals().Create(ctx, &domain.Rental{ID: id, Status: status}))
	}

	require.NoError(t, store.Payments().Create(ctx, &domain.Payment{ID: "p-old", RentalID: "r-1", OrderID: "o-1", Status: domain.PaymentStatusPending, CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.Payments().Create(ctx, &domain.Payment{ID: "p-new", RentalID: "r-2", OrderID: "o-2", Status: domain.PaymentStatusPending, CreatedAt: now}))
	require.NoError(t, store.Payments().Create(ctx, &domain.Payment{ID: "p-paid", RentalID: "r-3", OrderID: "o-3", Status: domain.PaymentStatusSettlement, CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.Payments().Create(ctx, &domain.Payment{ID: "p-abandoned", RentalID: "r-4", OrderID: "o-4", Status: domain.PaymentStatusPending, CreatedAt: now.Add(-2 * time.Hour)}))
	assert.ErrorIs(t, store.Payments().Create(ctx, &domain.Payment{ID: "p-dup", RentalID: "r-1", OrderID: "o-9"}), repository.ErrConflict)

	got, err := store.Payments().ListPendingBefore(ctx, now.Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p-old", got[0].ID)
}
