package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/service"
)

func testView() *service.PaymentView {
	paidAt := time.Date(2026, time.November, 3, 10, 0, 0, 0, time.UTC)
	return &service.PaymentView{
		Payment: &domain.Payment{
			ID:            "p-1",
			RentalID:      "r-1",
			Amount:        1050000,
			Status:        domain.PaymentStatusSettlement,
			Provider:      "midtrans",
			OrderID:       "RENT-1",
			TransactionID: "trx-1",
			PaidAt:        paidAt,
			CreatedAt:     paidAt.Add(-time.Hour),
			UpdatedAt:     paidAt,
		},
		RentalStatus:   domain.RentalStatusConfirmed,
		ApprovalStatus: domain.ApprovalStatusPending,
	}
}

func TestCacheStore_SetAndGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewCacheStore(client, 0)
	ctx := context.Background()

	view := testView()
	data, err := json.Marshal(toCached(view))
	require.NoError(t, err)

	mock.ExpectSet("cache:payment:r-1", data, PaymentCacheTTL).SetVal("OK")
	require.NoError(t, store.SetPayment(ctx, view))

	mock.ExpectGet("cache:payment:r-1").SetVal(string(data))
	got, err := store.GetPayment(ctx, "r-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, view.Payment.Status, got.Payment.Status)
	assert.Equal(t, view.Payment.OrderID, got.Payment.OrderID)
	assert.True(t, view.Payment.PaidAt.Equal(got.Payment.PaidAt))
	assert.Equal(t, view.RentalStatus, got.RentalStatus)
	assert.Equal(t, view.ApprovalStatus, got.ApprovalStatus)
	assert.Equal(t, domain.PaymentOutcomePaid, got.Outcome())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheStore_Miss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewCacheStore(client, time.Minute)

	mock.ExpectGet("cache:payment:r-2").RedisNil()
	got, err := store.GetPayment(context.Background(), "r-2")
	assert.NoError(t, err)
	assert.Nil(t, got)

	mock.ExpectGet("cache:payment:r-3").SetErr(errors.New("connection reset"))
	_, err = store.GetPayment(context.Background(), "r-3")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheStore_Invalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewCacheStore(client, time.Minute)

	mock.ExpectDel("cache:payment:r-1").SetVal(1)
	assert.NoError(t, store.InvalidatePayment(context.Background(), "r-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
