package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/service"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// PaymentCacheTTL is short: payment status flips while the renter is at checkout.
const PaymentCacheTTL = 10 * time.Second

const paymentCachePrefix = "cache:payment:"

// NewCacheStore creates a new CacheStore. A non-positive ttl uses PaymentCacheTTL.
func NewCacheStore(client *redis.Client, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = PaymentCacheTTL
	}
	return &CacheStore{client: client, ttl: ttl}
}

// CachedPayment represents a cached payment view.
type CachedPayment struct {
	ID             string    `json:"id"`
	RentalID       string    `json:"rental_id"`
	Amount         float64   `json:"amount"`
	Status         string    `json:"status"`
	Provider       string    `json:"provider"`
	OrderID        string    `json:"order_id"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	PaymentType    string    `json:"payment_type,omitempty"`
	SessionToken   string    `json:"session_token,omitempty"`
	RedirectURL    string    `json:"redirect_url,omitempty"`
	PaidAt         time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	RentalStatus   string    `json:"rental_status"`
	ApprovalStatus string    `json:"approval_status,omitempty"`
}

func toCached(v *service.PaymentView) *CachedPayment {
	p := v.Payment
	return &CachedPayment{
		ID:             p.ID,
		RentalID:       p.RentalID,
		Amount:         p.Amount,
		Status:         string(p.Status),
		Provider:       p.Provider,
		OrderID:        p.OrderID,
		TransactionID:  p.TransactionID,
		PaymentType:    p.PaymentType,
		SessionToken:   p.SessionToken,
		RedirectURL:    p.RedirectURL,
		PaidAt:         p.PaidAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		RentalStatus:   string(v.RentalStatus),
		ApprovalStatus: string(v.ApprovalStatus),
	}
}

func (c *CachedPayment) view() *service.PaymentView {
	return &service.PaymentView{
		Payment: &domain.Payment{
			ID:            c.ID,
			RentalID:      c.RentalID,
			Amount:        c.Amount,
			Status:        domain.PaymentStatus(c.Status),
			Provider:      c.Provider,
			OrderID:       c.OrderID,
			TransactionID: c.TransactionID,
			PaymentType:   c.PaymentType,
			SessionToken:  c.SessionToken,
			RedirectURL:   c.RedirectURL,
			PaidAt:        c.PaidAt,
			CreatedAt:     c.CreatedAt,
			UpdatedAt:     c.UpdatedAt,
		},
		RentalStatus:   domain.RentalStatus(c.RentalStatus),
		ApprovalStatus: domain.ApprovalStatus(c.ApprovalStatus),
	}
}

// GetPayment retrieves a payment view from cache. A miss returns nil, nil.
func (s *CacheStore) GetPayment(ctx context.Context, rentalID string) (*service.PaymentView, error) {
	data, err := s.client.Get(ctx, paymentCachePrefix+rentalID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedPayment
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return cached.view(), nil
}

// SetPayment stores a payment view in cache.
func (s *CacheStore) SetPayment(ctx context.Context, view *service.PaymentView) error {
	data, err := json.Marshal(toCached(view))
	if err != nil {
		return err
	}
	return s.client.Set(ctx, paymentCachePrefix+view.Payment.RentalID, data, s.ttl).Err()
}

// InvalidatePayment removes a payment view from cache.
func (s *CacheStore) InvalidatePayment(ctx context.Context, rentalID string) error {
	return s.client.Del(ctx, paymentCachePrefix+rentalID).Err()
}
