package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"vehiclerental/internal/service"
)

// StripeConfig configures the Stripe PaymentIntent adapter.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

// Stripe implements service.Gateway with PaymentIntents. The client secret
// is the session token and the intent ID the transaction ID.
type Stripe struct {
	client        *stripe.Client
	webhookSecret string
	currency      string
	log           logrus.FieldLogger
}

var (
	_ service.Gateway            = (*Stripe)(nil)
	_ service.NotificationParser = (*Stripe)(nil)
)

// NewStripe creates a Stripe adapter.
func NewStripe(cfg StripeConfig, log logrus.FieldLogger) (*Stripe, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("stripe: secret key is required")
	}
	currency := strings.ToLower(orDefault(cfg.Currency, "idr"))
	return &Stripe{
		client:        stripe.NewClient(cfg.SecretKey),
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		log:           log.WithField("gateway", "stripe"),
	}, nil
}

func (s *Stripe) Name() string { return "stripe" }

// CreateSession creates a PaymentIntent for the order.
func (s *Stripe) CreateSession(ctx context.Context, req service.SessionRequest) (*service.Session, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:      stripe.Int64(int64(math.Round(req.Amount * 100))),
		Currency:    stripe.String(s.currency),
		Description: stripe.String(req.ItemName),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata("order_id", req.OrderID)
	params.AddMetadata("rental_id", req.RentalID)
	params.SetIdempotencyKey(req.OrderID)

	pi, err := s.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		s.log.WithError(err).WithField("order_id", req.OrderID).Error("failed to create payment intent")
		return nil, classifyStripe(err)
	}

	return &service.Session{
		Token:         pi.ClientSecret,
		TransactionID: pi.ID,
	}, nil
}

// FetchStatus retrieves the PaymentIntent behind the order.
func (s *Stripe) FetchStatus(ctx context.Context, orderID, transactionID string) (*service.GatewayStatus, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("%w: no payment intent for order %s", service.ErrNotFound, orderID)
	}

	pi, err := s.client.V1PaymentIntents.Retrieve(ctx, transactionID, &stripe.PaymentIntentRetrieveParams{})
	if err != nil {
		return nil, classifyStripe(err)
	}
	return intentStatus(pi, orderID), nil
}

// ParseNotification verifies a webhook against the Stripe-Signature header.
// Events other than payment_intent.* are rejected as validation errors.
func (s *Stripe) ParseNotification(payload []byte, signature string) (*service.GatewayStatus, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.log.WithError(err).Warn("stripe webhook signature rejected")
		return nil, service.ErrInvalidSignature
	}

	if !strings.HasPrefix(string(event.Type), "payment_intent.") {
		return nil, fmt.Errorf("%w: unsupported event %s", service.ErrValidation, event.Type)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: malformed payment intent: %v", service.ErrValidation, err)
	}
	st := intentStatus(&pi, "")
	if event.Type == "payment_intent.payment_failed" {
		st.Status = "failure"
	}
	return st, nil
}

func intentStatus(pi *stripe.PaymentIntent, orderID string) *service.GatewayStatus {
	if id := pi.Metadata["order_id"]; id != "" {
		orderID = id
	}
	st := &service.GatewayStatus{
		OrderID:       orderID,
		TransactionID: pi.ID,
		Status:        mapStripeStatus(pi.Status),
	}
	if len(pi.PaymentMethodTypes) > 0 {
		st.PaymentType = pi.PaymentMethodTypes[0]
	}
	return st
}

// mapStripeStatus translates a PaymentIntent status into the gateway
// vocabulary understood by service.ParsePaymentStatus.
func mapStripeStatus(status stripe.PaymentIntentStatus) string {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return "settlement"
	case stripe.PaymentIntentStatusCanceled:
		return "cancel"
	default:
		return "pending"
	}
}

func classifyStripe(err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return classifyTransport(err)
	}
	if serr.HTTPStatusCode == 0 {
		return classifyTransport(err)
	}
	if serr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", service.ErrServer, serr.Msg)
	}
	if mapped := classifyStatus(serr.HTTPStatusCode, serr.Msg); mapped != nil {
		return mapped
	}
	return err
}
