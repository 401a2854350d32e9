package gateway

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"vehiclerental/internal/service"
)

// Hosts the SDK targets for each environment.
const (
	midtransSandboxSnapHost    = "app.sandbox.midtrans.com"
	midtransSandboxAPIHost     = "api.sandbox.midtrans.com"
	midtransProductionSnapHost = "app.midtrans.com"
	midtransProductionAPIHost  = "api.midtrans.com"

	itemNameLimit = 50
)

// MidtransConfig configures the Midtrans Snap adapter. SnapBaseURL and
// APIBaseURL redirect SDK traffic, for a proxy or a local stub.
type MidtransConfig struct {
	ServerKey   string
	Production  bool
	SnapBaseURL string
	APIBaseURL  string
	FinishURL   string
	Timeout     time.Duration
}

// Midtrans implements service.Gateway and service.NotificationParser with
// the Snap checkout and the Core API status call.
type Midtrans struct {
	serverKey string
	snap      snap.Client
	core      coreapi.Client
	finishURL string
	log       logrus.FieldLogger
}

var (
	_ service.Gateway            = (*Midtrans)(nil)
	_ service.NotificationParser = (*Midtrans)(nil)
)

// NewMidtrans creates a Midtrans adapter on the sandbox unless Production is set.
func NewMidtrans(cfg MidtransConfig, log logrus.FieldLogger) (*Midtrans, error) {
	if strings.TrimSpace(cfg.ServerKey) == "" {
		return nil, fmt.Errorf("midtrans: server key is required")
	}

	env, snapHost, apiHost := midtrans.Sandbox, midtransSandboxSnapHost, midtransSandboxAPIHost
	if cfg.Production {
		env, snapHost, apiHost = midtrans.Production, midtransProductionSnapHost, midtransProductionAPIHost
	}

	rebase := &rebaseTransport{next: http.DefaultTransport, hosts: make(map[string]*url.URL)}
	for host, override := range map[string]string{snapHost: cfg.SnapBaseURL, apiHost: cfg.APIBaseURL} {
		if strings.TrimSpace(override) == "" {
			continue
		}
		u, err := url.Parse(override)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("midtrans: invalid base url %q", override)
		}
		rebase.hosts[host] = u
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	sdkHTTP := midtrans.GetHttpClient(env)
	sdkHTTP.HttpClient = &http.Client{Timeout: timeout, Transport: rebase}

	m := &Midtrans{
		serverKey: cfg.ServerKey,
		finishURL: cfg.FinishURL,
		log:       log.WithField("gateway", "midtrans"),
	}
	m.snap.New(cfg.ServerKey, env)
	m.snap.HttpClient = sdkHTTP
	m.core.New(cfg.ServerKey, env)
	m.core.HttpClient = sdkHTTP

	m.log.WithField("production", cfg.Production).Info("midtrans gateway initialized")
	return m, nil
}

func (m *Midtrans) Name() string { return "midtrans" }

// CreateSession opens a Snap checkout and returns its token and redirect URL.
func (m *Midtrans) CreateSession(ctx context.Context, req service.SessionRequest) (*service.Session, error) {
	amount := int64(math.Round(req.Amount))

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: amount,
		},
	}
	if req.ItemName != "" {
		snapReq.Items = &[]midtrans.ItemDetails{{
			ID:    req.RentalID,
			Name:  truncate(req.ItemName, itemNameLimit),
			Price: amount,
			Qty:   1,
		}}
	}
	if req.CustomerName != "" || req.CustomerEmail != "" {
		snapReq.CustomerDetail = &midtrans.CustomerDetails{FName: req.CustomerName, Email: req.CustomerEmail}
	}
	if m.finishURL != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: m.finishURL}
	}

	start := time.Now()
	resp, err := withContext(ctx, func() (*snap.Response, *midtrans.Error) {
		return m.snap.CreateTransaction(snapReq)
	})
	m.logCall("snap.create", req.OrderID, start, err)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Token == "" {
		return nil, fmt.Errorf("%w: snap response without token", service.ErrServer)
	}

	return &service.Session{
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
	}, nil
}

// FetchStatus reads the transaction status of an order.
func (m *Midtrans) FetchStatus(ctx context.Context, orderID, _ string) (*service.GatewayStatus, error) {
	start := time.Now()
	resp, err := withContext(ctx, func() (*coreapi.TransactionStatusResponse, *midtrans.Error) {
		return m.core.CheckTransaction(orderID)
	})
	m.logCall("core.status", orderID, start, err)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty status response", service.ErrServer)
	}

	// The status API may answer 200 and report the failure in the body.
	if code, _ := strconv.Atoi(resp.StatusCode); code >= 400 {
		return nil, classifyStatus(code, resp.StatusMessage)
	}

	return &service.GatewayStatus{
		OrderID:       resp.OrderID,
		TransactionID: resp.TransactionID,
		Status:        resp.TransactionStatus,
		FraudStatus:   resp.FraudStatus,
		PaymentType:   resp.PaymentType,
	}, nil
}

// ParseNotification verifies the signature_key of an HTTP notification and
// decodes it. The signature travels in the body, so signature is ignored.
// Midtrans sends gross_amount as a string but numeric values are accepted.
func (m *Midtrans) ParseNotification(payload []byte, _ string) (*service.GatewayStatus, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: malformed notification", service.ErrValidation)
	}

	n := gjson.ParseBytes(payload)
	orderID := n.Get("order_id").String()
	statusCode := n.Get("status_code").String()
	grossAmount := n.Get("gross_amount").String()

	expected := m.signature(orderID, statusCode, grossAmount)
	got := strings.ToLower(n.Get("signature_key").String())
	if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return nil, service.ErrInvalidSignature
	}

	return &service.GatewayStatus{
		OrderID:       orderID,
		TransactionID: n.Get("transaction_id").String(),
		Status:        n.Get("transaction_status").String(),
		FraudStatus:   n.Get("fraud_status").String(),
		PaymentType:   n.Get("payment_type").String(),
	}, nil
}

// signature computes SHA512(order_id + status_code + gross_amount + server_key).
func (m *Midtrans) signature(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + m.serverKey))
	return hex.EncodeToString(sum[:])
}

func (m *Midtrans) logCall(op, orderID string, start time.Time, err error) {
	log := m.log.WithFields(logrus.Fields{
		"op":          op,
		"order_id":    orderID,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		log.WithError(err).Warn("midtrans call failed")
		return
	}
	log.Debug("midtrans call")
}

type sdkResult[T any] struct {
	value T
	err   *midtrans.Error
}

// withContext runs a blocking SDK call and stops waiting when ctx ends. The
// call itself is bounded by the HTTP client timeout.
func withContext[T any](ctx context.Context, call func() (T, *midtrans.Error)) (T, error) {
	done := make(chan sdkResult[T], 1)
	go func() {
		v, err := call()
		done <- sdkResult[T]{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, classifyTransport(ctx.Err())
	case r := <-done:
		if r.err != nil {
			return r.value, classifyMidtrans(r.err)
		}
		return r.value, nil
	}
}

// classifyMidtrans maps an SDK error. A zero status code means the request
// never got an HTTP answer.
func classifyMidtrans(e *midtrans.Error) error {
	if e.StatusCode == 0 {
		return fmt.Errorf("%w: %s", service.ErrNetwork, e.Message)
	}
	if err := classifyStatus(e.StatusCode, e.Message); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", service.ErrServer, e.Message)
}

// rebaseTransport sends requests for known SDK hosts to configured base URLs.
type rebaseTransport struct {
	next  http.RoundTripper
	hosts map[string]*url.URL
}

func (t *rebaseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base, ok := t.hosts[req.URL.Host]
	if !ok {
		return t.next.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	out.URL.Scheme = base.Scheme
	out.URL.Host = base.Host
	out.URL.Path = strings.TrimRight(base.Path, "/") + req.URL.Path
	out.Host = base.Host
	return t.next.RoundTrip(out)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
