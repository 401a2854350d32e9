package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"vehiclerental/internal/service"
)

const maxNotificationBytes = 64 << 10

// statusClientClosedRequest is logged when the client left before the answer.
const statusClientClosedRequest = 499

// PaymentHandler handles HTTP requests for payment status, checkout signals
// and gateway notifications.
type PaymentHandler struct {
	rentalService  *service.RentalService
	paymentService *service.PaymentService
	reconciler     *service.Reconciler
	parsers        map[string]service.NotificationParser
}

// NewPaymentHandler creates a new PaymentHandler. parsers maps a provider
// name to the verifier of its push notifications.
func NewPaymentHandler(
	rentalService *service.RentalService,
	paymentService *service.PaymentService,
	reconciler *service.Reconciler,
	parsers map[string]service.NotificationParser,
) *PaymentHandler {
	return &PaymentHandler{
		rentalService:  rentalService,
		paymentService: paymentService,
		reconciler:     reconciler,
		parsers:        parsers,
	}
}

// SignalRequest is the HTTP request body for a checkout signal. Either the
// event name or the URL the checkout navigated to is required.
type SignalRequest struct {
	Event string `json:"event" binding:"required_without=URL"`
	URL   string `json:"url"`
}

// SignalResponse tells the client where to navigate after a checkout signal.
type SignalResponse struct {
	Signal     string                 `json:"signal"`
	Navigation string                 `json:"navigation"`
	Outcome    string                 `json:"outcome"`
	Attempts   int                    `json:"attempts"`
	Cancelled  bool                   `json:"cancelled,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Status     *PaymentStatusResponse `json:"status,omitempty"`
}

// GetPayment handles GET /v1/rentals/:id/payment
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	rentalID, ok := h.authorize(c)
	if !ok {
		return
	}

	view, err := h.paymentService.FetchPaymentStatus(c.Request.Context(), rentalID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toPaymentStatusResponse(view))
}

// Reconcile handles POST /v1/rentals/:id/payment/reconcile
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	rentalID, ok := h.authorize(c)
	if !ok {
		return
	}

	view, err := h.paymentService.ForceReconcile(c.Request.Context(), rentalID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toPaymentStatusResponse(view))
}

// Signal handles POST /v1/rentals/:id/payment/signal
//
// Confirmation polling belongs to the request: a client that disconnects
// stops it before the next attempt. CancelSignal stops it explicitly.
func (h *PaymentHandler) Signal(c *gin.Context) {
	rentalID, ok := h.authorize(c)
	if !ok {
		return
	}

	var req SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, bindingMessage(err))
		return
	}

	var sig service.Signal
	if req.Event != "" {
		parsed, err := service.ParseSignal(req.Event)
		if err != nil {
			respondError(c, err)
			return
		}
		sig = parsed
	} else {
		sig = service.ClassifySignalURL(req.URL)
	}

	if sig == service.SignalNone {
		respondJSON(c, http.StatusOK, SignalResponse{Signal: string(sig)})
		return
	}

	ctx := c.Request.Context()
	task := h.reconciler.OnGatewaySignal(ctx, rentalID, sig)

	result, err := task.Wait(ctx)
	if err != nil {
		// The client went away; the task stops on its own.
		c.Status(statusClientClosedRequest)
		return
	}

	resp := SignalResponse{
		Signal:     string(sig),
		Navigation: string(result.Navigation),
		Outcome:    string(result.Outcome),
		Attempts:   result.Attempts,
		Cancelled:  result.Cancelled,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	if result.View != nil {
		status := toPaymentStatusResponse(result.View)
		resp.Status = &status
	}
	respondJSON(c, http.StatusOK, resp)
}

// CancelSignal handles DELETE /v1/rentals/:id/payment/signal
func (h *PaymentHandler) CancelSignal(c *gin.Context) {
	rentalID, ok := h.authorize(c)
	if !ok {
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"cancelled": h.reconciler.Cancel(rentalID)})
}

// Notification handles POST /v1/payments/notifications/:provider
func (h *PaymentHandler) Notification(c *gin.Context) {
	provider := c.Param("provider")
	parser, ok := h.parsers[provider]
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown payment provider", Code: "not_found"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotificationBytes))
	if err != nil {
		respondBadRequest(c, "unreadable body")
		return
	}

	status, err := parser.ParseNotification(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		respondError(c, err)
		return
	}

	view, err := h.paymentService.HandleNotification(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"status":         "ok",
		"payment_status": string(view.Payment.Status),
	})
}

// authorize checks the caller may act on the rental in the path.
func (h *PaymentHandler) authorize(c *gin.Context) (string, bool) {
	rental, err := h.rentalService.GetRental(c.Request.Context(), ownerScope(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return rental.ID, true
}
