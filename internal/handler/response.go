package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
	"vehiclerental/internal/service"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

const dateFormat = "2006-01-02"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Unexpected errors are attached to the gin context and hidden from the client.
func respondError(c *gin.Context, err error) {
	status, code := mapError(err)
	_ = c.Error(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.JSON(status, ErrorResponse{Error: msg, Code: code})
}

// respondBadRequest sends a 400 for a request that could not be bound.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "validation_error"})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapError maps service/repository errors to an HTTP status code and a
// stable machine-readable code.
func mapError(err error) (int, string) {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, domain.ErrInvalidDateRange):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, service.ErrUnknownGatewayStatus):
		return http.StatusBadRequest, "unknown_gateway_status"

	// Conflict errors
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, service.ErrStaleUpdate):
		return http.StatusConflict, "stale_update"
	case errors.Is(err, service.ErrUnitUnavailable):
		return http.StatusConflict, "unit_unavailable"

	// Authorization errors
	case errors.Is(err, service.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid_signature"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrUserNotVerified):
		return http.StatusForbidden, "user_not_verified"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"

	// Retryable errors
	case errors.Is(err, service.ErrBusy):
		return http.StatusLocked, "busy"
	case errors.Is(err, service.ErrNetwork):
		return http.StatusBadGateway, "gateway_unreachable"
	case errors.Is(err, service.ErrServer):
		return http.StatusBadGateway, "gateway_error"

	// Default to internal server error
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeFormat)
}

// RentalResponse is the HTTP representation of a rental.
type RentalResponse struct {
	ID                  string  `json:"id"`
	UserID              string  `json:"user_id"`
	VehicleID           string  `json:"vehicle_id"`
	UnitID              string  `json:"unit_id,omitempty"`
	StartDate           string  `json:"start_date"`
	EndDate             string  `json:"end_date"`
	PickupLocation      string  `json:"pickup_location,omitempty"`
	ReturnLocation      string  `json:"return_location,omitempty"`
	Notes               string  `json:"notes,omitempty"`
	TotalAmount         float64 `json:"total_amount"`
	Status              string  `json:"status"`
	AdminApprovalStatus string  `json:"admin_approval_status,omitempty"`
	RejectionReason     string  `json:"rejection_reason,omitempty"`
	CancelReason        string  `json:"cancel_reason,omitempty"`
	CreatedAt           string  `json:"created_at"`
	ConfirmedAt         string  `json:"confirmed_at,omitempty"`
	ApprovedAt          string  `json:"approved_at,omitempty"`
	CompletedAt         string  `json:"completed_at,omitempty"`
	CancelledAt         string  `json:"cancelled_at,omitempty"`
}

func toRentalResponse(r *domain.Rental) RentalResponse {
	return RentalResponse{
		ID:                  r.ID,
		UserID:              r.UserID,
		VehicleID:           r.VehicleID,
		UnitID:              r.UnitID,
		StartDate:           r.StartDate.Format(dateFormat),
		EndDate:             r.EndDate.Format(dateFormat),
		PickupLocation:      r.PickupLocation,
		ReturnLocation:      r.ReturnLocation,
		Notes:               r.Notes,
		TotalAmount:         r.TotalAmount,
		Status:              string(r.Status),
		AdminApprovalStatus: string(r.AdminApprovalStatus),
		RejectionReason:     r.RejectionReason,
		CancelReason:        r.CancelReason,
		CreatedAt:           formatTime(r.CreatedAt),
		ConfirmedAt:         formatTime(r.ConfirmedAt),
		ApprovedAt:          formatTime(r.ApprovedAt),
		CompletedAt:         formatTime(r.CompletedAt),
		CancelledAt:         formatTime(r.CancelledAt),
	}
}

func toRentalResponses(rentals []*domain.Rental) []RentalResponse {
	out := make([]RentalResponse, 0, len(rentals))
	for _, r := range rentals {
		out = append(out, toRentalResponse(r))
	}
	return out
}

// PaymentResponse is the HTTP representation of a payment.
type PaymentResponse struct {
	ID            string  `json:"id"`
	RentalID      string  `json:"rental_id"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	Outcome       string  `json:"outcome"`
	Provider      string  `json:"provider"`
	OrderID       string  `json:"order_id"`
	TransactionID string  `json:"transaction_id,omitempty"`
	PaymentType   string  `json:"payment_type,omitempty"`
	Token         string  `json:"token,omitempty"`
	RedirectURL   string  `json:"redirect_url,omitempty"`
	PaidAt        string  `json:"paid_at,omitempty"`
	UpdatedAt     string  `json:"updated_at"`
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		RentalID:      p.RentalID,
		Amount:        p.Amount,
		Status:        string(p.Status),
		Outcome:       string(service.Outcome(p.Status)),
		Provider:      p.Provider,
		OrderID:       p.OrderID,
		TransactionID: p.TransactionID,
		PaymentType:   p.PaymentType,
		Token:         p.SessionToken,
		RedirectURL:   p.RedirectURL,
		PaidAt:        formatTime(p.PaidAt),
		UpdatedAt:     formatTime(p.UpdatedAt),
	}
}

// PaymentStatusResponse is a payment together with its rental's status.
type PaymentStatusResponse struct {
	Payment        PaymentResponse `json:"payment"`
	RentalStatus   string          `json:"rental_status"`
	ApprovalStatus string          `json:"approval_status,omitempty"`
}

func toPaymentStatusResponse(v *service.PaymentView) PaymentStatusResponse {
	return PaymentStatusResponse{
		Payment:        toPaymentResponse(v.Payment),
		RentalStatus:   string(v.RentalStatus),
		ApprovalStatus: string(v.ApprovalStatus),
	}
}

// UserResponse is the HTTP representation of a user's verification state.
type UserResponse struct {
	UserID             string `json:"user_id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone,omitempty"`
	KTPStatus          string `json:"ktp_status"`
	SIMStatus          string `json:"sim_status"`
	VerificationStatus string `json:"verification_status"`
	VerificationNotes  string `json:"verification_notes,omitempty"`
	VerifiedAt         string `json:"verified_at,omitempty"`
	CanRent            bool   `json:"can_rent"`
}

func toUserResponse(u *domain.UserDetails) UserResponse {
	return UserResponse{
		UserID:             u.UserID,
		Name:               u.Name,
		Email:              u.Email,
		Phone:              u.Phone,
		KTPStatus:          string(u.KTPStatus),
		SIMStatus:          string(u.SIMStatus),
		VerificationStatus: string(u.VerificationStatus),
		VerificationNotes:  u.VerificationNotes,
		VerifiedAt:         formatTime(u.VerifiedAt),
		CanRent:            u.CanRent(),
	}
}
