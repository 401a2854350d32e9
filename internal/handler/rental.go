package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/middleware"
	"vehiclerental/internal/repository"
	"vehiclerental/internal/service"
)

// RentalHandler handles HTTP requests for a renter's bookings.
type RentalHandler struct {
	rentalService *service.RentalService
}

// NewRentalHandler creates a new RentalHandler.
func NewRentalHandler(rentalService *service.RentalService) *RentalHandler {
	return &RentalHandler{rentalService: rentalService}
}

// CreateRentalRequest is the HTTP request body for booking a vehicle.
// Either vehicle_id or unit_id is required.
type CreateRentalRequest struct {
	VehicleID      string `json:"vehicle_id" binding:"required_without=UnitID"`
	UnitID         string `json:"unit_id"`
	StartDate      string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate        string `json:"end_date" binding:"required,datetime=2006-01-02"`
	PickupLocation string `json:"pickup_location" binding:"max=255"`
	ReturnLocation string `json:"return_location" binding:"max=255"`
	Notes          string `json:"notes" binding:"max=1000"`
}

// CancelRentalRequest is the HTTP request body for cancelling a rental.
type CancelRentalRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CreateRentalResponse is the HTTP response for a new booking.
type CreateRentalResponse struct {
	Rental  RentalResponse  `json:"rental"`
	Payment PaymentResponse `json:"payment"`
	Days    int             `json:"days"`
}

// CreateRental handles POST /v1/rentals
func (h *RentalHandler) CreateRental(c *gin.Context) {
	var req CreateRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, bindingMessage(err))
		return
	}

	// Formats were checked by the binding rules.
	start, _ := time.Parse(dateFormat, req.StartDate)
	end, _ := time.Parse(dateFormat, req.EndDate)

	result, err := h.rentalService.CreateRental(c.Request.Context(), service.CreateRentalRequest{
		UserID:         middleware.UserID(c),
		VehicleID:      req.VehicleID,
		UnitID:         req.UnitID,
		StartDate:      start,
		EndDate:        end,
		PickupLocation: req.PickupLocation,
		ReturnLocation: req.ReturnLocation,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreateRentalResponse{
		Rental:  toRentalResponse(result.Rental),
		Payment: toPaymentResponse(result.Payment),
		Days:    result.Quote.Days,
	})
}

// GetRental handles GET /v1/rentals/:id
func (h *RentalHandler) GetRental(c *gin.Context) {
	rental, err := h.rentalService.GetRental(c.Request.Context(), ownerScope(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRentalResponse(rental))
}

// ListMyRentals handles GET /v1/rentals
func (h *RentalHandler) ListMyRentals(c *gin.Context) {
	filter := repository.RentalFilter{
		UserID: middleware.UserID(c),
		Status: domain.RentalStatus(c.Query("status")),
		Limit:  queryLimit(c),
	}

	rentals, err := h.rentalService.ListRentals(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"rentals": toRentalResponses(rentals)})
}

// CancelRental handles POST /v1/rentals/:id/cancel
func (h *RentalHandler) CancelRental(c *gin.Context) {
	var req CancelRentalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, bindingMessage(err))
			return
		}
	}

	rental, err := h.rentalService.CancelRental(c.Request.Context(), ownerScope(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRentalResponse(rental))
}

// ownerScope returns the user a lookup must be restricted to. Admins see
// every rental.
func ownerScope(c *gin.Context) string {
	if middleware.IsAdmin(c) {
		return ""
	}
	return middleware.UserID(c)
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		return 50
	}
	return limit
}
