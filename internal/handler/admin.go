package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
	"vehiclerental/internal/service"
)

// AdminHandler handles HTTP requests for admin review of rentals.
type AdminHandler struct {
	approvalService *service.ApprovalService
	rentalService   *service.RentalService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(approvalService *service.ApprovalService, rentalService *service.RentalService) *AdminHandler {
	return &AdminHandler{
		approvalService: approvalService,
		rentalService:   rentalService,
	}
}

// RejectRentalRequest is the HTTP request body for rejecting a rental.
type RejectRentalRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ListRentals handles GET /v1/admin/rentals
func (h *AdminHandler) ListRentals(c *gin.Context) {
	filter := repository.RentalFilter{
		UserID:   c.Query("user_id"),
		Status:   domain.RentalStatus(c.Query("status")),
		Approval: domain.ApprovalStatus(c.Query("approval")),
		Limit:    queryLimit(c),
	}

	rentals, err := h.rentalService.ListRentals(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"rentals": toRentalResponses(rentals)})
}

// Approve handles PUT /v1/admin/rentals/:id/approve
func (h *AdminHandler) Approve(c *gin.Context) {
	rental, err := h.approvalService.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRentalResponse(rental))
}

// Reject handles PUT /v1/admin/rentals/:id/reject
func (h *AdminHandler) Reject(c *gin.Context) {
	var req RejectRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, bindingMessage(err))
		return
	}

	rental, err := h.approvalService.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRentalResponse(rental))
}

// Complete handles PUT /v1/admin/rentals/:id/complete
func (h *AdminHandler) Complete(c *gin.Context) {
	rental, err := h.approvalService.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRentalResponse(rental))
}
