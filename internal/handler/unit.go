package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/service"
)

// UnitHandler handles HTTP requests for vehicle unit availability.
type UnitHandler struct {
	ledger *service.Ledger
}

// NewUnitHandler creates a new UnitHandler.
func NewUnitHandler(ledger *service.Ledger) *UnitHandler {
	return &UnitHandler{ledger: ledger}
}

// MaintenanceRequest is the HTTP request body for toggling unit maintenance.
type MaintenanceRequest struct {
	Maintenance *bool `json:"maintenance" binding:"required"`
}

// Availability handles GET /v1/units/:id/availability?start=&end=
func (h *UnitHandler) Availability(c *gin.Context) {
	start, err := time.Parse(dateFormat, c.Query("start"))
	if err != nil {
		respondBadRequest(c, "start must be a date formatted "+dateFormat)
		return
	}
	end, err := time.Parse(dateFormat, c.Query("end"))
	if err != nil {
		respondBadRequest(c, "end must be a date formatted "+dateFormat)
		return
	}

	rng, err := domain.NewDateRange(start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	available, err := h.ledger.IsAvailable(c.Request.Context(), c.Param("id"), rng)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"unit_id":   c.Param("id"),
		"start":     rng.Start.Format(dateFormat),
		"end":       rng.End.Format(dateFormat),
		"available": available,
	})
}

// SetMaintenance handles PUT /v1/admin/units/:id/maintenance
func (h *UnitHandler) SetMaintenance(c *gin.Context) {
	var req MaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, bindingMessage(err))
		return
	}

	unitID := c.Param("id")
	var err error
	if *req.Maintenance {
		err = h.ledger.MarkMaintenance(c.Request.Context(), unitID)
	} else {
		err = h.ledger.MarkAvailable(c.Request.Context(), unitID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	status := domain.UnitStatusAvailable
	if *req.Maintenance {
		status = domain.UnitStatusMaintenance
	}
	respondJSON(c, http.StatusOK, gin.H{"unit_id": unitID, "status": string(status)})
}
