package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/middleware"
	"vehiclerental/internal/service"
)

// UserHandler handles HTTP requests for user details and identity verification.
type UserHandler struct {
	verification *service.VerificationService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(verification *service.VerificationService) *UserHandler {
	return &UserHandler{verification: verification}
}

// VerifyRequest is the HTTP request body for a verification decision.
type VerifyRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Notes    string `json:"notes"`
}

// BulkVerifyRequest is the HTTP request body for bulk user verification.
type BulkVerifyRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1,max=100,dive,required"`
	Action  string   `json:"action" binding:"required,bulkaction"`
	Notes   string   `json:"notes"`
}

// BulkVerifyResponse reports per-user results of a bulk verification.
type BulkVerifyResponse struct {
	Updated []string          `json:"updated"`
	Failed  map[string]string `json:"failed,omitempty"`
}

type documentURI struct {
	ID  string `uri:"id" binding:"required"`
	Doc string `uri:"doc" binding:"required,doctype"`
}

// Me handles GET /v1/users/me
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.verification.GetUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toUserResponse(user))
}

// GetUser handles GET /v1/admin/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.verification.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toUserResponse(user))
}

// VerifyDocument handles PUT /v1/admin/users/:id/documents/:doc
func (h *UserHandler) VerifyDocument(c *gin.Context) {
	var uri documentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		respondBadRequest(c, bindingMessage(err))
		return
	}
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, bindingMessage(err))
		return
	}

	user, err := h.verification.VerifyDocument(c.Request.Context(), uri.ID, domain.DocumentType(uri.Doc), *req.Approved, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toUserResponse(user))
}

// VerifyUser handles PUT /v1/admin/users/:id/verify
func (h *UserHandler) VerifyUser(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, bindingMessage(err))
		return
	}

	user, err := h.verification.VerifyUser(c.Request.Context(), c.Param("id"), *req.Approved, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toUserResponse(user))
}

// BulkVerify handles POST /v1/admin/users/bulk-verify
func (h *UserHandler) BulkVerify(c *gin.Context) {
	var req BulkVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, bindingMessage(err))
		return
	}

	result, err := h.verification.BulkVerify(c.Request.Context(), req.UserIDs, service.BulkAction(req.Action), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, BulkVerifyResponse{
		Updated: result.Updated,
		Failed:  result.Failed,
	})
}
