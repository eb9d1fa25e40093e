// Package http provides the HTTP handlers for the sender transfer flow, the recipient download
// flow and administrative deletion.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/allisson/sealdrop/internal/auth/http"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	"github.com/allisson/sealdrop/internal/httputil"
	"github.com/allisson/sealdrop/internal/transfer/http/dto"
	transferUseCase "github.com/allisson/sealdrop/internal/transfer/usecase"
	customValidation "github.com/allisson/sealdrop/internal/validation"
)

// TransferHandler handles the sender side of a transfer.
type TransferHandler struct {
	orchestrator transferUseCase.Orchestrator
	logger       *slog.Logger
}

// NewTransferHandler creates a new transfer handler with required dependencies.
func NewTransferHandler(orchestrator transferUseCase.Orchestrator, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

func parseSessionID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid transfer ID format: must be a valid UUID")
	}
	return id, nil
}

// InitiateHandler starts a transfer to a registered recipient.
// POST /v1/transfers - Requires a sender JWT.
// Returns 201 Created with the upload URL and the recipient public key to wrap the file key for.
func (h *TransferHandler) InitiateHandler(c *gin.Context) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	var req dto.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.orchestrator.Initiate(c.Request.Context(), req.ToDomain(principal.UserID, c.ClientIP()))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapInitiateToResponse(output))
}

// GetHandler returns one of the sender's transfers.
// GET /v1/transfers/:id - Requires a sender JWT.
func (h *TransferHandler) GetHandler(c *gin.Context) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	transfer, err := h.orchestrator.Get(c.Request.Context(), sessionID, principal.UserID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTransferToResponse(transfer))
}

// StoreKeyHandler records the uploaded object and caches the wrapped key.
// PUT /v1/transfers/:id/key - Requires a sender JWT. Returns 204 No Content.
func (h *TransferHandler) StoreKeyHandler(c *gin.Context) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.StoreKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input, err := req.ToDomain(sessionID, principal.UserID, c.ClientIP())
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("wrapped_key: must be valid base64-encoded data"), h.logger)
		return
	}

	if err := h.orchestrator.StoreKey(c.Request.Context(), input); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// FinalizeHandler makes the transfer downloadable and returns the share URL.
// POST /v1/transfers/:id/finalize - Requires a sender JWT.
func (h *TransferHandler) FinalizeHandler(c *gin.Context) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	// The body is optional.
	var req dto.FinalizeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.orchestrator.FinalizeURL(c.Request.Context(), req.ToDomain(sessionID, principal.UserID, c.ClientIP()))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapFinalizeToResponse(output))
}
