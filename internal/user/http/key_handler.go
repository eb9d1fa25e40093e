// Package http provides the HTTP handlers of the public key registry.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/allisson/sealdrop/internal/auth/http"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	"github.com/allisson/sealdrop/internal/httputil"
	"github.com/allisson/sealdrop/internal/user/http/dto"
	userUseCase "github.com/allisson/sealdrop/internal/user/usecase"
	customValidation "github.com/allisson/sealdrop/internal/validation"
)

// KeyHandler handles HTTP requests for the caller's own public keys.
type KeyHandler struct {
	keyUseCase userUseCase.KeyUseCase
	logger     *slog.Logger
}

// NewKeyHandler creates a new key handler with required dependencies.
func NewKeyHandler(keyUseCase userUseCase.KeyUseCase, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{
		keyUseCase: keyUseCase,
		logger:     logger,
	}
}

// RegisterHandler registers a public key for the authenticated user.
// POST /v1/keys - Requires a sender JWT.
// Returns 201 Created with the stored key.
func (h *KeyHandler) RegisterHandler(c *gin.Context) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	var req dto.RegisterKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input, err := req.ToDomain(principal.UserID, c.ClientIP())
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("key_data: must be valid base64-encoded data"), h.logger)
		return
	}

	key, err := h.keyUseCase.Register(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapPublicKeyToResponse(key, time.Now()))
}

// ListHandler lists every key of the authenticated user, revoked and expired ones included.
// GET /v1/keys - Requires a sender JWT.
func (h *KeyHandler) ListHandler(c *gin.Context) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	keys, err := h.keyUseCase.List(c.Request.Context(), principal.UserID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPublicKeysToListResponse(keys, time.Now()))
}

// RevokeHandler revokes one of the authenticated user's keys. Transfers already initiated against
// the key keep working.
// DELETE /v1/keys/:id - Requires a sender JWT. Returns 204 No Content.
func (h *KeyHandler) RevokeHandler(c *gin.Context) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid key ID format: must be a valid UUID"),
			h.logger)
		return
	}

	if err := h.keyUseCase.Revoke(c.Request.Context(), principal.UserID, keyID, c.ClientIP()); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}
