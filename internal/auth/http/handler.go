package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/sealdrop/internal/auth/http/dto"
	authUseCase "github.com/allisson/sealdrop/internal/auth/usecase"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	"github.com/allisson/sealdrop/internal/httputil"
	customValidation "github.com/allisson/sealdrop/internal/validation"
)

// AuthHandler handles sender login, recipient verification and lock administration.
type AuthHandler struct {
	authUseCase authUseCase.AuthUseCase
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler with required dependencies.
func NewAuthHandler(authUseCase authUseCase.AuthUseCase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
		logger:      logger,
	}
}

// LoginHandler exchanges sender credentials for a JWT.
// POST /v1/auth/login - Public, subject to the login rate bucket.
// Returns 200 OK with the token, or 401 for any credential mismatch.
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req dto.LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.authUseCase.Login(c.Request.Context(), req.ToDomain(c.ClientIP()))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapLoginToResponse(output))
}

// VerifyHandler checks a recipient's one-time code for the transfer behind :token.
// POST /v1/downloads/:token/verify - Public.
// Returns 200 OK with an auth token, 401 with remaining_attempts on a wrong code, 423 when locked.
func (h *AuthHandler) VerifyHandler(c *gin.Context) {
	var req dto.VerifyRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.authUseCase.VerifyTOTP(c.Request.Context(), req.ToDomain(c.Param("token"), c.ClientIP()))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapVerifyToResponse(output))
}

// UnlockHandler clears the failed-attempt counter of a transfer URL.
// POST /v1/admin/locks/:token/unlock - Requires an admin JWT.
// Returns 204 No Content.
func (h *AuthHandler) UnlockHandler(c *gin.Context) {
	principal, ok := GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	if err := h.authUseCase.Unlock(c.Request.Context(), c.Param("token"), principal.UserID, c.ClientIP()); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// LockStatusHandler reports the failed-attempt counter of a transfer URL.
// GET /v1/admin/locks/:token - Requires an admin JWT.
func (h *AuthHandler) LockStatusHandler(c *gin.Context) {
	status, err := h.authUseCase.LockStatus(c.Request.Context(), c.Param("token"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapLockStatusToResponse(status))
}
