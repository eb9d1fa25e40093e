package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	authHTTP "github.com/allisson/sealdrop/internal/auth/http"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	"github.com/allisson/sealdrop/internal/httputil"
	"github.com/allisson/sealdrop/internal/transfer/http/dto"
	transferUseCase "github.com/allisson/sealdrop/internal/transfer/usecase"
)

// DownloadHandler handles the recipient side of a transfer and administrative deletion.
type DownloadHandler struct {
	broker transferUseCase.DownloadBroker
	logger *slog.Logger
}

// NewDownloadHandler creates a new download handler with required dependencies.
func NewDownloadHandler(broker transferUseCase.DownloadBroker, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		broker: broker,
		logger: logger,
	}
}

// InfoHandler returns the landing-page view of a download link.
// GET /v1/downloads/:token - Public.
func (h *DownloadHandler) InfoHandler(c *gin.Context) {
	info, err := h.broker.GetInfo(c.Request.Context(), c.Param("token"), c.ClientIP())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapInfoToResponse(info))
}

// KeyHandler releases the wrapped key and a download URL, consuming one download.
// GET /v1/downloads/:token/key - Requires the recipient auth token for this link.
func (h *DownloadHandler) KeyHandler(c *gin.Context) {
	authToken, ok := authHTTP.GetBearerToken(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, authDomain.ErrAuthSessionInvalid, h.logger)
		return
	}

	release, err := h.broker.GetKey(c.Request.Context(), c.Param("token"), authToken, c.ClientIP())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, dto.MapKeyReleaseToResponse(release))
}

// CompleteHandler deletes the file and its key after the recipient finished downloading.
// POST /v1/downloads/:token/complete - Requires the recipient auth token. Returns 204 No Content,
// also when the transfer was already deleted.
func (h *DownloadHandler) CompleteHandler(c *gin.Context) {
	authToken, ok := authHTTP.GetBearerToken(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, authDomain.ErrAuthSessionInvalid, h.logger)
		return
	}

	if err := h.broker.Complete(c.Request.Context(), c.Param("token"), authToken, c.ClientIP()); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// ForceDeleteHandler deletes a transfer on behalf of an administrator.
// DELETE /v1/admin/transfers/:id - Requires an admin JWT. Returns 204 No Content.
func (h *DownloadHandler) ForceDeleteHandler(c *gin.Context) {
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

	if err := h.broker.ForceDelete(c.Request.Context(), sessionID, principal.UserID, c.ClientIP()); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}
