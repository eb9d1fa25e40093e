package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	"github.com/allisson/sealdrop/internal/auth/http/dto"
	authUseCase "github.com/allisson/sealdrop/internal/auth/usecase"
	"github.com/allisson/sealdrop/internal/httputil"
)

// AuditLogHandler handles HTTP requests for audit log operations.
type AuditLogHandler struct {
	auditLogUseCase authUseCase.AuditLogUseCase
	logger          *slog.Logger
}

// NewAuditLogHandler creates a new audit log handler with required dependencies.
func NewAuditLogHandler(
	auditLogUseCase authUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUseCase: auditLogUseCase,
		logger:          logger,
	}
}

// ListHandler returns audit entries newest first.
// GET /v1/admin/audit-logs?session_id=&actor_id=&event_type=&created_at_from=&created_at_to=&offset=&limit=
// Timestamps are RFC3339 and both bounds are inclusive.
func (h *AuditLogHandler) ListHandler(c *gin.Context) {
	filter, err := parseAuditLogFilter(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	auditLogs, err := h.auditLogUseCase.List(c.Request.Context(), filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuditLogsToListResponse(auditLogs))
}

func parseAuditLogFilter(c *gin.Context) (authDomain.AuditLogFilter, error) {
	var (
		filter authDomain.AuditLogFilter
		err    error
	)

	if filter.Offset, filter.Limit, err = httputil.ParsePagination(c); err != nil {
		return filter, err
	}
	if filter.SessionID, err = httputil.QueryUUID(c, "session_id"); err != nil {
		return filter, err
	}
	if filter.ActorID, err = httputil.QueryUUID(c, "actor_id"); err != nil {
		return filter, err
	}
	if filter.CreatedAtFrom, err = httputil.QueryTime(c, "created_at_from"); err != nil {
		return filter, err
	}
	if filter.CreatedAtTo, err = httputil.QueryTime(c, "created_at_to"); err != nil {
		return filter, err
	}
	if raw := c.Query("event_type"); raw != "" {
		event := authDomain.AuditEvent(raw)
		if !event.Valid() {
			return filter, fmt.Errorf("invalid event_type: %q", raw)
		}
		filter.EventType = &event
	}

	return filter, nil
}
