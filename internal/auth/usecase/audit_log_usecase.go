package usecase

import (
	"context"
	"log/slog"
	"time"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	"github.com/allisson/sealdrop/internal/metrics"
)

type auditLogUseCase struct {
	auditLogRepo AuditLogRepository
	logger       *slog.Logger
	metrics      metrics.BusinessMetrics
	now          func() time.Time
}

// Record persists entry on a context detached from the request so a client disconnect does
// not drop the trail. Unknown events and write failures are logged and counted, never returned.
func (a *auditLogUseCase) Record(ctx context.Context, entry *authDomain.AuditLog) {
	if entry == nil {
		return
	}

	logger := a.logger.With(
		slog.String("event_type", string(entry.EventType)),
		slog.String("result", string(entry.Result)),
	)

	if !entry.EventType.Valid() {
		logger.Error("audit event rejected", slog.Any("error", authDomain.ErrInvalidAuditEvent))
		a.metrics.RecordSecurityEvent(ctx, metrics.EventAuditFailed)
		return
	}

	if err := a.auditLogRepo.Create(context.WithoutCancel(ctx), entry); err != nil {
		logger.Error("failed to write audit log", slog.Any("error", err))
		a.metrics.RecordSecurityEvent(ctx, metrics.EventAuditFailed)
	}
}

// List retrieves audit logs newest first. An event type outside the closed set is rejected
// rather than matching nothing.
func (a *auditLogUseCase) List(ctx context.Context, filter authDomain.AuditLogFilter) ([]*authDomain.AuditLog, error) {
	if filter.EventType != nil && !filter.EventType.Valid() {
		return nil, authDomain.ErrInvalidAuditEvent
	}
	if filter.CreatedAtFrom != nil && filter.CreatedAtTo != nil && filter.CreatedAtFrom.After(*filter.CreatedAtTo) {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "created_at_from must be before or equal to created_at_to")
	}

	auditLogs, err := a.auditLogRepo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return auditLogs, nil
}

// DeleteOlderThan removes audit logs created more than days ago.
func (a *auditLogUseCase) DeleteOlderThan(ctx context.Context, days int, dryRun bool) (int64, error) {
	if days < 0 {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "days must not be negative")
	}

	olderThan := a.now().UTC().AddDate(0, 0, -days)

	count, err := a.auditLogRepo.DeleteOlderThan(ctx, olderThan, dryRun)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit logs")
	}
	return count, nil
}

// NewAuditLogUseCase creates an AuditLogUseCase.
func NewAuditLogUseCase(
	auditLogRepo AuditLogRepository,
	logger *slog.Logger,
	businessMetrics metrics.BusinessMetrics,
) AuditLogUseCase {
	return &auditLogUseCase{
		auditLogRepo: auditLogRepo,
		logger:       logger,
		metrics:      businessMetrics,
		now:          time.Now,
	}
}
