package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	"github.com/allisson/sealdrop/internal/database"
	apperrors "github.com/allisson/sealdrop/internal/errors"
)

// MySQLAuditLogRepository implements AuditLog persistence for MySQL. UUIDs are stored as
// BINARY(16).
type MySQLAuditLogRepository struct {
	db *sql.DB
}

func marshalOptionalID(id *uuid.UUID) ([]byte, error) {
	if id == nil {
		return nil, nil
	}
	return id.MarshalBinary()
}

func unmarshalOptionalID(raw []byte) (*uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	var id uuid.UUID
	if err := id.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return &id, nil
}

// Create inserts an audit log.
func (m *MySQLAuditLogRepository) Create(ctx context.Context, auditLog *authDomain.AuditLog) error {
	querier := database.GetTx(ctx, m.db)

	id, err := auditLog.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit log id")
	}
	sessionID, err := marshalOptionalID(auditLog.SessionID)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit log session_id")
	}
	actorID, err := marshalOptionalID(auditLog.ActorID)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit log actor_id")
	}
	metadataJSON, err := marshalMetadata(auditLog.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_logs (id, session_id, actor_id, event_type, result, ip_address, metadata, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		sessionID,
		actorID,
		string(auditLog.EventType),
		string(auditLog.Result),
		auditLog.IPAddress,
		metadataJSON,
		auditLog.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

// List retrieves audit logs newest first, narrowed by filter.
func (m *MySQLAuditLogRepository) List(
	ctx context.Context,
	filter authDomain.AuditLogFilter,
) ([]*authDomain.AuditLog, error) {
	querier := database.GetTx(ctx, m.db)

	var conditions []string
	var args []any

	idFilters := []struct {
		column string
		id     *uuid.UUID
	}{
		{"session_id", filter.SessionID},
		{"actor_id", filter.ActorID},
	}
	for _, f := range idFilters {
		raw, err := marshalOptionalID(f.id)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal "+f.column)
		}
		if raw == nil {
			continue
		}
		conditions = append(conditions, f.column+" = ?")
		args = append(args, raw)
	}
	if filter.EventType != nil {
		conditions = append(conditions, "event_type = ?")
		args = append(args, string(*filter.EventType))
	}
	if filter.CreatedAtFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *filter.CreatedAtFrom)
	}
	if filter.CreatedAtTo != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *filter.CreatedAtTo)
	}

	query := `SELECT id, session_id, actor_id, event_type, result, ip_address, metadata, created_at
			  FROM audit_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() {
		_ = rows.Close()
	}()

	auditLogs := make([]*authDomain.AuditLog, 0)
	for rows.Next() {
		var auditLog authDomain.AuditLog
		var idBinary, sessionIDBinary, actorIDBinary, metadataJSON []byte
		var eventType, result string

		err := rows.Scan(
			&idBinary,
			&sessionIDBinary,
			&actorIDBinary,
			&eventType,
			&result,
			&auditLog.IPAddress,
			&metadataJSON,
			&auditLog.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}

		if err := auditLog.ID.UnmarshalBinary(idBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit log id")
		}
		if auditLog.SessionID, err = unmarshalOptionalID(sessionIDBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit log session_id")
		}
		if auditLog.ActorID, err = unmarshalOptionalID(actorIDBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit log actor_id")
		}
		auditLog.EventType = authDomain.AuditEvent(eventType)
		auditLog.Result = authDomain.AuditResult(result)

		if err := unmarshalMetadata(metadataJSON, &auditLog); err != nil {
			return nil, err
		}
		auditLogs = append(auditLogs, &auditLog)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}
	return auditLogs, nil
}

// DeleteOlderThan removes audit logs created before olderThan. In dry-run mode it only counts.
func (m *MySQLAuditLogRepository) DeleteOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	if dryRun {
		var count int64
		err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE created_at < ?`, olderThan).
			Scan(&count)
		if err != nil {
			return 0, apperrors.Wrap(err, "failed to count audit logs")
		}
		return count, nil
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, olderThan)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit logs")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows count")
	}
	return count, nil
}

// NewMySQLAuditLogRepository creates a new MySQL AuditLog repository.
func NewMySQLAuditLogRepository(db *sql.DB) *MySQLAuditLogRepository {
	return &MySQLAuditLogRepository{db: db}
}
