// Package repository implements audit log persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	"github.com/allisson/sealdrop/internal/database"
	apperrors "github.com/allisson/sealdrop/internal/errors"
)

// PostgreSQLAuditLogRepository implements AuditLog persistence for PostgreSQL.
type PostgreSQLAuditLogRepository struct {
	db *sql.DB
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal audit log metadata")
	}
	return metadataJSON, nil
}

func unmarshalMetadata(metadataJSON []byte, auditLog *authDomain.AuditLog) error {
	if metadataJSON == nil {
		return nil
	}
	if err := json.Unmarshal(metadataJSON, &auditLog.Metadata); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal audit log metadata")
	}
	return nil
}

// Create inserts an audit log. Nil metadata and nil session/actor ids are stored as NULL.
func (p *PostgreSQLAuditLogRepository) Create(ctx context.Context, auditLog *authDomain.AuditLog) error {
	querier := database.GetTx(ctx, p.db)

	metadataJSON, err := marshalMetadata(auditLog.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_logs (id, session_id, actor_id, event_type, result, ip_address, metadata, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = querier.ExecContext(
		ctx,
		query,
		auditLog.ID,
		auditLog.SessionID,
		auditLog.ActorID,
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
func (p *PostgreSQLAuditLogRepository) List(
	ctx context.Context,
	filter authDomain.AuditLogFilter,
) ([]*authDomain.AuditLog, error) {
	querier := database.GetTx(ctx, p.db)

	var conditions []string
	var args []any
	where := func(clause string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.SessionID != nil {
		where("session_id = $%d", *filter.SessionID)
	}
	if filter.ActorID != nil {
		where("actor_id = $%d", *filter.ActorID)
	}
	if filter.EventType != nil {
		where("event_type = $%d", string(*filter.EventType))
	}
	if filter.CreatedAtFrom != nil {
		where("created_at >= $%d", *filter.CreatedAtFrom)
	}
	if filter.CreatedAtTo != nil {
		where("created_at <= $%d", *filter.CreatedAtTo)
	}

	query := `SELECT id, session_id, actor_id, event_type, result, ip_address, metadata, created_at
			  FROM audit_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

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
		var sessionID, actorID uuid.NullUUID
		var eventType, result string
		var metadataJSON []byte

		err := rows.Scan(
			&auditLog.ID,
			&sessionID,
			&actorID,
			&eventType,
			&result,
			&auditLog.IPAddress,
			&metadataJSON,
			&auditLog.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}

		if sessionID.Valid {
			auditLog.SessionID = &sessionID.UUID
		}
		if actorID.Valid {
			auditLog.ActorID = &actorID.UUID
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
func (p *PostgreSQLAuditLogRepository) DeleteOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	if dryRun {
		var count int64
		err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE created_at < $1`, olderThan).
			Scan(&count)
		if err != nil {
			return 0, apperrors.Wrap(err, "failed to count audit logs")
		}
		return count, nil
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit logs")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows count")
	}
	return count, nil
}

// NewPostgreSQLAuditLogRepository creates a new PostgreSQL AuditLog repository.
func NewPostgreSQLAuditLogRepository(db *sql.DB) *PostgreSQLAuditLogRepository {
	return &PostgreSQLAuditLogRepository{db: db}
}
