// Package repository implements transfer persistence for PostgreSQL and MySQL. Every state
// transition is a single conditional UPDATE so concurrent callers cannot overshoot the download
// budget or resurrect a deleted transfer.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/sealdrop/internal/database"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	transferDomain "github.com/allisson/sealdrop/internal/transfer/domain"
)

const transferColumns = `id, url_token, sender_id, recipient_key_id, recipient_email_hash, file_hash_sha3,
	file_size_bytes, cloud_type, cloud_file_id, max_downloads, download_count, expires_at, status,
	deleted_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgreSQLTransferRepository persists transfers in PostgreSQL.
type PostgreSQLTransferRepository struct {
	db *sql.DB
}

// NewPostgreSQLTransferRepository creates a new PostgreSQLTransferRepository.
func NewPostgreSQLTransferRepository(db *sql.DB) *PostgreSQLTransferRepository {
	return &PostgreSQLTransferRepository{db: db}
}

func scanPostgreSQLTransfer(row rowScanner) (*transferDomain.Transfer, error) {
	var t transferDomain.Transfer
	var status string

	err := row.Scan(
		&t.ID,
		&t.URLToken,
		&t.SenderID,
		&t.RecipientKeyID,
		&t.RecipientEmailHash,
		&t.FileHashSHA3,
		&t.FileSizeBytes,
		&t.CloudType,
		&t.CloudFileID,
		&t.MaxDownloads,
		&t.DownloadCount,
		&t.ExpiresAt,
		&status,
		&t.DeletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = transferDomain.Status(status)
	return &t, nil
}

// Create inserts a transfer.
func (r *PostgreSQLTransferRepository) Create(ctx context.Context, t *transferDomain.Transfer) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO transfers (` + transferColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := querier.ExecContext(
		ctx,
		query,
		t.ID,
		t.URLToken,
		t.SenderID,
		t.RecipientKeyID,
		t.RecipientEmailHash,
		t.FileHashSHA3,
		t.FileSizeBytes,
		t.CloudType,
		t.CloudFileID,
		t.MaxDownloads,
		t.DownloadCount,
		t.ExpiresAt,
		string(t.Status),
		t.DeletedAt,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create transfer")
	}
	return nil
}

func (r *PostgreSQLTransferRepository) getOne(ctx context.Context, query string, arg any) (*transferDomain.Transfer, error) {
	querier := database.GetTx(ctx, r.db)

	t, err := scanPostgreSQLTransfer(querier.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transferDomain.ErrTransferNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get transfer")
	}
	return t, nil
}

// GetByID retrieves a transfer by id, including tombstoned rows.
func (r *PostgreSQLTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*transferDomain.Transfer, error) {
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id)
}

// GetByURLToken retrieves a transfer by its recipient-facing token, including tombstoned rows.
func (r *PostgreSQLTransferRepository) GetByURLToken(
	ctx context.Context,
	urlToken string,
) (*transferDomain.Transfer, error) {
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM transfers WHERE url_token = $1`, urlToken)
}

func affectedOne(result sql.Result, err error, op string) (bool, error) {
	if err != nil {
		return false, apperrors.Wrap(err, "failed to "+op)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read rows affected")
	}
	return rows > 0, nil
}

// AttachCloudFile records the uploaded object id on an initiated, live transfer. Returns
// ErrInvalidState when the transfer has moved on.
func (r *PostgreSQLTransferRepository) AttachCloudFile(
	ctx context.Context,
	id uuid.UUID,
	cloudFileID string,
	now time.Time,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE transfers SET cloud_file_id = $1, updated_at = $2
			  WHERE id = $3 AND status = 'initiated' AND deleted_at IS NULL AND expires_at > $2`

	result, err := querier.ExecContext(ctx, query, cloudFileID, now, id)
	ok, err := affectedOne(result, err, "attach cloud file")
	if err != nil {
		return err
	}
	if !ok {
		return transferDomain.ErrInvalidState
	}
	return nil
}

// MarkReady moves an initiated transfer carrying a cloud file id to ready.
func (r *PostgreSQLTransferRepository) MarkReady(ctx context.Context, id uuid.UUID, now time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE transfers SET status = 'ready', updated_at = $1
			  WHERE id = $2 AND status = 'initiated' AND cloud_file_id IS NOT NULL
			  AND deleted_at IS NULL AND expires_at > $1`

	result, err := querier.ExecContext(ctx, query, now, id)
	ok, err := affectedOne(result, err, "mark transfer ready")
	if err != nil {
		return err
	}
	if !ok {
		return transferDomain.ErrInvalidState
	}
	return nil
}

// IncrementDownload consumes one download from the budget in a single statement. The status
// becomes downloaded when the budget reaches zero. Returns ErrTransferExhausted when no row
// qualified.
func (r *PostgreSQLTransferRepository) IncrementDownload(
	ctx context.Context,
	id uuid.UUID,
	now time.Time,
) (int, transferDomain.Status, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE transfers
			  SET download_count = download_count + 1,
			      status = CASE WHEN download_count + 1 >= max_downloads THEN 'downloaded' ELSE 'ready' END,
			      updated_at = $1
			  WHERE id = $2 AND status = 'ready' AND deleted_at IS NULL
			  AND download_count < max_downloads AND expires_at > $1
			  RETURNING download_count, status`

	var count int
	var status string
	err := querier.QueryRowContext(ctx, query, now, id).Scan(&count, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", transferDomain.ErrTransferExhausted
		}
		return 0, "", apperrors.Wrap(err, "failed to increment download count")
	}
	return count, transferDomain.Status(status), nil
}

// MarkDeleted tombstones a transfer. It reports false when the transfer was already deleted.
func (r *PostgreSQLTransferRepository) MarkDeleted(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE transfers SET status = 'deleted', deleted_at = $1, updated_at = $1
			  WHERE id = $2 AND deleted_at IS NULL`

	result, err := querier.ExecContext(ctx, query, now, id)
	return affectedOne(result, err, "mark transfer deleted")
}

// MarkExpired moves a past-due live transfer to expired. It reports false when nothing changed.
func (r *PostgreSQLTransferRepository) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE transfers SET status = 'expired', updated_at = $1
			  WHERE id = $2 AND status IN ('initiated', 'ready', 'downloaded')
			  AND deleted_at IS NULL AND expires_at <= $1`

	result, err := querier.ExecContext(ctx, query, now, id)
	return affectedOne(result, err, "mark transfer expired")
}

// ListExpired returns up to limit past-due transfers that still hold resources, oldest first.
func (r *PostgreSQLTransferRepository) ListExpired(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*transferDomain.Transfer, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + transferColumns + ` FROM transfers
			  WHERE status IN ('initiated', 'ready', 'downloaded') AND deleted_at IS NULL AND expires_at <= $1
			  ORDER BY expires_at ASC LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list expired transfers")
	}
	defer func() { _ = rows.Close() }()

	transfers := make([]*transferDomain.Transfer, 0)
	for rows.Next() {
		t, err := scanPostgreSQLTransfer(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan transfer")
		}
		transfers = append(transfers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate transfers")
	}
	return transfers, nil
}
