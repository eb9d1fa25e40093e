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

// MySQLTransferRepository persists transfers in MySQL. UUIDs are stored as BINARY(16).
type MySQLTransferRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// NewMySQLTransferRepository creates a new MySQLTransferRepository.
func NewMySQLTransferRepository(db *sql.DB) *MySQLTransferRepository {
	return &MySQLTransferRepository{db: db, txManager: database.NewTxManager(db)}
}

func scanMySQLTransfer(row rowScanner) (*transferDomain.Transfer, error) {
	var t transferDomain.Transfer
	var id, senderID, recipientKeyID []byte
	var status string

	err := row.Scan(
		&id,
		&t.URLToken,
		&senderID,
		&recipientKeyID,
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

	if err := t.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal transfer id")
	}
	if err := t.SenderID.UnmarshalBinary(senderID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal sender id")
	}
	if err := t.RecipientKeyID.UnmarshalBinary(recipientKeyID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal recipient key id")
	}

	t.Status = transferDomain.Status(status)
	return &t, nil
}

func marshalID(id uuid.UUID) ([]byte, error) {
	b, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal id")
	}
	return b, nil
}

// Create inserts a transfer.
func (r *MySQLTransferRepository) Create(ctx context.Context, t *transferDomain.Transfer) error {
	querier := database.GetTx(ctx, r.db)

	id, err := marshalID(t.ID)
	if err != nil {
		return err
	}
	senderID, err := marshalID(t.SenderID)
	if err != nil {
		return err
	}
	recipientKeyID, err := marshalID(t.RecipientKeyID)
	if err != nil {
		return err
	}

	query := `INSERT INTO transfers (` + transferColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		t.URLToken,
		senderID,
		recipientKeyID,
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

func (r *MySQLTransferRepository) getOne(ctx context.Context, query string, arg any) (*transferDomain.Transfer, error) {
	querier := database.GetTx(ctx, r.db)

	t, err := scanMySQLTransfer(querier.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transferDomain.ErrTransferNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get transfer")
	}
	return t, nil
}

// GetByID retrieves a transfer by id, including tombstoned rows.
func (r *MySQLTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*transferDomain.Transfer, error) {
	b, err := marshalID(id)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = ?`, b)
}

// GetByURLToken retrieves a transfer by its recipient-facing token, including tombstoned rows.
func (r *MySQLTransferRepository) GetByURLToken(ctx context.Context, urlToken string) (*transferDomain.Transfer, error) {
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM transfers WHERE url_token = ?`, urlToken)
}

// AttachCloudFile records the uploaded object id on an initiated, live transfer.
func (r *MySQLTransferRepository) AttachCloudFile(
	ctx context.Context,
	id uuid.UUID,
	cloudFileID string,
	now time.Time,
) error {
	querier := database.GetTx(ctx, r.db)

	b, err := marshalID(id)
	if err != nil {
		return err
	}

	query := `UPDATE transfers SET cloud_file_id = ?, updated_at = ?
			  WHERE id = ? AND status = 'initiated' AND deleted_at IS NULL AND expires_at > ?`

	result, err := querier.ExecContext(ctx, query, cloudFileID, now, b, now)
	ok, err := affectedOne(result, err, "attach cloud file")
	if err != nil {
		return err
	}
	if !ok {
		// MySQL reports zero affected rows when the values did not change.
		return r.checkUnchanged(ctx, id, func(t *transferDomain.Transfer) bool {
			return t.Status == transferDomain.StatusInitiated && !t.IsDeleted() && now.Before(t.ExpiresAt) &&
				t.CloudFileID != nil && *t.CloudFileID == cloudFileID
		})
	}
	return nil
}

func (r *MySQLTransferRepository) checkUnchanged(
	ctx context.Context,
	id uuid.UUID,
	alreadyApplied func(*transferDomain.Transfer) bool,
) error {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if alreadyApplied(t) {
		return nil
	}
	return transferDomain.ErrInvalidState
}

// MarkReady moves an initiated transfer carrying a cloud file id to ready.
func (r *MySQLTransferRepository) MarkReady(ctx context.Context, id uuid.UUID, now time.Time) error {
	querier := database.GetTx(ctx, r.db)

	b, err := marshalID(id)
	if err != nil {
		return err
	}

	query := `UPDATE transfers SET status = 'ready', updated_at = ?
			  WHERE id = ? AND status = 'initiated' AND cloud_file_id IS NOT NULL
			  AND deleted_at IS NULL AND expires_at > ?`

	result, err := querier.ExecContext(ctx, query, now, b, now)
	ok, err := affectedOne(result, err, "mark transfer ready")
	if err != nil {
		return err
	}
	if !ok {
		return transferDomain.ErrInvalidState
	}
	return nil
}

// IncrementDownload consumes one download from the budget. MySQL has no RETURNING, so the
// conditional update and the read of the new values share a transaction.
func (r *MySQLTransferRepository) IncrementDownload(
	ctx context.Context,
	id uuid.UUID,
	now time.Time,
) (int, transferDomain.Status, error) {
	b, err := marshalID(id)
	if err != nil {
		return 0, "", err
	}

	var count int
	var status string

	err = r.txManager.WithTx(ctx, func(ctx context.Context) error {
		querier := database.GetTx(ctx, r.db)

		// MySQL evaluates SET assignments left to right, so status is computed from the old count.
		query := `UPDATE transfers
				  SET status = CASE WHEN download_count + 1 >= max_downloads THEN 'downloaded' ELSE 'ready' END,
				      download_count = download_count + 1,
				      updated_at = ?
				  WHERE id = ? AND status = 'ready' AND deleted_at IS NULL
				  AND download_count < max_downloads AND expires_at > ?`

		result, err := querier.ExecContext(ctx, query, now, b, now)
		ok, err := affectedOne(result, err, "increment download count")
		if err != nil {
			return err
		}
		if !ok {
			return transferDomain.ErrTransferExhausted
		}

		err = querier.QueryRowContext(ctx, `SELECT download_count, status FROM transfers WHERE id = ? FOR UPDATE`, b).
			Scan(&count, &status)
		if err != nil {
			return apperrors.Wrap(err, "failed to read download count")
		}
		return nil
	})
	if err != nil {
		return 0, "", err
	}
	return count, transferDomain.Status(status), nil
}

// MarkDeleted tombstones a transfer. It reports false when the transfer was already deleted.
func (r *MySQLTransferRepository) MarkDeleted(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	b, err := marshalID(id)
	if err != nil {
		return false, err
	}

	query := `UPDATE transfers SET status = 'deleted', deleted_at = ?, updated_at = ?
			  WHERE id = ? AND deleted_at IS NULL`

	result, err := querier.ExecContext(ctx, query, now, now, b)
	return affectedOne(result, err, "mark transfer deleted")
}

// MarkExpired moves a past-due live transfer to expired.
func (r *MySQLTransferRepository) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	b, err := marshalID(id)
	if err != nil {
		return false, err
	}

	query := `UPDATE transfers SET status = 'expired', updated_at = ?
			  WHERE id = ? AND status IN ('initiated', 'ready', 'downloaded')
			  AND deleted_at IS NULL AND expires_at <= ?`

	result, err := querier.ExecContext(ctx, query, now, b, now)
	return affectedOne(result, err, "mark transfer expired")
}

// ListExpired returns up to limit past-due transfers that still hold resources, oldest first.
func (r *MySQLTransferRepository) ListExpired(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*transferDomain.Transfer, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + transferColumns + ` FROM transfers
			  WHERE status IN ('initiated', 'ready', 'downloaded') AND deleted_at IS NULL AND expires_at <= ?
			  ORDER BY expires_at ASC LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list expired transfers")
	}
	defer func() { _ = rows.Close() }()

	transfers := make([]*transferDomain.Transfer, 0)
	for rows.Next() {
		t, err := scanMySQLTransfer(rows)
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
