package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transferDomain "github.com/allisson/sealdrop/internal/transfer/domain"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func transferRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "url_token", "sender_id", "recipient_key_id", "recipient_email_hash", "file_hash_sha3",
		"file_size_bytes", "cloud_type", "cloud_file_id", "max_downloads", "download_count", "expires_at",
		"status", "deleted_at", "created_at", "updated_at",
	})
}

func newTransfer(now time.Time) *transferDomain.Transfer {
	return &transferDomain.Transfer{
		ID:                 uuid.Must(uuid.NewV7()),
		URLToken:           "tok",
		SenderID:           uuid.Must(uuid.NewV7()),
		RecipientKeyID:     uuid.Must(uuid.NewV7()),
		RecipientEmailHash: "emailhash",
		FileHashSHA3:       "filehash",
		FileSizeBytes:      1024,
		CloudType:          "minio",
		MaxDownloads:       2,
		ExpiresAt:          now.Add(time.Hour),
		Status:             transferDomain.StatusInitiated,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestPostgreSQLTransferRepository_CreateAndGet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgreSQLTransferRepository(db)
	now := time.Now().UTC()
	tr := newTransfer(now)

	mock.ExpectExec(`INSERT INTO transfers`).
		WithArgs(tr.ID, "tok", tr.SenderID, tr.RecipientKeyID, "emailhash", "filehash", int64(1024), "minio",
			nil, 2, 0, tr.ExpiresAt, "initiated", nil, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(context.Background(), tr))

	mock.ExpectQuery(`SELECT .+ FROM transfers WHERE url_token = \$1`).
		WithArgs("tok").
		WillReturnRows(transferRows().AddRow(
			tr.ID.String(), "tok", tr.SenderID.String(), tr.RecipientKeyID.String(), "emailhash", "filehash",
			int64(1024), "minio", "transfers/x.bin", 2, 1, tr.ExpiresAt, "ready", nil, now, now,
		))

	got, err := repo.GetByURLToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, transferDomain.StatusReady, got.Status)
	require.NotNil(t, got.CloudFileID)
	assert.Equal(t, "transfers/x.bin", *got.CloudFileID)
	assert.Equal(t, 1, got.DownloadCount)
	assert.Nil(t, got.DeletedAt)

	mock.ExpectQuery(`SELECT .+ FROM transfers WHERE id = \$1`).WithArgs(tr.ID).WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(context.Background(), tr.ID)
	assert.ErrorIs(t, err, transferDomain.ErrTransferNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLTransferRepository_Transitions(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgreSQLTransferRepository(db)
	id := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()
	ctx := context.Background()

	t.Run("attach cloud file", func(t *testing.T) {
		mock.ExpectExec(`UPDATE transfers SET cloud_file_id = \$1`).
			WithArgs("transfers/a.bin", now, id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.AttachCloudFile(ctx, id, "transfers/a.bin", now))

		mock.ExpectExec(`UPDATE transfers SET cloud_file_id`).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.AttachCloudFile(ctx, id, "transfers/a.bin", now), transferDomain.ErrInvalidState)
	})

	t.Run("mark ready", func(t *testing.T) {
		mock.ExpectExec(`UPDATE transfers SET status = 'ready'`).
			WithArgs(now, id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.MarkReady(ctx, id, now))

		mock.ExpectExec(`UPDATE transfers SET status = 'ready'`).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.MarkReady(ctx, id, now), transferDomain.ErrInvalidState)
	})

	t.Run("increment download", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE transfers\s+SET download_count = download_count \+ 1.+RETURNING download_count, status`).
			WithArgs(now, id).
			WillReturnRows(sqlmock.NewRows([]string{"download_count", "status"}).AddRow(2, "downloaded"))

		count, status, err := repo.IncrementDownload(ctx, id, now)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, transferDomain.StatusDownloaded, status)

		mock.ExpectQuery(`UPDATE transfers`).WillReturnError(sql.ErrNoRows)
		_, _, err = repo.IncrementDownload(ctx, id, now)
		assert.ErrorIs(t, err, transferDomain.ErrTransferExhausted)
	})

	t.Run("mark deleted is idempotent", func(t *testing.T) {
		mock.ExpectExec(`UPDATE transfers SET status = 'deleted'.+deleted_at IS NULL`).
			WithArgs(now, id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		changed, err := repo.MarkDeleted(ctx, id, now)
		require.NoError(t, err)
		assert.True(t, changed)

		mock.ExpectExec(`UPDATE transfers SET status = 'deleted'`).WillReturnResult(sqlmock.NewResult(0, 0))
		changed, err = repo.MarkDeleted(ctx, id, now)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("mark expired", func(t *testing.T) {
		mock.ExpectExec(`UPDATE transfers SET status = 'expired'`).
			WithArgs(now, id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		changed, err := repo.MarkExpired(ctx, id, now)
		require.NoError(t, err)
		assert.True(t, changed)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLTransferRepository_ListExpired(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgreSQLTransferRepository(db)
	now := time.Now().UTC()
	tr := newTransfer(now)

	mock.ExpectQuery(`SELECT .+ FROM transfers\s+WHERE status IN .+ORDER BY expires_at ASC LIMIT \$2`).
		WithArgs(now, 50).
		WillReturnRows(transferRows().AddRow(
			tr.ID.String(), "tok", tr.SenderID.String(), tr.RecipientKeyID.String(), "emailhash", "filehash",
			int64(1024), "minio", nil, 2, 0, now.Add(-time.Minute), "initiated", nil, now, now,
		))

	transfers, err := repo.ListExpired(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Nil(t, transfers[0].CloudFileID)
	assert.Equal(t, transferDomain.StatusInitiated, transfers[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func binaryID(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	b, err := id.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestMySQLTransferRepository_CreateAndGet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMySQLTransferRepository(db)
	now := time.Now().UTC()
	tr := newTransfer(now)

	mock.ExpectExec(`INSERT INTO transfers`).
		WithArgs(binaryID(t, tr.ID), "tok", binaryID(t, tr.SenderID), binaryID(t, tr.RecipientKeyID), "emailhash",
			"filehash", int64(1024), "minio", nil, 2, 0, tr.ExpiresAt, "initiated", nil, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(context.Background(), tr))

	mock.ExpectQuery(`SELECT .+ FROM transfers WHERE id = \?`).
		WithArgs(binaryID(t, tr.ID)).
		WillReturnRows(transferRows().AddRow(
			binaryID(t, tr.ID), "tok", binaryID(t, tr.SenderID), binaryID(t, tr.RecipientKeyID), "emailhash",
			"filehash", int64(1024), "minio", nil, 2, 0, tr.ExpiresAt, "initiated", nil, now, now,
		))

	got, err := repo.GetByID(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, tr.SenderID, got.SenderID)
	assert.Equal(t, tr.RecipientKeyID, got.RecipientKeyID)

	mock.ExpectQuery(`SELECT .+ FROM transfers WHERE url_token = \?`).WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByURLToken(context.Background(), "missing")
	assert.ErrorIs(t, err, transferDomain.ErrTransferNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLTransferRepository_IncrementDownload(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMySQLTransferRepository(db)
	id := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE transfers\s+SET status = CASE`).
			WithArgs(now, binaryID(t, id), now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT download_count, status FROM transfers WHERE id = \? FOR UPDATE`).
			WithArgs(binaryID(t, id)).
			WillReturnRows(sqlmock.NewRows([]string{"download_count", "status"}).AddRow(1, "ready"))
		mock.ExpectCommit()

		count, status, err := repo.IncrementDownload(ctx, id, now)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, transferDomain.StatusReady, status)
	})

	t.Run("budget spent", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE transfers`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, _, err := repo.IncrementDownload(ctx, id, now)
		assert.ErrorIs(t, err, transferDomain.ErrTransferExhausted)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLTransferRepository_AttachCloudFileUnchanged(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMySQLTransferRepository(db)
	now := time.Now().UTC()
	tr := newTransfer(now)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE transfers SET cloud_file_id = \?`).
		WithArgs("transfers/a.bin", now, binaryID(t, tr.ID), now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM transfers WHERE id = \?`).
		WillReturnRows(transferRows().AddRow(
			binaryID(t, tr.ID), "tok", binaryID(t, tr.SenderID), binaryID(t, tr.RecipientKeyID), "emailhash",
			"filehash", int64(1024), "minio", "transfers/a.bin", 2, 0, tr.ExpiresAt, "initiated", nil, now, now,
		))
	require.NoError(t, repo.AttachCloudFile(ctx, tr.ID, "transfers/a.bin", now))

	mock.ExpectExec(`UPDATE transfers SET cloud_file_id = \?`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM transfers WHERE id = \?`).
		WillReturnRows(transferRows().AddRow(
			binaryID(t, tr.ID), "tok", binaryID(t, tr.SenderID), binaryID(t, tr.RecipientKeyID), "emailhash",
			"filehash", int64(1024), "minio", "transfers/a.bin", 2, 0, tr.ExpiresAt, "ready", nil, now, now,
		))
	assert.ErrorIs(t, repo.AttachCloudFile(ctx, tr.ID, "transfers/a.bin", now), transferDomain.ErrInvalidState)

	assert.NoError(t, mock.ExpectationsWereMet())
}
