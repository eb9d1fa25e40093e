package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/sealdrop/internal/database"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
)

// MySQLPublicKeyRepository persists public keys in MySQL. UUIDs are stored as BINARY(16).
type MySQLPublicKeyRepository struct {
	db *sql.DB
}

// NewMySQLPublicKeyRepository creates a new MySQLPublicKeyRepository.
func NewMySQLPublicKeyRepository(db *sql.DB) *MySQLPublicKeyRepository {
	return &MySQLPublicKeyRepository{db: db}
}

const myPublicKeyColumns = `id, user_id, algorithm, key_data, is_primary, expires_at, revoked_at, created_at`

func scanMySQLPublicKey(row rowScanner) (*userDomain.PublicKey, error) {
	var key userDomain.PublicKey
	var idBytes, userIDBytes []byte

	err := row.Scan(
		&idBytes,
		&userIDBytes,
		&key.Algorithm,
		&key.KeyData,
		&key.IsPrimary,
		&key.ExpiresAt,
		&key.RevokedAt,
		&key.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := key.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal public key id")
	}
	if err := key.UserID.UnmarshalBinary(userIDBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal user id")
	}
	return &key, nil
}

// Create inserts a public key.
func (r *MySQLPublicKeyRepository) Create(ctx context.Context, key *userDomain.PublicKey) error {
	querier := database.GetTx(ctx, r.db)

	id, err := key.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal public key id")
	}
	userID, err := key.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `INSERT INTO public_keys (id, user_id, algorithm, key_data, is_primary, expires_at, revoked_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		userID,
		key.Algorithm,
		key.KeyData,
		key.IsPrimary,
		key.ExpiresAt,
		key.RevokedAt,
		key.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create public key")
	}
	return nil
}

// Get retrieves a public key by ID.
func (r *MySQLPublicKeyRepository) Get(ctx context.Context, keyID uuid.UUID) (*userDomain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	id, err := keyID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal public key id")
	}

	query := `SELECT ` + myPublicKeyColumns + ` FROM public_keys WHERE id = ?`

	key, err := scanMySQLPublicKey(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userDomain.ErrPublicKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get public key")
	}
	return key, nil
}

// FindPrimaryActive returns the user's primary key for algorithm that is neither revoked nor
// expired at now.
func (r *MySQLPublicKeyRepository) FindPrimaryActive(
	ctx context.Context,
	userID uuid.UUID,
	algorithm string,
	now time.Time,
) (*userDomain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	uid, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `SELECT ` + myPublicKeyColumns + ` FROM public_keys
			  WHERE user_id = ? AND algorithm = ? AND is_primary = TRUE
			  AND revoked_at IS NULL AND (expires_at IS NULL OR expires_at > ?)
			  ORDER BY created_at DESC LIMIT 1`

	key, err := scanMySQLPublicKey(querier.QueryRowContext(ctx, query, uid, algorithm, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userDomain.ErrPublicKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to find primary public key")
	}
	return key, nil
}

// ClearPrimary unsets the primary flag on every key the user holds for algorithm.
func (r *MySQLPublicKeyRepository) ClearPrimary(ctx context.Context, userID uuid.UUID, algorithm string) error {
	querier := database.GetTx(ctx, r.db)

	uid, err := userID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `UPDATE public_keys SET is_primary = FALSE WHERE user_id = ? AND algorithm = ? AND is_primary = TRUE`

	if _, err := querier.ExecContext(ctx, query, uid, algorithm); err != nil {
		return apperrors.Wrap(err, "failed to clear primary public key")
	}
	return nil
}

// Revoke marks an unrevoked key revoked. Returns ErrPublicKeyRevoked when no unrevoked key
// matched.
func (r *MySQLPublicKeyRepository) Revoke(ctx context.Context, keyID uuid.UUID, revokedAt time.Time) error {
	querier := database.GetTx(ctx, r.db)

	id, err := keyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal public key id")
	}

	query := `UPDATE public_keys SET revoked_at = ?, is_primary = FALSE WHERE id = ? AND revoked_at IS NULL`

	result, err := querier.ExecContext(ctx, query, revokedAt, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke public key")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read rows affected")
	}
	if rows == 0 {
		return userDomain.ErrPublicKeyRevoked
	}
	return nil
}

// ListByUser returns all keys of a user, newest first.
func (r *MySQLPublicKeyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*userDomain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	uid, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `SELECT ` + myPublicKeyColumns + ` FROM public_keys WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := querier.QueryContext(ctx, query, uid)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list public keys")
	}
	defer func() { _ = rows.Close() }()

	keys := make([]*userDomain.PublicKey, 0)
	for rows.Next() {
		key, err := scanMySQLPublicKey(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan public key")
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate public keys")
	}
	return keys, nil
}
