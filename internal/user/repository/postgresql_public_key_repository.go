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

// PostgreSQLPublicKeyRepository persists public keys in PostgreSQL.
type PostgreSQLPublicKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLPublicKeyRepository creates a new PostgreSQLPublicKeyRepository.
func NewPostgreSQLPublicKeyRepository(db *sql.DB) *PostgreSQLPublicKeyRepository {
	return &PostgreSQLPublicKeyRepository{db: db}
}

const pgPublicKeyColumns = `id, user_id, algorithm, key_data, is_primary, expires_at, revoked_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgreSQLPublicKey(row rowScanner) (*userDomain.PublicKey, error) {
	var key userDomain.PublicKey
	err := row.Scan(
		&key.ID,
		&key.UserID,
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
	return &key, nil
}

// Create inserts a public key.
func (r *PostgreSQLPublicKeyRepository) Create(ctx context.Context, key *userDomain.PublicKey) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO public_keys (id, user_id, algorithm, key_data, is_primary, expires_at, revoked_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.ID,
		key.UserID,
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
func (r *PostgreSQLPublicKeyRepository) Get(ctx context.Context, keyID uuid.UUID) (*userDomain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + pgPublicKeyColumns + ` FROM public_keys WHERE id = $1`

	key, err := scanPostgreSQLPublicKey(querier.QueryRowContext(ctx, query, keyID))
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
func (r *PostgreSQLPublicKeyRepository) FindPrimaryActive(
	ctx context.Context,
	userID uuid.UUID,
	algorithm string,
	now time.Time,
) (*userDomain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + pgPublicKeyColumns + ` FROM public_keys
			  WHERE user_id = $1 AND algorithm = $2 AND is_primary = TRUE
			  AND revoked_at IS NULL AND (expires_at IS NULL OR expires_at > $3)
			  ORDER BY created_at DESC LIMIT 1`

	key, err := scanPostgreSQLPublicKey(querier.QueryRowContext(ctx, query, userID, algorithm, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userDomain.ErrPublicKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to find primary public key")
	}
	return key, nil
}

// ClearPrimary unsets the primary flag on every key the user holds for algorithm.
func (r *PostgreSQLPublicKeyRepository) ClearPrimary(ctx context.Context, userID uuid.UUID, algorithm string) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE public_keys SET is_primary = FALSE WHERE user_id = $1 AND algorithm = $2 AND is_primary = TRUE`

	if _, err := querier.ExecContext(ctx, query, userID, algorithm); err != nil {
		return apperrors.Wrap(err, "failed to clear primary public key")
	}
	return nil
}

// Revoke marks an unrevoked key revoked. Returns ErrPublicKeyRevoked when no unrevoked key
// matched.
func (r *PostgreSQLPublicKeyRepository) Revoke(ctx context.Context, keyID uuid.UUID, revokedAt time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE public_keys SET revoked_at = $1, is_primary = FALSE WHERE id = $2 AND revoked_at IS NULL`

	result, err := querier.ExecContext(ctx, query, revokedAt, keyID)
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
func (r *PostgreSQLPublicKeyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*userDomain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + pgPublicKeyColumns + ` FROM public_keys WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list public keys")
	}
	defer func() { _ = rows.Close() }()

	keys := make([]*userDomain.PublicKey, 0)
	for rows.Next() {
		key, err := scanPostgreSQLPublicKey(rows)
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
