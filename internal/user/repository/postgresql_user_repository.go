// Package repository implements user and public key persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/sealdrop/internal/database"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
)

// PostgreSQLUserRepository persists users in PostgreSQL.
type PostgreSQLUserRepository struct {
	db *sql.DB
}

// NewPostgreSQLUserRepository creates a new PostgreSQLUserRepository.
func NewPostgreSQLUserRepository(db *sql.DB) *PostgreSQLUserRepository {
	return &PostgreSQLUserRepository{db: db}
}

// Create inserts a user. Returns ErrUserAlreadyExists on a duplicate email hash.
func (r *PostgreSQLUserRepository) Create(ctx context.Context, user *userDomain.User) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO users (id, email_hash, display_name, password_hash, totp_secret_sealed,
			  two_factor_type, is_admin, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		user.ID,
		user.EmailHash,
		user.DisplayName,
		user.PasswordHash,
		user.TOTPSecretSealed,
		string(user.TwoFactorType),
		user.IsAdmin,
		user.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return userDomain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

const pgUserColumns = `id, email_hash, display_name, password_hash, totp_secret_sealed, two_factor_type,
	is_admin, created_at`

func scanPostgreSQLUser(row *sql.Row) (*userDomain.User, error) {
	var user userDomain.User
	var twoFactorType string

	err := row.Scan(
		&user.ID,
		&user.EmailHash,
		&user.DisplayName,
		&user.PasswordHash,
		&user.TOTPSecretSealed,
		&twoFactorType,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userDomain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user")
	}

	user.TwoFactorType = userDomain.TwoFactorType(twoFactorType)
	return &user, nil
}

// Get retrieves a user by ID.
func (r *PostgreSQLUserRepository) Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error) {
	querier := database.GetTx(ctx, r.db)
	query := `SELECT ` + pgUserColumns + ` FROM users WHERE id = $1`
	return scanPostgreSQLUser(querier.QueryRowContext(ctx, query, userID))
}

// GetByEmailHash retrieves a user by the hash of their email address.
func (r *PostgreSQLUserRepository) GetByEmailHash(ctx context.Context, emailHash string) (*userDomain.User, error) {
	querier := database.GetTx(ctx, r.db)
	query := `SELECT ` + pgUserColumns + ` FROM users WHERE email_hash = $1`
	return scanPostgreSQLUser(querier.QueryRowContext(ctx, query, emailHash))
}
