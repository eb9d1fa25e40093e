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

// MySQLUserRepository persists users in MySQL. UUIDs are stored as BINARY(16).
type MySQLUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new MySQLUserRepository.
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

// Create inserts a user. Returns ErrUserAlreadyExists on a duplicate email hash.
func (r *MySQLUserRepository) Create(ctx context.Context, user *userDomain.User) error {
	querier := database.GetTx(ctx, r.db)

	id, err := user.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `INSERT INTO users (id, email_hash, display_name, password_hash, totp_secret_sealed,
			  two_factor_type, is_admin, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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

const myUserColumns = `id, email_hash, display_name, password_hash, totp_secret_sealed, two_factor_type,
	is_admin, created_at`

func scanMySQLUser(row *sql.Row) (*userDomain.User, error) {
	var user userDomain.User
	var idBytes []byte
	var twoFactorType string

	err := row.Scan(
		&idBytes,
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

	if err := user.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal user id")
	}
	user.TwoFactorType = userDomain.TwoFactorType(twoFactorType)
	return &user, nil
}

// Get retrieves a user by ID.
func (r *MySQLUserRepository) Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error) {
	querier := database.GetTx(ctx, r.db)

	id, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `SELECT ` + myUserColumns + ` FROM users WHERE id = ?`
	return scanMySQLUser(querier.QueryRowContext(ctx, query, id))
}

// GetByEmailHash retrieves a user by the hash of their email address.
func (r *MySQLUserRepository) GetByEmailHash(ctx context.Context, emailHash string) (*userDomain.User, error) {
	querier := database.GetTx(ctx, r.db)
	query := `SELECT ` + myUserColumns + ` FROM users WHERE email_hash = ?`
	return scanMySQLUser(querier.QueryRowContext(ctx, query, emailHash))
}
