package domain

import (
	"github.com/allisson/sealdrop/internal/errors"
)

// User and key registry errors.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrUserAlreadyExists indicates an account with the same email hash exists.
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "user already exists")

	// ErrPublicKeyNotFound indicates the requested key does not exist or belongs to someone else.
	ErrPublicKeyNotFound = errors.Wrap(errors.ErrNotFound, "public key not found")

	// ErrPublicKeyRevoked indicates the key was already revoked.
	ErrPublicKeyRevoked = errors.Wrap(errors.ErrConflict, "public key already revoked")
)
