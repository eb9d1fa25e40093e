// Package service provides the credential primitives used by authentication: password hashing,
// opaque bearer tokens, sender JWTs and sealed TOTP secrets.
package service

import (
	"context"
	"time"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
)

// SecretService hashes and verifies user passwords.
type SecretService interface {
	// GeneratePassword creates a random password and returns it with its Argon2id hash. The plain
	// password is shown once and never stored.
	GeneratePassword() (plainPassword string, passwordHash string, err error)

	// HashPassword hashes a plain text password using Argon2id.
	HashPassword(plainPassword string) (passwordHash string, err error)

	// ComparePassword reports whether plainPassword matches passwordHash.
	ComparePassword(plainPassword string, passwordHash string) bool
}

// TokenService generates opaque bearer tokens and their SHA-256 digests.
type TokenService interface {
	// GenerateToken returns a 256-bit random token, base64url encoded, and its hash.
	GenerateToken() (plainToken string, tokenHash string, err error)

	// HashToken returns the hex SHA-256 digest of plainToken.
	HashToken(plainToken string) string
}

// JWTService signs and parses sender JWTs.
type JWTService interface {
	Sign(principal *authDomain.Principal) (token string, expiresAt time.Time, err error)
	Parse(token string) (*authDomain.Principal, error)
}

// TOTPEnrollment is the result of enrolling a user in TOTP. Secret and ProvisioningURI are shown
// once; only Sealed is persisted.
type TOTPEnrollment struct {
	Secret          string
	ProvisioningURI string
	Sealed          []byte
}

// TOTPService enrols users and validates codes against sealed secrets.
type TOTPService interface {
	Enroll(ctx context.Context, accountName string) (*TOTPEnrollment, error)
	Validate(ctx context.Context, sealedSecret []byte, code string, at time.Time) (bool, error)
}
