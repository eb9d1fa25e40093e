// Package domain defines user accounts and the public key registry used to address transfers.
package domain

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// TwoFactorType names the second factor a recipient must present.
type TwoFactorType string

// TwoFactorTOTP is the only supported second factor.
const TwoFactorTOTP TwoFactorType = "totp"

// User is an account that can send transfers and receive them. The email address itself is
// never stored, only its hash.
type User struct {
	ID               uuid.UUID
	EmailHash        string
	DisplayName      string
	PasswordHash     string
	TOTPSecretSealed []byte
	TwoFactorType    TwoFactorType
	IsAdmin          bool
	CreatedAt        time.Time
}

// CreateUserInput holds the fields for a new account. An empty Password asks for a
// generated one.
type CreateUserInput struct {
	Email       string
	DisplayName string
	Password    string
	IsAdmin     bool
}

// CreateUserOutput returns credentials that are shown exactly once.
type CreateUserOutput struct {
	User              *User
	PlainPassword     string
	TOTPProvisionURI  string
	TOTPPlainSecret   string
	PasswordGenerated bool
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashEmail returns the SHA3-256 hex digest of the normalized address.
func HashEmail(email string) string {
	sum := sha3.Sum256([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}
