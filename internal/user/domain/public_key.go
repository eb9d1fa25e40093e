package domain

import (
	"time"

	"github.com/google/uuid"
)

// PublicKey is a recipient's registered public key. Transfers reference the exact key used at
// initiation and never re-resolve it.
type PublicKey struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Algorithm string
	KeyData   []byte
	IsPrimary bool
	ExpiresAt *time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// IsActive reports whether the key is neither revoked nor expired at now.
func (k *PublicKey) IsActive(now time.Time) bool {
	if k.RevokedAt != nil {
		return false
	}
	if k.ExpiresAt != nil && !now.Before(*k.ExpiresAt) {
		return false
	}
	return true
}

// RegisterKeyInput holds a new public key. The first key registered for an algorithm becomes
// primary regardless of MakePrimary.
type RegisterKeyInput struct {
	UserID      uuid.UUID
	Algorithm   string
	KeyData     []byte
	ExpiresAt   *time.Time
	MakePrimary bool
	IPAddress   string
}
