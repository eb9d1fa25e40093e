// Package usecase implements account creation and the public key registry.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
)

// UserRepository persists users.
type UserRepository interface {
	Create(ctx context.Context, user *userDomain.User) error
	Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error)
	GetByEmailHash(ctx context.Context, emailHash string) (*userDomain.User, error)
}

// PublicKeyRepository persists public keys. Implementations must support transaction-aware
// operations via context propagation.
type PublicKeyRepository interface {
	Create(ctx context.Context, key *userDomain.PublicKey) error
	Get(ctx context.Context, keyID uuid.UUID) (*userDomain.PublicKey, error)
	FindPrimaryActive(ctx context.Context, userID uuid.UUID, algorithm string, now time.Time) (*userDomain.PublicKey, error)
	ClearPrimary(ctx context.Context, userID uuid.UUID, algorithm string) error
	Revoke(ctx context.Context, keyID uuid.UUID, revokedAt time.Time) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*userDomain.PublicKey, error)
}

// AuditRecorder appends audit entries without failing the caller.
type AuditRecorder interface {
	Record(ctx context.Context, entry *authDomain.AuditLog)
}

// UserUseCase manages accounts.
type UserUseCase interface {
	// Create registers an account, enrols it in TOTP and returns the one-time credentials.
	Create(ctx context.Context, input *userDomain.CreateUserInput) (*userDomain.CreateUserOutput, error)

	Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error)
}

// KeyUseCase manages the public keys recipients are addressed with.
type KeyUseCase interface {
	// Register stores a key. It becomes primary when requested or when the user has no active
	// primary key for the algorithm.
	Register(ctx context.Context, input *userDomain.RegisterKeyInput) (*userDomain.PublicKey, error)

	List(ctx context.Context, userID uuid.UUID) ([]*userDomain.PublicKey, error)

	// Revoke revokes a key owned by userID. Keys of other users are reported as not found.
	Revoke(ctx context.Context, userID, keyID uuid.UUID, ipAddress string) error
}
