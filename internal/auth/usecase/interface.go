// Package usecase implements recipient second-factor verification, the per-URL lockout guard,
// sender login, IP rate limiting and the audit trail.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	transferDomain "github.com/allisson/sealdrop/internal/transfer/domain"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
)

// AuditLogRepository persists audit entries. Implementations must support transaction-aware
// operations via context propagation.
type AuditLogRepository interface {
	Create(ctx context.Context, auditLog *authDomain.AuditLog) error

	// List returns entries newest first, narrowed by filter.
	List(ctx context.Context, filter authDomain.AuditLogFilter) ([]*authDomain.AuditLog, error)

	// DeleteOlderThan removes entries created before olderThan, or only counts them when dryRun.
	DeleteOlderThan(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error)
}

// UserRepository is the user lookup needed for login and second-factor checks.
type UserRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error)
	GetByEmailHash(ctx context.Context, emailHash string) (*userDomain.User, error)
}

// TransferRepository is the transfer lookup needed before a second-factor check.
type TransferRepository interface {
	GetByURLToken(ctx context.Context, urlToken string) (*transferDomain.Transfer, error)
	MarkExpired(ctx context.Context, transferID uuid.UUID, now time.Time) (bool, error)
}

// AuditLogUseCase records and queries the audit trail.
type AuditLogUseCase interface {
	// Record appends entry. It never fails the caller: write errors are logged and counted.
	Record(ctx context.Context, entry *authDomain.AuditLog)

	List(ctx context.Context, filter authDomain.AuditLogFilter) ([]*authDomain.AuditLog, error)

	// DeleteOlderThan removes entries older than days, or counts them when dryRun.
	DeleteOlderThan(ctx context.Context, days int, dryRun bool) (int64, error)
}

// LockoutGuard counts failed second-factor attempts per transfer URL. The counter only grows;
// Unlock is the single way back to zero.
type LockoutGuard interface {
	Failures(ctx context.Context, urlToken string) (int64, error)
	RecordFailure(ctx context.Context, urlToken string) (int64, error)
	IsLocked(ctx context.Context, urlToken string) (bool, error)
	Unlock(ctx context.Context, urlToken string) error
	Threshold() int64
}

// AuthUseCase verifies senders and recipients.
type AuthUseCase interface {
	// VerifyTOTP checks a recipient's one-time code for a transfer and mints a bearer token
	// bound to that transfer. Failed codes return *errors.AuthFailedError.
	VerifyTOTP(ctx context.Context, input *authDomain.VerifyTOTPInput) (*authDomain.VerifyTOTPOutput, error)

	// ResolveSession returns the auth session behind authToken if and only if it was minted
	// for urlToken.
	ResolveSession(ctx context.Context, authToken, urlToken string) (*authDomain.AuthSession, error)

	// Login checks a sender password and issues a JWT.
	Login(ctx context.Context, input *authDomain.LoginInput) (*authDomain.LoginOutput, error)

	// Authenticate validates a sender JWT.
	Authenticate(ctx context.Context, token string) (*authDomain.Principal, error)

	// Unlock clears the lockout counter of a transfer URL.
	Unlock(ctx context.Context, urlToken string, actorID uuid.UUID, ipAddress string) error

	LockStatus(ctx context.Context, urlToken string) (*authDomain.LockStatus, error)
}

// RateDecision is the outcome of one rate-limit check.
type RateDecision struct {
	Allowed    bool
	Count      int64
	Limit      int64
	RetryAfter time.Duration
}

// RateLimiter throttles requests per network origin using fixed windows.
type RateLimiter interface {
	// Allow counts one request for ip in the general bucket.
	Allow(ctx context.Context, ip string) *RateDecision

	// AllowLogin counts one request for ip in the login bucket.
	AllowLogin(ctx context.Context, ip string) *RateDecision
}
