package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthSession is the cache value behind a recipient auth token. It is only valid for the
// transfer whose URL token it was minted for.
type AuthSession struct {
	UserID   uuid.UUID `json:"user_id"`
	URLToken string    `json:"url_token"`
}

// Principal is the authenticated sender or administrator behind a JWT.
type Principal struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// VerifyTOTPInput carries a recipient's second-factor attempt for one transfer.
type VerifyTOTPInput struct {
	URLToken  string
	Code      string
	IPAddress string
}

// VerifyTOTPOutput contains the short-lived bearer token issued after a correct code.
type VerifyTOTPOutput struct {
	AuthToken string
	ExpiresAt time.Time
}

// LoginInput contains sender credentials.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
}

// LoginOutput contains the signed sender JWT.
type LoginOutput struct {
	Token     string
	ExpiresAt time.Time
}

// LockStatus reports the lockout counter of a transfer URL.
type LockStatus struct {
	Failures  int64
	Locked    bool
	Threshold int64
}
