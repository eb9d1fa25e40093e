package domain

import (
	"github.com/allisson/sealdrop/internal/errors"
)

// Authentication errors.
var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")

	// ErrInvalidToken indicates a missing, malformed, or expired sender JWT.
	ErrInvalidToken = errors.Wrap(errors.ErrUnauthorized, "invalid token")

	// ErrAuthSessionInvalid indicates the recipient bearer token is unknown, expired, or bound to
	// another transfer.
	ErrAuthSessionInvalid = errors.Wrap(errors.ErrUnauthorized, "auth session invalid")

	// ErrTransferLocked indicates the transfer URL reached the failed-attempt threshold.
	ErrTransferLocked = errors.Wrap(errors.ErrLocked, "transfer locked")

	// ErrAdminRequired indicates the principal is not an administrator.
	ErrAdminRequired = errors.Wrap(errors.ErrForbidden, "admin privileges required")

	// ErrTwoFactorNotEnrolled indicates the recipient has no usable TOTP secret.
	ErrTwoFactorNotEnrolled = errors.Wrap(errors.ErrConflict, "two-factor authentication not enrolled")

	// ErrInvalidAuditEvent indicates an event outside the closed audit event set.
	ErrInvalidAuditEvent = errors.Wrap(errors.ErrInvalidInput, "invalid audit event")
)
