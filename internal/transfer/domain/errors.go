package domain

import (
	"github.com/allisson/sealdrop/internal/errors"
)

// Transfer errors.
var (
	ErrTransferNotFound = errors.Wrap(errors.ErrNotFound, "transfer not found")

	// ErrTransferExpired and ErrTransferExhausted are both Gone, kept apart for logs and audit.
	ErrTransferExpired   = errors.Wrap(errors.ErrGone, "transfer expired")
	ErrTransferExhausted = errors.Wrap(errors.ErrGone, "download limit reached")

	// ErrRecipientKeyNotFound is returned for an unknown recipient and for a recipient without an
	// active key alike.
	ErrRecipientKeyNotFound = errors.Wrap(errors.ErrNotFound, "recipient public key not found")

	// ErrWrappedKeyNotFound means the durable transfer exists but its cached key is gone.
	ErrWrappedKeyNotFound = errors.Wrap(errors.ErrNotFound, "wrapped key not found")

	ErrTransferForbidden = errors.Wrap(errors.ErrForbidden, "transfer belongs to another sender")
	ErrInvalidState      = errors.Wrap(errors.ErrConflict, "transfer is not in the required state")
	ErrCloudFileMismatch = errors.Wrap(errors.ErrInvalidInput, "cloud file id does not match the issued object")
	ErrRecipientMismatch = errors.Wrap(errors.ErrInvalidInput, "recipient email does not match the transfer")
	ErrMissingCloudFile  = errors.Wrap(errors.ErrConflict, "wrapped key has not been stored")
	ErrUnknownCloudType  = errors.Wrap(errors.ErrInvalidInput, "unknown cloud type")
)
