// Package domain defines the transfer session model and its state machine.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a transfer.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusReady      Status = "ready"
	StatusDownloaded Status = "downloaded"
	StatusExpired    Status = "expired"
	StatusDeleted    Status = "deleted"
)

// Transfer limits.
const (
	MinMaxDownloads   = 1
	MaxMaxDownloads   = 5
	FileHashHexLength = 64
)

// Transfer is a one-recipient file hand-off. The wrapped key never lives here; only the cache
// holds it. Rows are tombstoned through DeletedAt, never removed.
type Transfer struct {
	ID                 uuid.UUID
	URLToken           string
	SenderID           uuid.UUID
	RecipientKeyID     uuid.UUID
	RecipientEmailHash string
	FileHashSHA3       string
	FileSizeBytes      int64
	CloudType          string
	CloudFileID        *string
	MaxDownloads       int
	DownloadCount      int
	ExpiresAt          time.Time
	Status             Status
	DeletedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsDeleted reports whether the transfer carries a tombstone.
func (t *Transfer) IsDeleted() bool {
	return t.DeletedAt != nil || t.Status == StatusDeleted
}

// IsExpired reports whether the transfer is past its expiry or already marked expired.
func (t *Transfer) IsExpired(now time.Time) bool {
	return t.Status == StatusExpired || !now.Before(t.ExpiresAt)
}

// IsExhausted reports whether the download budget is spent.
func (t *Transfer) IsExhausted() bool {
	return t.DownloadCount >= t.MaxDownloads
}

// RemainingDownloads returns how many key releases are left.
func (t *Transfer) RemainingDownloads() int {
	if t.IsExhausted() {
		return 0
	}
	return t.MaxDownloads - t.DownloadCount
}

// CheckAvailable applies the recipient-side checks in their fixed order: deleted, expired,
// exhausted, not ready. A deleted transfer never reports expiry or budget state and an expired
// one never reports budget state.
func (t *Transfer) CheckAvailable(now time.Time) error {
	switch {
	case t.IsDeleted():
		return ErrTransferNotFound
	case t.IsExpired(now):
		return ErrTransferExpired
	case t.IsExhausted():
		return ErrTransferExhausted
	case t.Status != StatusReady:
		return ErrTransferNotFound
	}
	return nil
}

// CheckSenderMutable applies the sender-side checks shared by StoreKey and FinalizeURL.
func (t *Transfer) CheckSenderMutable(senderID uuid.UUID, now time.Time) error {
	switch {
	case t.IsDeleted():
		return ErrTransferNotFound
	case t.SenderID != senderID:
		return ErrTransferForbidden
	case t.Status == StatusInitiated && t.IsExpired(now):
		return ErrTransferExpired
	case t.Status != StatusInitiated:
		return ErrInvalidState
	}
	return nil
}

// InitiateInput starts a transfer.
type InitiateInput struct {
	SenderID       uuid.UUID
	RecipientEmail string
	FileHashSHA3   string
	FileSizeBytes  int64
	CloudType      string
	MaxDownloads   int
	TTLHours       int
	KeyAlgorithm   string
	IPAddress      string
}

// InitiateOutput is everything the sender client needs to encrypt and upload.
type InitiateOutput struct {
	SessionID          uuid.UUID
	UploadURL          string
	ObjectID           string
	RecipientPublicKey []byte
	RecipientKeyID     uuid.UUID
	KeyAlgorithm       string
	URLToken           string
	ExpiresAt          time.Time
}

// StoreKeyInput hands the wrapped key to the server after upload.
type StoreKeyInput struct {
	SessionID   uuid.UUID
	SenderID    uuid.UUID
	WrappedKey  []byte
	CloudFileID string
	IPAddress   string
}

// FinalizeInput makes the transfer available to the recipient. RecipientEmail is optional and
// only used to send the link; it must match the address given at initiation.
type FinalizeInput struct {
	SessionID      uuid.UUID
	SenderID       uuid.UUID
	RecipientEmail string
	IPAddress      string
}

// FinalizeOutput reports the share URL and whether the email went out.
type FinalizeOutput struct {
	ShareURL  string
	ExpiresAt time.Time
	Status    Status
	EmailSent bool
}

// Info is the unauthenticated landing-page view of a transfer.
type Info struct {
	SenderDisplayName  string
	FileSizeBytes      int64
	ExpiresAt          time.Time
	RemainingDownloads int
	TwoFactorType      string
}

// KeyRelease is what the recipient receives after a successful second factor.
type KeyRelease struct {
	WrappedKey           []byte
	DownloadURL          string
	DownloadURLExpiresAt time.Time
	FileHashSHA3         string
	DownloadCount        int
	Status               Status
}
