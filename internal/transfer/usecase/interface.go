// Package usecase implements the sender-side transfer orchestration and the recipient-side
// download broker.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	"github.com/allisson/sealdrop/internal/storage"
	transferDomain "github.com/allisson/sealdrop/internal/transfer/domain"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
)

// TransferRepository persists transfers. State transitions are conditional updates.
type TransferRepository interface {
	Create(ctx context.Context, transfer *transferDomain.Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*transferDomain.Transfer, error)
	GetByURLToken(ctx context.Context, urlToken string) (*transferDomain.Transfer, error)
	AttachCloudFile(ctx context.Context, id uuid.UUID, cloudFileID string, now time.Time) error
	MarkReady(ctx context.Context, id uuid.UUID, now time.Time) error

	// IncrementDownload consumes one download. Returns ErrTransferExhausted when the transfer no
	// longer qualifies.
	IncrementDownload(ctx context.Context, id uuid.UUID, now time.Time) (int, transferDomain.Status, error)

	MarkDeleted(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*transferDomain.Transfer, error)
}

// UserRepository resolves senders and recipients.
type UserRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error)
	GetByEmailHash(ctx context.Context, emailHash string) (*userDomain.User, error)
}

// PublicKeyRepository resolves the key a transfer is addressed to.
type PublicKeyRepository interface {
	FindPrimaryActive(ctx context.Context, userID uuid.UUID, algorithm string, now time.Time) (*userDomain.PublicKey, error)
}

// StorageRegistry resolves an object storage backend by cloud type.
type StorageRegistry interface {
	Get(cloudType string) (storage.ObjectStorage, error)
}

// SessionResolver checks a recipient bearer token against a transfer URL.
type SessionResolver interface {
	ResolveSession(ctx context.Context, authToken, urlToken string) (*authDomain.AuthSession, error)
}

// LockChecker reports whether a transfer URL is locked after too many failed codes.
type LockChecker interface {
	IsLocked(ctx context.Context, urlToken string) (bool, error)
}

// AuditRecorder appends audit entries without failing the caller.
type AuditRecorder interface {
	Record(ctx context.Context, entry *authDomain.AuditLog)
}

// Orchestrator drives the sender side of a transfer.
type Orchestrator interface {
	// Initiate resolves the recipient key, issues an upload URL and creates the transfer.
	Initiate(ctx context.Context, input *transferDomain.InitiateInput) (*transferDomain.InitiateOutput, error)

	// StoreKey caches the wrapped key and records the uploaded object.
	StoreKey(ctx context.Context, input *transferDomain.StoreKeyInput) error

	// FinalizeURL makes the transfer available to the recipient and optionally emails the link.
	FinalizeURL(ctx context.Context, input *transferDomain.FinalizeInput) (*transferDomain.FinalizeOutput, error)

	// Get returns a transfer owned by senderID.
	Get(ctx context.Context, sessionID, senderID uuid.UUID) (*transferDomain.Transfer, error)
}

// DownloadBroker drives the recipient side of a transfer and its cleanup.
type DownloadBroker interface {
	GetInfo(ctx context.Context, urlToken, ipAddress string) (*transferDomain.Info, error)

	// GetKey releases the wrapped key and a download URL, consuming one download.
	GetKey(ctx context.Context, urlToken, authToken, ipAddress string) (*transferDomain.KeyRelease, error)

	// Complete removes every trace of the file and tombstones the transfer. Retrying succeeds.
	Complete(ctx context.Context, urlToken, authToken, ipAddress string) error

	// ForceDelete is the administrative Complete.
	ForceDelete(ctx context.Context, sessionID, actorID uuid.UUID, ipAddress string) error

	// ExpireStale expires up to limit past-due transfers and purges their key and object.
	ExpireStale(ctx context.Context, limit int, dryRun bool) (int, error)
}
