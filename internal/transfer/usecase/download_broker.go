package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	"github.com/allisson/sealdrop/internal/cache"
	"github.com/allisson/sealdrop/internal/metrics"
	transferDomain "github.com/allisson/sealdrop/internal/transfer/domain"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
)

// DownloadBrokerConfig groups the collaborators of NewDownloadBroker.
type DownloadBrokerConfig struct {
	TransferRepo TransferRepository
	UserRepo     UserRepository
	Storage      StorageRegistry
	Cache        cache.Cache
	Sessions     SessionResolver
	Locks        LockChecker
	AuditLog     AuditRecorder
	Metrics      metrics.BusinessMetrics
	Logger       *slog.Logger
}

type downloadBroker struct {
	transferRepo TransferRepository
	userRepo     UserRepository
	storage      StorageRegistry
	cache        cache.Cache
	sessions     SessionResolver
	locks        LockChecker
	auditLog     AuditRecorder
	metrics      metrics.BusinessMetrics
	logger       *slog.Logger
	now          func() time.Time
}

// loadAvailable fetches a transfer and applies the recipient-side checks. An expired transfer is
// marked expired on a best-effort basis.
func (d *downloadBroker) loadAvailable(ctx context.Context, urlToken string) (*transferDomain.Transfer, error) {
	transfer, err := d.transferRepo.GetByURLToken(ctx, urlToken)
	if err != nil {
		return nil, err
	}

	now := d.now().UTC()
	if err := transfer.CheckAvailable(now); err != nil {
		if errors.Is(err, transferDomain.ErrTransferExpired) && transfer.Status != transferDomain.StatusExpired {
			if _, markErr := d.transferRepo.MarkExpired(ctx, transfer.ID, now); markErr != nil {
				d.logger.WarnContext(ctx, "failed to mark transfer expired",
					slog.String("transfer_id", transfer.ID.String()),
					slog.Any("error", markErr),
				)
			}
		}
		return nil, err
	}
	return transfer, nil
}

// GetInfo returns the landing-page view. Deleted, expired and exhausted transfers are reported
// before the lock so a dead link never reveals lock state.
func (d *downloadBroker) GetInfo(ctx context.Context, urlToken, ipAddress string) (*transferDomain.Info, error) {
	ctx = context.WithoutCancel(ctx)

	transfer, err := d.loadAvailable(ctx, urlToken)
	if err != nil {
		return nil, err
	}

	locked, err := d.locks.IsLocked(ctx, urlToken)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, authDomain.ErrTransferLocked
	}

	sender, err := d.userRepo.Get(ctx, transfer.SenderID)
	if err != nil {
		return nil, err
	}

	twoFactorType := userDomain.TwoFactorTOTP
	recipient, err := d.userRepo.GetByEmailHash(ctx, transfer.RecipientEmailHash)
	switch {
	case err == nil:
		twoFactorType = recipient.TwoFactorType
	case !errors.Is(err, userDomain.ErrUserNotFound):
		return nil, err
	}

	d.auditLog.Record(ctx, authDomain.NewAuditLog(authDomain.EventInfoViewed, authDomain.ResultSuccess, ipAddress).
		WithSession(transfer.ID))

	return &transferDomain.Info{
		SenderDisplayName:  sender.DisplayName,
		FileSizeBytes:      transfer.FileSizeBytes,
		ExpiresAt:          transfer.ExpiresAt,
		RemainingDownloads: transfer.RemainingDownloads(),
		TwoFactorType:      string(twoFactorType),
	}, nil
}

// GetKey checks the bearer binding, re-validates the transfer, reads the wrapped key, signs a
// download URL and only then consumes a download with a single conditional increment.
func (d *downloadBroker) GetKey(
	ctx context.Context,
	urlToken, authToken, ipAddress string,
) (*transferDomain.KeyRelease, error) {
	ctx = context.WithoutCancel(ctx)

	session, err := d.sessions.ResolveSession(ctx, authToken, urlToken)
	if err != nil {
		return nil, err
	}

	transfer, err := d.loadAvailable(ctx, urlToken)
	if err != nil {
		return nil, err
	}
	if transfer.CloudFileID == nil {
		return nil, transferDomain.ErrTransferNotFound
	}

	wrappedKey, err := d.cache.Get(ctx, cache.WrappedKeyKey(urlToken))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, transferDomain.ErrWrappedKeyNotFound
		}
		return nil, err
	}

	backend, err := d.storage.Get(transfer.CloudType)
	if err != nil {
		return nil, err
	}
	downloadURL, err := backend.CreateSignedDownloadURL(ctx, *transfer.CloudFileID)
	if err != nil {
		return nil, err
	}

	count, status, err := d.transferRepo.IncrementDownload(ctx, transfer.ID, d.now().UTC())
	if err != nil {
		return nil, err
	}

	d.metrics.RecordSecurityEvent(ctx, metrics.EventKeyReleased)
	d.auditLog.Record(ctx, authDomain.NewAuditLog(authDomain.EventKeyReleased, authDomain.ResultSuccess, ipAddress).
		WithSession(transfer.ID).
		WithActor(session.UserID).
		WithMetadata(map[string]any{"download_count": count, "status": string(status)}))

	return &transferDomain.KeyRelease{
		WrappedKey:           wrappedKey,
		DownloadURL:          downloadURL.URL,
		DownloadURLExpiresAt: downloadURL.ExpiresAt,
		FileHashSHA3:         transfer.FileHashSHA3,
		DownloadCount:        count,
		Status:               status,
	}, nil
}

// purge removes the wrapped key and the object. Both are best-effort: failures are logged and
// counted, and the caller goes on to tombstone the row.
func (d *downloadBroker) purge(ctx context.Context, transfer *transferDomain.Transfer) {
	if _, _, err := d.cache.GetDel(ctx, cache.WrappedKeyKey(transfer.URLToken)); err != nil {
		d.metrics.RecordSecurityEvent(ctx, metrics.EventCacheDeleteFailed)
		d.logger.ErrorContext(ctx, "failed to delete wrapped key",
			slog.String("transfer_id", transfer.ID.String()),
			slog.Any("error", err),
		)
	}

	if transfer.CloudFileID == nil {
		return
	}

	backend, err := d.storage.Get(transfer.CloudType)
	if err == nil {
		err = backend.DeleteObject(ctx, *transfer.CloudFileID)
	}
	if err != nil {
		d.metrics.RecordSecurityEvent(ctx, metrics.EventObjectDeleteFailed)
		d.logger.ErrorContext(ctx, "failed to delete object",
			slog.String("transfer_id", transfer.ID.String()),
			slog.String("cloud_type", transfer.CloudType),
			slog.Any("error", err),
		)
	}
}

func (d *downloadBroker) deleteTransfer(
	ctx context.Context,
	transfer *transferDomain.Transfer,
	event authDomain.AuditEvent,
	actorID uuid.UUID,
	ipAddress string,
) error {
	d.purge(ctx, transfer)

	changed, err := d.transferRepo.MarkDeleted(ctx, transfer.ID, d.now().UTC())
	if err != nil {
		return err
	}

	d.auditLog.Record(ctx, authDomain.NewAuditLog(event, authDomain.ResultSuccess, ipAddress).
		WithSession(transfer.ID).
		WithActor(actorID).
		WithMetadata(map[string]any{"already_deleted": !changed}))
	return nil
}

// Complete tombstones the transfer after the recipient is done. The auth session is left to
// expire so a later GetKey with the same bearer reports the transfer as not found.
func (d *downloadBroker) Complete(ctx context.Context, urlToken, authToken, ipAddress string) error {
	ctx = context.WithoutCancel(ctx)

	session, err := d.sessions.ResolveSession(ctx, authToken, urlToken)
	if err != nil {
		return err
	}

	transfer, err := d.transferRepo.GetByURLToken(ctx, urlToken)
	if err != nil {
		return err
	}

	return d.deleteTransfer(ctx, transfer, authDomain.EventComplete, session.UserID, ipAddress)
}

func (d *downloadBroker) ForceDelete(ctx context.Context, sessionID, actorID uuid.UUID, ipAddress string) error {
	ctx = context.WithoutCancel(ctx)

	transfer, err := d.transferRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}

	return d.deleteTransfer(ctx, transfer, authDomain.EventForceDelete, actorID, ipAddress)
}

// ExpireStale marks past-due transfers expired and purges what they still hold. In dry-run mode
// it only counts them.
func (d *downloadBroker) ExpireStale(ctx context.Context, limit int, dryRun bool) (int, error) {
	now := d.now().UTC()

	transfers, err := d.transferRepo.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	if dryRun {
		return len(transfers), nil
	}

	expired := 0
	for _, transfer := range transfers {
		d.purge(ctx, transfer)

		changed, err := d.transferRepo.MarkExpired(ctx, transfer.ID, now)
		if err != nil {
			return expired, err
		}
		if !changed {
			continue
		}

		expired++
		d.auditLog.Record(ctx, authDomain.NewAuditLog(authDomain.EventExpire, authDomain.ResultSuccess, "").
			WithSession(transfer.ID).
			WithMetadata(map[string]any{"previous_status": string(transfer.Status)}))
	}
	return expired, nil
}

// NewDownloadBroker creates a DownloadBroker.
func NewDownloadBroker(cfg DownloadBrokerConfig) DownloadBroker {
	return &downloadBroker{
		transferRepo: cfg.TransferRepo,
		userRepo:     cfg.UserRepo,
		storage:      cfg.Storage,
		cache:        cfg.Cache,
		sessions:     cfg.Sessions,
		locks:        cfg.Locks,
		auditLog:     cfg.AuditLog,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		now:          time.Now,
	}
}
