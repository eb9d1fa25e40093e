package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	authService "github.com/allisson/sealdrop/internal/auth/service"
	"github.com/allisson/sealdrop/internal/cache"
	"github.com/allisson/sealdrop/internal/metrics"
	"github.com/allisson/sealdrop/internal/notify"
	"github.com/allisson/sealdrop/internal/storage"
	transferDomain "github.com/allisson/sealdrop/internal/transfer/domain"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
	customValidation "github.com/allisson/sealdrop/internal/validation"
)

const (
	maxWrappedKeyBytes   = 8192
	defaultNotifyTimeout = 10 * time.Second
)

var errNonPositiveKeyTTL = errors.New("wrapped key TTL must be positive")

// Settings holds the transfer limits and defaults.
type Settings struct {
	PublicBaseURL       string
	WrappedKeyTTL       time.Duration
	MaxFileSizeBytes    int64
	DefaultTTLHours     int
	MaxTTLHours         int
	DefaultMaxDownloads int
	DefaultKeyAlgorithm string
	DefaultCloudType    string
	// NotifyTimeout bounds the share-link notification inside FinalizeURL.
	NotifyTimeout time.Duration
}

// OrchestratorConfig groups the collaborators of NewOrchestrator.
type OrchestratorConfig struct {
	TransferRepo TransferRepository
	UserRepo     UserRepository
	KeyRepo      PublicKeyRepository
	Storage      StorageRegistry
	Cache        cache.Cache
	TokenService authService.TokenService
	Notifier     notify.Notifier
	AuditLog     AuditRecorder
	Metrics      metrics.BusinessMetrics
	Settings     Settings
	Logger       *slog.Logger
}

type orchestrator struct {
	transferRepo TransferRepository
	userRepo     UserRepository
	keyRepo      PublicKeyRepository
	storage      StorageRegistry
	cache        cache.Cache
	tokenService authService.TokenService
	notifier     notify.Notifier
	auditLog     AuditRecorder
	metrics      metrics.BusinessMetrics
	settings     Settings
	logger       *slog.Logger
	now          func() time.Time
}

func (o *orchestrator) applyDefaults(input *transferDomain.InitiateInput) {
	input.RecipientEmail = userDomain.NormalizeEmail(input.RecipientEmail)
	input.FileHashSHA3 = strings.ToLower(input.FileHashSHA3)
	if input.MaxDownloads == 0 {
		input.MaxDownloads = o.settings.DefaultMaxDownloads
	}
	if input.TTLHours == 0 {
		input.TTLHours = o.settings.DefaultTTLHours
	}
	if input.KeyAlgorithm == "" {
		input.KeyAlgorithm = o.settings.DefaultKeyAlgorithm
	}
	if input.CloudType == "" {
		input.CloudType = o.settings.DefaultCloudType
	}
}

func (o *orchestrator) validateInitiate(input *transferDomain.InitiateInput) error {
	err := validation.ValidateStruct(input,
		validation.Field(&input.RecipientEmail, validation.Required, customValidation.Email),
		validation.Field(&input.FileHashSHA3, validation.Required, customValidation.HexDigest256),
		validation.Field(&input.FileSizeBytes, validation.Required, validation.Min(int64(1)),
			validation.Max(o.settings.MaxFileSizeBytes)),
		validation.Field(&input.MaxDownloads,
			validation.Min(transferDomain.MinMaxDownloads), validation.Max(transferDomain.MaxMaxDownloads)),
		validation.Field(&input.TTLHours, validation.Min(1), validation.Max(o.settings.MaxTTLHours)),
		validation.Field(&input.KeyAlgorithm, validation.Required),
	)
	return customValidation.WrapValidationError(err)
}

// resolveRecipientKey returns the recipient and the key the transfer is addressed to. An unknown
// recipient and a recipient without a usable key are reported identically.
func (o *orchestrator) resolveRecipientKey(
	ctx context.Context,
	email, algorithm string,
	now time.Time,
) (*userDomain.PublicKey, error) {
	recipient, err := o.userRepo.GetByEmailHash(ctx, userDomain.HashEmail(email))
	if err != nil {
		if errors.Is(err, userDomain.ErrUserNotFound) {
			return nil, transferDomain.ErrRecipientKeyNotFound
		}
		return nil, err
	}

	key, err := o.keyRepo.FindPrimaryActive(ctx, recipient.ID, algorithm, now)
	if err != nil {
		if errors.Is(err, userDomain.ErrPublicKeyNotFound) {
			return nil, transferDomain.ErrRecipientKeyNotFound
		}
		return nil, err
	}
	return key, nil
}

func (o *orchestrator) backend(cloudType string) (storage.ObjectStorage, error) {
	backend, err := o.storage.Get(cloudType)
	if err != nil {
		if errors.Is(err, storage.ErrUnknownCloudType) {
			return nil, transferDomain.ErrUnknownCloudType
		}
		return nil, err
	}
	return backend, nil
}

// Initiate validates the request, resolves the recipient key and the storage backend, issues an
// upload handle and creates the transfer in initiated state.
func (o *orchestrator) Initiate(
	ctx context.Context,
	input *transferDomain.InitiateInput,
) (*transferDomain.InitiateOutput, error) {
	ctx = context.WithoutCancel(ctx)

	o.applyDefaults(input)
	if err := o.validateInitiate(input); err != nil {
		return nil, err
	}

	now := o.now().UTC()

	key, err := o.resolveRecipientKey(ctx, input.RecipientEmail, input.KeyAlgorithm, now)
	if err != nil {
		return nil, err
	}

	backend, err := o.backend(input.CloudType)
	if err != nil {
		return nil, err
	}

	urlToken, _, err := o.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	sessionID := uuid.Must(uuid.NewV7())
	handle, err := backend.CreateSignedUploadHandle(ctx, sessionID.String(), input.FileSizeBytes)
	if err != nil {
		return nil, err
	}

	transfer := &transferDomain.Transfer{
		ID:                 sessionID,
		URLToken:           urlToken,
		SenderID:           input.SenderID,
		RecipientKeyID:     key.ID,
		RecipientEmailHash: userDomain.HashEmail(input.RecipientEmail),
		FileHashSHA3:       input.FileHashSHA3,
		FileSizeBytes:      input.FileSizeBytes,
		CloudType:          strings.ToLower(input.CloudType),
		MaxDownloads:       input.MaxDownloads,
		ExpiresAt:          now.Add(time.Duration(input.TTLHours) * time.Hour),
		Status:             transferDomain.StatusInitiated,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := o.transferRepo.Create(ctx, transfer); err != nil {
		return nil, err
	}

	o.auditLog.Record(ctx, authDomain.NewAuditLog(authDomain.EventURLIssued, authDomain.ResultSuccess, input.IPAddress).
		WithSession(transfer.ID).
		WithActor(input.SenderID).
		WithMetadata(map[string]any{
			"cloud_type":    transfer.CloudType,
			"max_downloads": transfer.MaxDownloads,
			"file_size":     transfer.FileSizeBytes,
		}))

	return &transferDomain.InitiateOutput{
		SessionID:          transfer.ID,
		UploadURL:          handle.UploadURL,
		ObjectID:           handle.ObjectID,
		RecipientPublicKey: key.KeyData,
		RecipientKeyID:     key.ID,
		KeyAlgorithm:       key.Algorithm,
		URLToken:           urlToken,
		ExpiresAt:          transfer.ExpiresAt,
	}, nil
}

func validateStoreKey(input *transferDomain.StoreKeyInput) error {
	err := validation.ValidateStruct(input,
		validation.Field(&input.WrappedKey, validation.Required, validation.Length(1, maxWrappedKeyBytes)),
		validation.Field(&input.CloudFileID, validation.Required),
	)
	return customValidation.WrapValidationError(err)
}

// StoreKey caches the wrapped key for the lifetime of the transfer, capped by the configured
// TTL, and then records the object id.
func (o *orchestrator) StoreKey(ctx context.Context, input *transferDomain.StoreKeyInput) error {
	ctx = context.WithoutCancel(ctx)

	if err := validateStoreKey(input); err != nil {
		return err
	}

	transfer, err := o.transferRepo.GetByID(ctx, input.SessionID)
	if err != nil {
		return err
	}

	now := o.now().UTC()
	if err := transfer.CheckSenderMutable(input.SenderID, now); err != nil {
		return err
	}
	if input.CloudFileID != storage.ObjectKey(transfer.ID.String()) {
		return transferDomain.ErrCloudFileMismatch
	}

	// Both cache drivers treat a non-positive TTL as "never expires".
	ttl := min(o.settings.WrappedKeyTTL, transfer.ExpiresAt.Sub(now))
	if ttl <= 0 {
		return errNonPositiveKeyTTL
	}

	keyName := cache.WrappedKeyKey(transfer.URLToken)
	if err := o.cache.Set(ctx, keyName, input.WrappedKey, ttl); err != nil {
		return err
	}

	// The transfer may have been deleted or expired since it was read; a purge that ran in
	// between cannot have seen this key, so it is removed here.
	if err := o.transferRepo.AttachCloudFile(ctx, transfer.ID, input.CloudFileID, now); err != nil {
		if _, _, delErr := o.cache.GetDel(ctx, keyName); delErr != nil {
			o.logger.ErrorContext(ctx, "failed to discard wrapped key after rejected attach",
				slog.String("transfer_id", transfer.ID.String()),
				slog.Any("error", delErr),
			)
		}
		return err
	}

	o.auditLog.Record(ctx, authDomain.NewAuditLog(authDomain.EventKeyStored, authDomain.ResultSuccess, input.IPAddress).
		WithSession(transfer.ID).
		WithActor(input.SenderID))
	return nil
}

// shareURL returns the recipient link for urlToken.
func (o *orchestrator) shareURL(urlToken string) string {
	return strings.TrimRight(o.settings.PublicBaseURL, "/") + "/d/" + urlToken
}

// FinalizeURL moves the transfer to ready. The notification is best-effort and never undoes the
// transition.
func (o *orchestrator) FinalizeURL(
	ctx context.Context,
	input *transferDomain.FinalizeInput,
) (*transferDomain.FinalizeOutput, error) {
	ctx = context.WithoutCancel(ctx)

	transfer, err := o.transferRepo.GetByID(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	now := o.now().UTC()
	if err := transfer.CheckSenderMutable(input.SenderID, now); err != nil {
		return nil, err
	}
	if transfer.CloudFileID == nil {
		return nil, transferDomain.ErrMissingCloudFile
	}

	email := userDomain.NormalizeEmail(input.RecipientEmail)
	if email != "" && userDomain.HashEmail(email) != transfer.RecipientEmailHash {
		return nil, transferDomain.ErrRecipientMismatch
	}

	if err := o.transferRepo.MarkReady(ctx, transfer.ID, now); err != nil {
		return nil, err
	}

	shareURL := o.shareURL(transfer.URLToken)

	emailSent := false
	if email != "" {
		notifyCtx, cancel := context.WithTimeout(ctx, o.settings.NotifyTimeout)
		emailSent = o.notifier.SendDownloadLink(notifyCtx, email, shareURL, transfer.ExpiresAt)
		cancel()
		if !emailSent {
			o.metrics.RecordSecurityEvent(ctx, metrics.EventNotifyFailed)
		}
	}

	o.auditLog.Record(ctx, authDomain.NewAuditLog(authDomain.EventURLFinalized, authDomain.ResultSuccess, input.IPAddress).
		WithSession(transfer.ID).
		WithActor(input.SenderID).
		WithMetadata(map[string]any{"email_sent": emailSent}))

	return &transferDomain.FinalizeOutput{
		ShareURL:  shareURL,
		ExpiresAt: transfer.ExpiresAt,
		Status:    transferDomain.StatusReady,
		EmailSent: emailSent,
	}, nil
}

func (o *orchestrator) Get(ctx context.Context, sessionID, senderID uuid.UUID) (*transferDomain.Transfer, error) {
	transfer, err := o.transferRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if transfer.SenderID != senderID {
		return nil, transferDomain.ErrTransferForbidden
	}
	return transfer, nil
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) Orchestrator {
	if cfg.Settings.NotifyTimeout <= 0 {
		cfg.Settings.NotifyTimeout = defaultNotifyTimeout
	}
	return &orchestrator{
		transferRepo: cfg.TransferRepo,
		userRepo:     cfg.UserRepo,
		keyRepo:      cfg.KeyRepo,
		storage:      cfg.Storage,
		cache:        cfg.Cache,
		tokenService: cfg.TokenService,
		notifier:     cfg.Notifier,
		auditLog:     cfg.AuditLog,
		metrics:      cfg.Metrics,
		settings:     cfg.Settings,
		logger:       cfg.Logger,
		now:          time.Now,
	}
}
