package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/allisson/sealdrop/internal/database"
	"github.com/allisson/sealdrop/internal/notify"
	"github.com/allisson/sealdrop/internal/storage"
	transferHTTP "github.com/allisson/sealdrop/internal/transfer/http"
	transferRepository "github.com/allisson/sealdrop/internal/transfer/repository"
	transferUseCase "github.com/allisson/sealdrop/internal/transfer/usecase"
)

// TransferRepository returns the transfer repository based on database driver.
func (c *Container) TransferRepository() (transferUseCase.TransferRepository, error) {
	var err error
	c.transferRepoInit.Do(func() {
		c.transferRepo, err = c.initTransferRepository()
	})
	if err := c.storeErr("transferRepository", err); err != nil {
		return nil, err
	}
	return c.transferRepo, nil
}

// StorageRegistry returns the object storage backends enabled in configuration.
func (c *Container) StorageRegistry() (*storage.Registry, error) {
	var err error
	c.storageInit.Do(func() {
		c.storage, err = c.initStorageRegistry()
	})
	if err := c.storeErr("storage", err); err != nil {
		return nil, err
	}
	return c.storage, nil
}

// Notifier returns the download-link notifier.
func (c *Container) Notifier() notify.Notifier {
	c.notifierInit.Do(func() {
		c.notifier = c.initNotifier()
	})
	return c.notifier
}

// Orchestrator returns the sender-side transfer use case.
func (c *Container) Orchestrator() (transferUseCase.Orchestrator, error) {
	var err error
	c.orchestratorInit.Do(func() {
		c.orchestrator, err = c.initOrchestrator()
	})
	if err := c.storeErr("orchestrator", err); err != nil {
		return nil, err
	}
	return c.orchestrator, nil
}

// DownloadBroker returns the recipient-side transfer use case.
func (c *Container) DownloadBroker() (transferUseCase.DownloadBroker, error) {
	var err error
	c.downloadBrokerInit.Do(func() {
		c.downloadBroker, err = c.initDownloadBroker()
	})
	if err := c.storeErr("downloadBroker", err); err != nil {
		return nil, err
	}
	return c.downloadBroker, nil
}

// TransferHandler returns the sender transfer handlers.
func (c *Container) TransferHandler() (*transferHTTP.TransferHandler, error) {
	var err error
	c.transferHandlerInit.Do(func() {
		orchestrator, ucErr := c.Orchestrator()
		if ucErr != nil {
			err = fmt.Errorf("failed to get orchestrator for transfer handler: %w", ucErr)
			return
		}
		c.transferHandler = transferHTTP.NewTransferHandler(orchestrator, c.Logger())
	})
	if err := c.storeErr("transferHandler", err); err != nil {
		return nil, err
	}
	return c.transferHandler, nil
}

// DownloadHandler returns the recipient download handlers.
func (c *Container) DownloadHandler() (*transferHTTP.DownloadHandler, error) {
	var err error
	c.downloadHandlerInit.Do(func() {
		broker, ucErr := c.DownloadBroker()
		if ucErr != nil {
			err = fmt.Errorf("failed to get download broker for download handler: %w", ucErr)
			return
		}
		c.downloadHandler = transferHTTP.NewDownloadHandler(broker, c.Logger())
	})
	if err := c.storeErr("downloadHandler", err); err != nil {
		return nil, err
	}
	return c.downloadHandler, nil
}

func (c *Container) initTransferRepository() (transferUseCase.TransferRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for transfer repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return transferRepository.NewMySQLTransferRepository(db), nil
	case database.DriverPostgres:
		return transferRepository.NewPostgreSQLTransferRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initStorageRegistry() (*storage.Registry, error) {
	ctx := context.Background()
	registry := storage.NewRegistry()

	if c.config.MinIOEnabled {
		backend, err := storage.NewMinIOStorage(ctx, storage.MinIOConfig{
			Endpoint:       c.config.MinIOEndpoint,
			AccessKey:      c.config.MinIOAccessKey,
			SecretKey:      c.config.MinIOSecretKey,
			Bucket:         c.config.MinIOBucket,
			UseSSL:         c.config.MinIOUseSSL,
			UploadURLTTL:   c.config.StorageUploadURLTTL,
			DownloadURLTTL: c.config.StorageDownloadURLTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio storage: %w", err)
		}
		registry.Register(storage.CloudTypeMinIO, backend)
	}

	if c.config.S3Enabled {
		backend, err := storage.NewS3Storage(ctx, storage.S3Config{
			Region:          c.config.S3Region,
			Bucket:          c.config.S3Bucket,
			AccessKeyID:     c.config.S3AccessKeyID,
			SecretAccessKey: c.config.S3SecretAccessKey,
			BaseEndpoint:    c.config.S3BaseEndpoint,
			UploadURLTTL:    c.config.StorageUploadURLTTL,
			DownloadURLTTL:  c.config.StorageDownloadURLTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 storage: %w", err)
		}
		registry.Register(storage.CloudTypeS3, backend)
	}

	if _, err := registry.Get(c.config.StorageDefaultCloudType); err != nil {
		return nil, fmt.Errorf("default cloud type is not enabled: %w", err)
	}
	return registry, nil
}

func (c *Container) initNotifier() notify.Notifier {
	logger := c.Logger()

	var next notify.Notifier
	switch strings.ToLower(c.config.NotifyDriver) {
	case "smtp":
		next = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     c.config.SMTPHost,
			Port:     c.config.SMTPPort,
			Username: c.config.SMTPUsername,
			Password: c.config.SMTPPassword,
			From:     c.config.SMTPFrom,
			Timeout:  c.config.NotifyTimeout,
		}, logger)
	default:
		next = notify.NewLogNotifier(logger)
	}

	return notify.NewThrottledNotifier(next, c.config.NotifyRatePerSec, c.config.NotifyBurst, logger)
}

func (c *Container) initOrchestrator() (transferUseCase.Orchestrator, error) {
	transferRepo, err := c.TransferRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer repository for orchestrator: %w", err)
	}
	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for orchestrator: %w", err)
	}
	keyRepo, err := c.PublicKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get public key repository for orchestrator: %w", err)
	}
	registry, err := c.StorageRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get storage registry for orchestrator: %w", err)
	}
	secretCache, err := c.Cache()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache for orchestrator: %w", err)
	}
	auditLog, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for orchestrator: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for orchestrator: %w", err)
	}

	baseUseCase := transferUseCase.NewOrchestrator(transferUseCase.OrchestratorConfig{
		TransferRepo: transferRepo,
		UserRepo:     userRepo,
		KeyRepo:      keyRepo,
		Storage:      registry,
		Cache:        secretCache,
		TokenService: c.TokenService(),
		Notifier:     c.Notifier(),
		AuditLog:     auditLog,
		Metrics:      businessMetrics,
		Settings: transferUseCase.Settings{
			PublicBaseURL:       c.config.PublicBaseURL,
			WrappedKeyTTL:       c.config.CacheWrappedKeyTTL,
			MaxFileSizeBytes:    c.config.TransferMaxFileSizeBytes,
			DefaultTTLHours:     c.config.TransferDefaultTTLHours,
			MaxTTLHours:         c.config.TransferMaxTTLHours,
			DefaultMaxDownloads: c.config.TransferDefaultMaxDownloads,
			DefaultKeyAlgorithm: c.config.TransferDefaultKeyAlgorithm,
			DefaultCloudType:    c.config.StorageDefaultCloudType,
			NotifyTimeout:       c.config.NotifyTimeout,
		},
		Logger: c.Logger(),
	})

	if c.config.MetricsEnabled {
		return transferUseCase.NewOrchestratorWithMetrics(baseUseCase, businessMetrics), nil
	}
	return baseUseCase, nil
}

func (c *Container) initDownloadBroker() (transferUseCase.DownloadBroker, error) {
	transferRepo, err := c.TransferRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer repository for download broker: %w", err)
	}
	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for download broker: %w", err)
	}
	registry, err := c.StorageRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get storage registry for download broker: %w", err)
	}
	secretCache, err := c.Cache()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache for download broker: %w", err)
	}
	sessions, err := c.AuthUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth use case for download broker: %w", err)
	}
	locks, err := c.LockoutGuard()
	if err != nil {
		return nil, fmt.Errorf("failed to get lockout guard for download broker: %w", err)
	}
	auditLog, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for download broker: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for download broker: %w", err)
	}

	baseUseCase := transferUseCase.NewDownloadBroker(transferUseCase.DownloadBrokerConfig{
		TransferRepo: transferRepo,
		UserRepo:     userRepo,
		Storage:      registry,
		Cache:        secretCache,
		Sessions:     sessions,
		Locks:        locks,
		AuditLog:     auditLog,
		Metrics:      businessMetrics,
		Logger:       c.Logger(),
	})

	if c.config.MetricsEnabled {
		return transferUseCase.NewDownloadBrokerWithMetrics(baseUseCase, businessMetrics), nil
	}
	return baseUseCase, nil
}
