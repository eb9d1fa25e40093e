// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/lmittmann/tint"

	authHTTP "github.com/allisson/sealdrop/internal/auth/http"
	authService "github.com/allisson/sealdrop/internal/auth/service"
	authUseCase "github.com/allisson/sealdrop/internal/auth/usecase"
	"github.com/allisson/sealdrop/internal/cache"
	"github.com/allisson/sealdrop/internal/config"
	"github.com/allisson/sealdrop/internal/database"
	"github.com/allisson/sealdrop/internal/http"
	"github.com/allisson/sealdrop/internal/metrics"
	"github.com/allisson/sealdrop/internal/notify"
	"github.com/allisson/sealdrop/internal/storage"
	"github.com/allisson/sealdrop/internal/tracing"
	transferHTTP "github.com/allisson/sealdrop/internal/transfer/http"
	transferUseCase "github.com/allisson/sealdrop/internal/transfer/usecase"
	userHTTP "github.com/allisson/sealdrop/internal/user/http"
	userUseCase "github.com/allisson/sealdrop/internal/user/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// Components are created on first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	cache           cache.Cache
	storage         *storage.Registry
	notifier        notify.Notifier
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	tracingShutdown tracing.ShutdownFunc

	// Services
	secretService authService.SecretService
	tokenService  authService.TokenService
	totpKeeper    authService.Keeper
	totpService   authService.TOTPService
	jwtService    authService.JWTService

	// Repositories
	userRepo     userUseCase.UserRepository
	keyRepo      userUseCase.PublicKeyRepository
	transferRepo transferUseCase.TransferRepository
	auditLogRepo authUseCase.AuditLogRepository

	// Use Cases
	auditLogUseCase authUseCase.AuditLogUseCase
	lockoutGuard    authUseCase.LockoutGuard
	rateLimiter     authUseCase.RateLimiter
	authUseCase     authUseCase.AuthUseCase
	userUseCase     userUseCase.UserUseCase
	keyUseCase      userUseCase.KeyUseCase
	orchestrator    transferUseCase.Orchestrator
	downloadBroker  transferUseCase.DownloadBroker

	// Handlers
	authHandler     *authHTTP.AuthHandler
	auditLogHandler *authHTTP.AuditLogHandler
	keyHandler      *userHTTP.KeyHandler
	transferHandler *transferHTTP.TransferHandler
	downloadHandler *transferHTTP.DownloadHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	txManagerInit       sync.Once
	cacheInit           sync.Once
	storageInit         sync.Once
	notifierInit        sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	tracingInit         sync.Once
	secretServiceInit   sync.Once
	tokenServiceInit    sync.Once
	totpServiceInit     sync.Once
	jwtServiceInit      sync.Once
	userRepoInit        sync.Once
	keyRepoInit         sync.Once
	transferRepoInit    sync.Once
	auditLogRepoInit    sync.Once
	auditLogUseCaseInit sync.Once
	lockoutGuardInit    sync.Once
	rateLimiterInit     sync.Once
	authUseCaseInit     sync.Once
	userUseCaseInit     sync.Once
	keyUseCaseInit      sync.Once
	orchestratorInit    sync.Once
	downloadBrokerInit  sync.Once
	authHandlerInit     sync.Once
	auditLogHandlerInit sync.Once
	keyHandlerInit      sync.Once
	transferHandlerInit sync.Once
	downloadHandlerInit sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// storeErr records err under name and returns the first error recorded for it.
func (c *Container) storeErr(name string, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.initErrors[name] = err
	}
	return c.initErrors[name]
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
	})
	if err := c.storeErr("db", err); err != nil {
		return nil, err
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
	})
	if err := c.storeErr("txManager", err); err != nil {
		return nil, err
	}
	return c.txManager, nil
}

// Cache returns the secret cache selected by CacheDriver.
func (c *Container) Cache() (cache.Cache, error) {
	var err error
	c.cacheInit.Do(func() {
		c.cache, err = c.initCache()
	})
	if err := c.storeErr("cache", err); err != nil {
		return nil, err
	}
	return c.cache, nil
}

// MetricsProvider returns the OpenTelemetry meter provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(
			metrics.WithServiceName(c.config.TracingServiceName),
			metrics.WithRuntimeCollectors(),
		)
		if err != nil {
			err = fmt.Errorf("failed to create metrics provider: %w", err)
		}
	})
	if err := c.storeErr("metricsProvider", err); err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is returned when
// metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
	})
	if err := c.storeErr("businessMetrics", err); err != nil {
		return nil, err
	}
	return c.businessMetrics, nil
}

// InitTracing installs the global tracer provider once.
func (c *Container) InitTracing(ctx context.Context) error {
	var err error
	c.tracingInit.Do(func() {
		c.tracingShutdown, err = tracing.Init(ctx, tracing.Config{
			Enabled:     c.config.TracingEnabled,
			ServiceName: c.config.TracingServiceName,
			Endpoint:    c.config.TracingEndpoint,
			Insecure:    c.config.TracingInsecure,
		})
		if err != nil {
			err = fmt.Errorf("failed to initialize tracing: %w", err)
		}
	})
	return c.storeErr("tracing", err)
}

// HTTPServer returns the HTTP server with every route wired.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
	})
	if err := c.storeErr("httpServer", err); err != nil {
		return nil, err
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus scrape server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
	})
	if err := c.storeErr("metricsServer", err); err != nil {
		return nil, err
	}
	return c.metricsServer, nil
}

// Shutdown releases every initialized resource. Servers go first so in-flight requests can
// still reach the cache and database.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.tracingShutdown != nil {
		if err := c.tracingShutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("tracing shutdown: %w", err))
		}
	}

	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("cache close: %w", err))
		}
	}

	if c.totpKeeper != nil {
		if err := c.totpKeeper.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("totp keeper close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(shutdownErrors...)
}

// initLogger creates a structured logger. LOG_FORMAT=text switches to a colorized console
// handler for local development.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(c.config.LogLevel) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	if strings.EqualFold(c.config.LogFormat, "text") {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: logLevel}))
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(context.Background(), database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initCache() (cache.Cache, error) {
	switch strings.ToLower(c.config.CacheDriver) {
	case "memory":
		c.Logger().Warn("using in-process secret cache; wrapped keys do not survive restarts")
		return cache.NewMemoryCache(), nil
	case "redis":
		redisCache, err := cache.NewRedisCache(context.Background(), cache.RedisConfig{
			Addr:     c.config.RedisAddr,
			Password: c.config.RedisPassword,
			DB:       c.config.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redisCache, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", c.config.CacheDriver)
	}
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}
	secretCache, err := c.Cache()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache for http server: %w", err)
	}

	deps := http.RouterDeps{}
	if deps.AuthHandler, err = c.AuthHandler(); err != nil {
		return nil, fmt.Errorf("failed to get auth handler for http server: %w", err)
	}
	if deps.AuditLogHandler, err = c.AuditLogHandler(); err != nil {
		return nil, fmt.Errorf("failed to get audit log handler for http server: %w", err)
	}
	if deps.KeyHandler, err = c.KeyHandler(); err != nil {
		return nil, fmt.Errorf("failed to get key handler for http server: %w", err)
	}
	if deps.TransferHandler, err = c.TransferHandler(); err != nil {
		return nil, fmt.Errorf("failed to get transfer handler for http server: %w", err)
	}
	if deps.DownloadHandler, err = c.DownloadHandler(); err != nil {
		return nil, fmt.Errorf("failed to get download handler for http server: %w", err)
	}
	if deps.AuthUseCase, err = c.AuthUseCase(); err != nil {
		return nil, fmt.Errorf("failed to get auth use case for http server: %w", err)
	}
	if deps.RateLimiter, err = c.RateLimiter(); err != nil {
		return nil, fmt.Errorf("failed to get rate limiter for http server: %w", err)
	}
	if deps.MetricsProvider, err = c.MetricsProvider(); err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger()).WithCache(secretCache)
	server.SetupRouter(c.config, deps)
	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
