package app

import (
	"context"
	"fmt"

	authHTTP "github.com/allisson/sealdrop/internal/auth/http"
	authRepository "github.com/allisson/sealdrop/internal/auth/repository"
	authService "github.com/allisson/sealdrop/internal/auth/service"
	authUseCase "github.com/allisson/sealdrop/internal/auth/usecase"
	"github.com/allisson/sealdrop/internal/database"
)

// SecretService returns the password hashing service.
func (c *Container) SecretService() authService.SecretService {
	c.secretServiceInit.Do(func() {
		c.secretService = authService.NewSecretService()
	})
	return c.secretService
}

// TokenService returns the opaque token generator.
func (c *Container) TokenService() authService.TokenService {
	c.tokenServiceInit.Do(func() {
		c.tokenService = authService.NewTokenService()
	})
	return c.tokenService
}

// TOTPService returns the TOTP service backed by the keeper at TOTPKeeperURI.
func (c *Container) TOTPService() (authService.TOTPService, error) {
	var err error
	c.totpServiceInit.Do(func() {
		c.totpService, err = c.initTOTPService()
	})
	if err := c.storeErr("totpService", err); err != nil {
		return nil, err
	}
	return c.totpService, nil
}

// JWTService returns the sender token signer.
func (c *Container) JWTService() (authService.JWTService, error) {
	var err error
	c.jwtServiceInit.Do(func() {
		c.jwtService, err = authService.NewJWTService(
			[]byte(c.config.JWTSigningKey),
			c.config.JWTIssuer,
			c.config.JWTExpiration,
		)
		if err != nil {
			err = fmt.Errorf("failed to create jwt service: %w", err)
		}
	})
	if err := c.storeErr("jwtService", err); err != nil {
		return nil, err
	}
	return c.jwtService, nil
}

// AuditLogRepository returns the audit log repository based on database driver.
func (c *Container) AuditLogRepository() (authUseCase.AuditLogRepository, error) {
	var err error
	c.auditLogRepoInit.Do(func() {
		c.auditLogRepo, err = c.initAuditLogRepository()
	})
	if err := c.storeErr("auditLogRepository", err); err != nil {
		return nil, err
	}
	return c.auditLogRepo, nil
}

// AuditLogUseCase returns the audit recorder.
func (c *Container) AuditLogUseCase() (authUseCase.AuditLogUseCase, error) {
	var err error
	c.auditLogUseCaseInit.Do(func() {
		c.auditLogUseCase, err = c.initAuditLogUseCase()
	})
	if err := c.storeErr("auditLogUseCase", err); err != nil {
		return nil, err
	}
	return c.auditLogUseCase, nil
}

// LockoutGuard returns the per-URL failed attempt counter.
func (c *Container) LockoutGuard() (authUseCase.LockoutGuard, error) {
	var err error
	c.lockoutGuardInit.Do(func() {
		secretCache, cacheErr := c.Cache()
		if cacheErr != nil {
			err = fmt.Errorf("failed to get cache for lockout guard: %w", cacheErr)
			return
		}
		c.lockoutGuard = authUseCase.NewLockoutGuard(
			secretCache,
			int64(c.config.LockoutMaxAttempts),
			c.config.LockoutCounterTTL,
		)
	})
	if err := c.storeErr("lockoutGuard", err); err != nil {
		return nil, err
	}
	return c.lockoutGuard, nil
}

// RateLimiter returns the fixed-window request limiter.
func (c *Container) RateLimiter() (authUseCase.RateLimiter, error) {
	var err error
	c.rateLimiterInit.Do(func() {
		secretCache, cacheErr := c.Cache()
		if cacheErr != nil {
			err = fmt.Errorf("failed to get cache for rate limiter: %w", cacheErr)
			return
		}
		c.rateLimiter = authUseCase.NewRateLimiter(
			secretCache,
			c.config.RateLimitWindow,
			int64(c.config.RateLimitRequestsPerWindow),
			int64(c.config.RateLimitLoginRequestsPerWindow),
			c.Logger(),
		)
	})
	if err := c.storeErr("rateLimiter", err); err != nil {
		return nil, err
	}
	return c.rateLimiter, nil
}

// AuthUseCase returns the auth broker.
func (c *Container) AuthUseCase() (authUseCase.AuthUseCase, error) {
	var err error
	c.authUseCaseInit.Do(func() {
		c.authUseCase, err = c.initAuthUseCase()
	})
	if err := c.storeErr("authUseCase", err); err != nil {
		return nil, err
	}
	return c.authUseCase, nil
}

// AuthHandler returns the login, verify and lock handlers.
func (c *Container) AuthHandler() (*authHTTP.AuthHandler, error) {
	var err error
	c.authHandlerInit.Do(func() {
		useCase, ucErr := c.AuthUseCase()
		if ucErr != nil {
			err = fmt.Errorf("failed to get auth use case for auth handler: %w", ucErr)
			return
		}
		c.authHandler = authHTTP.NewAuthHandler(useCase, c.Logger())
	})
	if err := c.storeErr("authHandler", err); err != nil {
		return nil, err
	}
	return c.authHandler, nil
}

// AuditLogHandler returns the admin audit log handler.
func (c *Container) AuditLogHandler() (*authHTTP.AuditLogHandler, error) {
	var err error
	c.auditLogHandlerInit.Do(func() {
		useCase, ucErr := c.AuditLogUseCase()
		if ucErr != nil {
			err = fmt.Errorf("failed to get audit log use case for audit log handler: %w", ucErr)
			return
		}
		c.auditLogHandler = authHTTP.NewAuditLogHandler(useCase, c.Logger())
	})
	if err := c.storeErr("auditLogHandler", err); err != nil {
		return nil, err
	}
	return c.auditLogHandler, nil
}

func (c *Container) initTOTPService() (authService.TOTPService, error) {
	keeper, err := authService.OpenKeeper(context.Background(), c.config.TOTPKeeperURI)
	if err != nil {
		return nil, err
	}
	c.totpKeeper = keeper
	return authService.NewTOTPService(keeper, c.config.TOTPIssuer), nil
}

func (c *Container) initAuditLogRepository() (authUseCase.AuditLogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit log repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return authRepository.NewMySQLAuditLogRepository(db), nil
	case database.DriverPostgres:
		return authRepository.NewPostgreSQLAuditLogRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initAuditLogUseCase() (authUseCase.AuditLogUseCase, error) {
	repo, err := c.AuditLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log repository for audit log use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for audit log use case: %w", err)
	}
	return authUseCase.NewAuditLogUseCase(repo, c.Logger(), businessMetrics), nil
}

func (c *Container) initAuthUseCase() (authUseCase.AuthUseCase, error) {
	transferRepo, err := c.TransferRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer repository for auth use case: %w", err)
	}
	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for auth use case: %w", err)
	}
	secretCache, err := c.Cache()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache for auth use case: %w", err)
	}
	lockout, err := c.LockoutGuard()
	if err != nil {
		return nil, fmt.Errorf("failed to get lockout guard for auth use case: %w", err)
	}
	totpService, err := c.TOTPService()
	if err != nil {
		return nil, fmt.Errorf("failed to get totp service for auth use case: %w", err)
	}
	jwtService, err := c.JWTService()
	if err != nil {
		return nil, fmt.Errorf("failed to get jwt service for auth use case: %w", err)
	}
	auditLog, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for auth use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for auth use case: %w", err)
	}

	baseUseCase := authUseCase.NewAuthUseCase(authUseCase.AuthUseCaseConfig{
		TransferRepo:   transferRepo,
		UserRepo:       userRepo,
		Cache:          secretCache,
		Lockout:        lockout,
		SecretService:  c.SecretService(),
		TokenService:   c.TokenService(),
		JWTService:     jwtService,
		TOTPService:    totpService,
		AuditLog:       auditLog,
		Metrics:        businessMetrics,
		AuthSessionTTL: c.config.CacheAuthSessionTTL,
		Logger:         c.Logger(),
	})

	if c.config.MetricsEnabled {
		return authUseCase.NewAuthUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}
	return baseUseCase, nil
}
