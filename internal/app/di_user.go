package app

import (
	"fmt"

	"github.com/allisson/sealdrop/internal/database"
	userHTTP "github.com/allisson/sealdrop/internal/user/http"
	userRepository "github.com/allisson/sealdrop/internal/user/repository"
	userUseCase "github.com/allisson/sealdrop/internal/user/usecase"
)

// UserRepository returns the user repository based on database driver.
func (c *Container) UserRepository() (userUseCase.UserRepository, error) {
	var err error
	c.userRepoInit.Do(func() {
		c.userRepo, err = c.initUserRepository()
	})
	if err := c.storeErr("userRepository", err); err != nil {
		return nil, err
	}
	return c.userRepo, nil
}

// PublicKeyRepository returns the public key repository based on database driver.
func (c *Container) PublicKeyRepository() (userUseCase.PublicKeyRepository, error) {
	var err error
	c.keyRepoInit.Do(func() {
		c.keyRepo, err = c.initPublicKeyRepository()
	})
	if err := c.storeErr("publicKeyRepository", err); err != nil {
		return nil, err
	}
	return c.keyRepo, nil
}

// UserUseCase returns the account use case.
func (c *Container) UserUseCase() (userUseCase.UserUseCase, error) {
	var err error
	c.userUseCaseInit.Do(func() {
		c.userUseCase, err = c.initUserUseCase()
	})
	if err := c.storeErr("userUseCase", err); err != nil {
		return nil, err
	}
	return c.userUseCase, nil
}

// KeyUseCase returns the public key use case.
func (c *Container) KeyUseCase() (userUseCase.KeyUseCase, error) {
	var err error
	c.keyUseCaseInit.Do(func() {
		c.keyUseCase, err = c.initKeyUseCase()
	})
	if err := c.storeErr("keyUseCase", err); err != nil {
		return nil, err
	}
	return c.keyUseCase, nil
}

// KeyHandler returns the public key handlers.
func (c *Container) KeyHandler() (*userHTTP.KeyHandler, error) {
	var err error
	c.keyHandlerInit.Do(func() {
		useCase, ucErr := c.KeyUseCase()
		if ucErr != nil {
			err = fmt.Errorf("failed to get key use case for key handler: %w", ucErr)
			return
		}
		c.keyHandler = userHTTP.NewKeyHandler(useCase, c.Logger())
	})
	if err := c.storeErr("keyHandler", err); err != nil {
		return nil, err
	}
	return c.keyHandler, nil
}

func (c *Container) initUserRepository() (userUseCase.UserRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for user repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return userRepository.NewMySQLUserRepository(db), nil
	case database.DriverPostgres:
		return userRepository.NewPostgreSQLUserRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initPublicKeyRepository() (userUseCase.PublicKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for public key repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return userRepository.NewMySQLPublicKeyRepository(db), nil
	case database.DriverPostgres:
		return userRepository.NewPostgreSQLPublicKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initUserUseCase() (userUseCase.UserUseCase, error) {
	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for user use case: %w", err)
	}
	totpService, err := c.TOTPService()
	if err != nil {
		return nil, fmt.Errorf("failed to get totp service for user use case: %w", err)
	}

	baseUseCase := userUseCase.NewUserUseCase(userRepo, c.SecretService(), totpService)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for user use case: %w", err)
		}
		return userUseCase.NewUserUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}
	return baseUseCase, nil
}

func (c *Container) initKeyUseCase() (userUseCase.KeyUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key use case: %w", err)
	}
	keyRepo, err := c.PublicKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get public key repository for key use case: %w", err)
	}
	auditLog, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for key use case: %w", err)
	}

	baseUseCase := userUseCase.NewKeyUseCase(txManager, keyRepo, auditLog)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for key use case: %w", err)
		}
		return userUseCase.NewKeyUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}
	return baseUseCase, nil
}
