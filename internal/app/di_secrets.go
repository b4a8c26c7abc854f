package app

import (
	"fmt"

	"github.com/allisson/ots/internal/config"
	secretsDomain "github.com/allisson/ots/internal/secrets/domain"
	secretsHTTP "github.com/allisson/ots/internal/secrets/http"
	secretsRepository "github.com/allisson/ots/internal/secrets/repository"
	secretsService "github.com/allisson/ots/internal/secrets/service"
	secretsUseCase "github.com/allisson/ots/internal/secrets/usecase"
)

// SecretRepository returns the secret repository for the configured driver.
func (c *Container) SecretRepository() (secretsUseCase.SecretRepository, error) {
	var err error
	c.secretRepositoryInit.Do(func() {
		c.secretRepository, err = c.initSecretRepository()
		if err != nil {
			c.setInitError("secretRepository", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("secretRepository"); storedErr != nil {
		return nil, storedErr
	}
	return c.secretRepository, nil
}

// IDGenerator returns the secret id generator.
func (c *Container) IDGenerator() secretsService.IDGenerator {
	c.idGeneratorInit.Do(func() {
		c.idGenerator = secretsService.NewIDGenerator()
	})
	return c.idGenerator
}

// SecretUseCase returns the secret use case, wrapped with metrics.
func (c *Container) SecretUseCase() (secretsUseCase.SecretUseCase, error) {
	var err error
	c.secretUseCaseInit.Do(func() {
		c.secretUseCase, err = c.initSecretUseCase()
		if err != nil {
			c.setInitError("secretUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("secretUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.secretUseCase, nil
}

// SecretHandler returns the HTTP handler for one-time secret operations.
func (c *Container) SecretHandler() (*secretsHTTP.SecretHandler, error) {
	var err error
	c.secretHandlerInit.Do(func() {
		c.secretHandler, err = c.initSecretHandler()
		if err != nil {
			c.setInitError("secretHandler", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("secretHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.secretHandler, nil
}

// initSecretRepository creates the secret repository based on the database driver.
func (c *Container) initSecretRepository() (secretsUseCase.SecretRepository, error) {
	if c.config.DBDriver == config.DBDriverMemory {
		c.memoryRepository = secretsRepository.NewMemorySecretRepository()
		return c.memoryRepository, nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for secret repository: %w", err)
	}

	switch c.config.DBDriver {
	case config.DBDriverPostgres:
		return secretsRepository.NewPostgreSQLSecretRepository(db), nil
	case config.DBDriverMySQL:
		return secretsRepository.NewMySQLSecretRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSecretUseCase creates the secret use case with all its dependencies.
func (c *Container) initSecretUseCase() (secretsUseCase.SecretUseCase, error) {
	secretRepository, err := c.SecretRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret repository for secret use case: %w", err)
	}

	fieldCipher, err := c.FieldCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get field cipher for secret use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for secret use case: %w", err)
	}

	useCaseConfig := secretsUseCase.Config{
		ExpiryWindow: secretsDomain.ExpiryWindow{
			Min:     c.config.SecretExpiryMin,
			Max:     c.config.SecretExpiryMax,
			Default: c.config.SecretExpiryDefault,
		},
		MaxReadsLimit: c.config.SecretMaxReadsLimit,
	}

	baseUseCase := secretsUseCase.NewSecretUseCase(
		secretRepository,
		fieldCipher,
		c.IDGenerator(),
		useCaseConfig,
		c.Logger(),
	)

	return secretsUseCase.NewSecretUseCaseWithMetrics(baseUseCase, businessMetrics), nil
}

// initSecretHandler creates the secret HTTP handler with all its dependencies.
func (c *Container) initSecretHandler() (*secretsHTTP.SecretHandler, error) {
	useCase, err := c.SecretUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret use case for secret handler: %w", err)
	}
	return secretsHTTP.NewSecretHandler(useCase, c.Logger()), nil
}
