package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/allisson/ots/internal/config"
)

// RunMigrations applies pending migrations from basePath/postgresql or basePath/mysql.
// The memory driver has no schema and is a no-op.
func RunMigrations(logger *slog.Logger, driver, connectionString, basePath string) error {
	if driver == config.DBDriverMemory {
		logger.Info("memory driver has no migrations to run")
		return nil
	}

	logger.Info("running database migrations", slog.String("driver", driver))

	dir := "postgresql"
	if driver == config.DBDriverMySQL {
		dir = "mysql"
	}
	migrationsPath := "file://" + filepath.ToSlash(filepath.Join(basePath, dir))

	m, err := migrate.New(migrationsPath, migrationURL(driver, connectionString))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}

// migrationURL adds the scheme golang-migrate expects to a go-sql-driver/mysql DSN.
func migrationURL(driver, connectionString string) string {
	if driver == config.DBDriverMySQL {
		return "mysql://" + connectionString
	}
	return connectionString
}
