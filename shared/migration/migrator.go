// Package migration runs embedded SQL migrations on service startup.
package migration

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/taskhive/task-platform/shared/logging"
)

// Config holds migration configuration.
type Config struct {
	// DatabaseURL is a postgres:// connection URL.
	DatabaseURL string
	// Service names the owning service, for logging only.
	Service string
	// Migrations is the embedded migrations directory.
	Migrations embed.FS
	// Dir is the path of the migrations inside the FS, usually "migrations".
	Dir string
}

// Run applies all pending up-migrations. A database already at the latest
// version is not an error.
func Run(cfg Config, logger *logging.Logger) error {
	source, err := iofs.New(cfg.Migrations, cfg.Dir)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			if logger != nil {
				logger.WithField("service", cfg.Service).Info("database schema up to date")
			}
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	if logger != nil {
		logger.WithField("service", cfg.Service).Info("database migrations applied")
	}
	return nil
}
