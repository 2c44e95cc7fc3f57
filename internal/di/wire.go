// Package di provides dependency injection wiring and initialization.
package di

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container
// This is the main entry point for dependency injection
// Order of operations:
// 1. Initialize databases
// 2. Initialize repositories
// 3. Initialize services (and the scheduler, if configured)
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeRepositories(container, log); err != nil {
		container.closeDatabases()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := InitializeServices(container, cfg, log); err != nil {
		container.closeDatabases()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, nil
}

// Close stops the scheduler, cancels in-flight runs and closes the databases.
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.RunManager != nil {
		c.RunManager.Close()
	}
	return c.closeDatabases()
}

func (c *Container) closeDatabases() error {
	var errs []error
	if c.UniverseDB != nil {
		if err := c.UniverseDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("universe database: %w", err))
		}
	}
	if c.HistoryDB != nil {
		if err := c.HistoryDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("history database: %w", err))
		}
	}
	return errors.Join(errs...)
}
