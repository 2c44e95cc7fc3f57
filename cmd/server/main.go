// Package main is the entry point for the Frontier simulation server.
// It serves the Monte Carlo simulation API over the configured universe and
// price history, and optionally re-simulates on a cron schedule.
//
// The application follows the same layering as the CLI:
// - Configuration from environment variables (.env supported)
// - Dependency injection via DI container
// - Repository pattern for data access
// - HTTP handlers for API endpoints
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/di"
	"github.com/aristath/frontier/internal/server"
	"github.com/aristath/frontier/pkg/logger"
)

// main orchestrates startup:
// 1. Loads configuration from environment variables
// 2. Initializes logging
// 3. Wires all dependencies via DI container (databases, repositories, services)
// 4. Starts the HTTP server and, if configured, the scheduler
// 5. Waits for a shutdown signal and shuts down gracefully
//
// The application uses two databases under FRONTIER_DATA_DIR:
// - universe.db: Simulation universe (securities with sectors)
// - history.db: Daily close prices
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("trials", cfg.Simulation.Trials).
		Str("sampler", cfg.Simulation.Sampler).
		Int("workers", cfg.Simulation.Workers).
		Msg("Starting Frontier")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	// Close stops the scheduler, cancels in-flight runs and checkpoints both databases
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close container")
		}
	}()

	srv := server.New(server.Config{
		Port:      cfg.Port,
		Log:       log,
		Config:    cfg,
		DevMode:   cfg.DevMode,
		Container: container,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Scheduled re-simulation of the configured universe
	if container.Scheduler != nil {
		container.Scheduler.Start()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// In-flight requests get up to 10 seconds; progress streams are cut off
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
