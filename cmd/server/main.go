// Package main is the entry point for paperdesk, the order and paper account
// orchestration layer between traders, commission agents, and the brokerage backend.
//
// paperdesk holds no financial state of its own: orders, positions and balances
// live in the backend. It keeps a small SQLite cache for market data and order
// drafts and pushes order lifecycle events to clients over SSE and WebSocket.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/paperdesk/internal/config"
	"github.com/aristath/paperdesk/internal/di"
	"github.com/aristath/paperdesk/internal/server"
	"github.com/aristath/paperdesk/pkg/logger"
)

// main is the application entry point. It:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires all dependencies via the DI container
// 4. Starts the scheduler and the HTTP server
// 5. Waits for a shutdown signal and shuts down gracefully
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
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Int("port", cfg.Port).
		Str("data_dir", cfg.DataDir).
		Msg("Starting paperdesk")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Warm the featured quotes once so the first page load does not wait on the backend
	go func() {
		if err := container.Scheduler.RunNow(jobs.QuoteWarmup); err != nil {
			log.Warn().Err(err).Msg("Initial quote warmup failed")
		}
	}()
	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Jobs:      jobs,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown: in-flight requests get up to 10 seconds
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	container.Scheduler.Stop()

	// Pending order refreshes are cancelled; clients re-list on reconnect
	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close market cache")
	}

	log.Info().Msg("Server stopped")
}
