// Package main is the entry point for the paperledger HTTP server.
// It serves the simulated brokerage API and runs the maintenance scheduler.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/paperledger/internal/config"
	"github.com/aristath/paperledger/internal/di"
	"github.com/aristath/paperledger/internal/server"
	"github.com/aristath/paperledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
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

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting paperledger")

	// nil provider: quotes come from the HTTP client backed by client_data.db
	container, jobs, err := di.Wire(cfg, log, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	if cfg.Quotes.Token == "" {
		log.Warn().Msg("QUOTE_API_TOKEN not set - quote lookups may be rejected")
	}

	srv := server.New(server.Config{
		Log:          log,
		Container:    container,
		Jobs:         jobs,
		StartingCash: cfg.StartingCash,
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	container.Scheduler.Start()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Container.Close (deferred) stops the scheduler before closing the databases
	log.Info().Msg("Server stopped")
}
