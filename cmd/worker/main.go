package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/logger"
	"app/internal/repository"
	"app/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// The worker runs periodic ledger maintenance: rolling expired subscription
// periods over to fresh quotas, and trimming usage records past retention.
func main() {
	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DBConnectionString)
	if err != nil {
		logger.Fatal().Msgf("Failed to create DB pool: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}

	ledgerSvc := service.NewLedgerService(repository.NewLedgerRepo(pool), cfg.TrialPeriodDays, logger)
	telemetrySvc := service.NewTelemetryService(repository.NewUsageRepo(pool), nil, "", logger)

	interval := time.Duration(cfg.WorkerIntervalMin) * time.Minute
	timeout := time.Duration(cfg.WorkerRequestTimeout) * time.Second

	runOnce := func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if n, err := ledgerSvc.RolloverExpired(ctx); err != nil {
			logger.Error().Err(err).Msg("Rollover pass failed")
		} else {
			logger.Info().Int64("rolled_over", n).Msg("Rollover pass complete")
		}

		if n, err := telemetrySvc.Trim(ctx, cfg.UsageRetentionDays); err != nil {
			logger.Error().Err(err).Msg("Usage trim pass failed")
		} else {
			logger.Info().Int64("trimmed", n).Msg("Usage trim pass complete")
		}
	}

	logger.Info().Dur("interval", interval).Msg("🚀 Maintenance worker starting")
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			runOnce()
		case <-quit:
			logger.Info().Msg("Shutdown signal received, exiting...")
			return
		}
	}
}
