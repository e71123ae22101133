package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/store"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting fintrack-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res := cli.InitBackend(ctx, logger, cfg)
	amqpClient := cli.InitAMQP(logger, cfg)

	var mirror sheets.Mirror
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	// DPS transfers run through per-user stores so they publish like API writes
	var notifier core.Notifier
	if amqpClient != nil {
		notifier = amqpClient
	}
	registry := store.NewRegistry(res.Backend, store.Options{
		OperationTimeout: cfg.OperationTimeout,
		DefaultCurrency:  cfg.DefaultCurrency,
		Notifier:         notifier,
		Logger:           logger,
	}, cfg.StoreCacheSize, 10*time.Minute)

	sweeper := services.NewOverdueSweeper(res.Backend, logger)
	dps := services.NewDPSProcessor(res.Backend, registry, logger)
	scheduler := services.NewScheduler(logger,
		services.Job{Name: "overdue-sweep", Interval: cfg.SweepInterval, Run: sweeper.Sweep},
		services.Job{Name: "dps-monthly", Interval: cfg.DPSInterval, Run: dps.ProcessDue},
	)
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", log.FieldError, err.Error())
		os.Exit(1)
	}

	if mirror != nil {
		mirrorWorker := worker.NewMirrorWorker(mirror, res.Backend, logger)
		n, err := mirrorWorker.Backfill(ctx)
		if err != nil {
			logger.Error("Startup backfill failed", log.FieldError, err.Error())
		} else {
			logger.Info("Startup backfill complete", log.FieldCount, n)
		}

		if amqpClient != nil {
			go func() {
				err := amqpClient.ConsumeChanges(ctx, mirrorWorker.HandleChange)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Message consumption failed", log.FieldError, err.Error())
				}
				cancel()
			}()
		} else {
			logger.Info("Skipping change consumption - no AMQP client available")
		}
	}

	shutdownCtx, done := cli.GracefulShutdown(ctx, logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Scheduler stop failed", log.FieldError, err.Error())
		}
		cancel()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close failed", log.FieldError, err.Error())
			}
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err.Error())
			}
		}
	})

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Worker stopped")
}
