package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	res := cli.InitBackend(ctx, logger, cfg)

	cacheMgr := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	analyticsCache, closeCache := cli.InitAnalyticsCache(ctx, logger, cfg, cacheMgr)

	var notifier core.Notifier
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		notifier = amqpClient
	}

	registry := store.NewRegistry(res.Backend, store.Options{
		OperationTimeout: cfg.OperationTimeout,
		DefaultCurrency:  cfg.DefaultCurrency,
		Notifier:         notifier,
		Logger:           logger,
	}, cfg.StoreCacheSize, time.Hour)
	cacheMgr.Register(registry)
	cacheMgr.StartCleanup(5 * time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Backend:      res.Backend,
		Registry:     registry,
		Auth:         auth.NewService(res.Backend, cfg.JWTSecret, cfg.TokenTTL),
		Cache:        analyticsCache,
		Logger:       logger,
		RateLimitRPM: cfg.RateLimitRPM,
	})

	serveCtx, stopServing := context.WithCancel(ctx)
	shutdownCtx, done := cli.GracefulShutdown(serveCtx, logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		cacheMgr.Stop()
		closeCache()
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

	logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		stopServing()
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
