package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bairdservice/baird-backend/internal/cron"
	"github.com/bairdservice/baird-backend/internal/notifications"
	"github.com/bairdservice/baird-backend/pkg/config"
	"github.com/bairdservice/baird-backend/pkg/db"
	"github.com/bairdservice/baird-backend/pkg/instance"
	"github.com/bairdservice/baird-backend/pkg/logger"
	"github.com/bairdservice/baird-backend/pkg/metrics"
	"github.com/bairdservice/baird-backend/pkg/migrate"
	"github.com/bairdservice/baird-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+lockScope(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	reconcileJob, err := cron.NewTokenReconcileJob(cron.TokenReconcileJobParams{
		Logger:     logg,
		Repository: notifications.NewRepository(dbClient.DB()),
		Grace:      cfg.Cron.ReconcileGrace,
		BatchSize:  cfg.Cron.ReconcileBatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create token reconcile job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(reconcileJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"interval":  cfg.Cron.Interval.String(),
		"worker_id": instance.GetID(),
		"jobs":      registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockScope(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
