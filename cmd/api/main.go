package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bairdservice/baird-backend/api/routes"
	"github.com/bairdservice/baird-backend/internal/acceptance"
	"github.com/bairdservice/baird-backend/internal/dispatch"
	"github.com/bairdservice/baird-backend/internal/notifications"
	"github.com/bairdservice/baird-backend/internal/servicerequests"
	"github.com/bairdservice/baird-backend/internal/technicians"
	whatsappwebhook "github.com/bairdservice/baird-backend/internal/webhooks/whatsapp"
	"github.com/bairdservice/baird-backend/internal/whatsapp"
	"github.com/bairdservice/baird-backend/pkg/config"
	"github.com/bairdservice/baird-backend/pkg/db"
	"github.com/bairdservice/baird-backend/pkg/logger"
	"github.com/bairdservice/baird-backend/pkg/metrics"
	"github.com/bairdservice/baird-backend/pkg/migrate"
	"github.com/bairdservice/baird-backend/pkg/redis"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	messenger, err := whatsapp.NewClient(cfg.WhatsApp)
	if err != nil {
		logg.Error(context.Background(), "failed to configure whatsapp client", err)
		os.Exit(1)
	}
	if cfg.WhatsApp.WebhookSecret == "" {
		logg.Warn(context.Background(), "whatsapp webhook secret not set; every webhook call will be rejected")
	}

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	technicianRepo := technicians.NewRepository(dbClient.DB())
	requestRepo := servicerequests.NewRepository(dbClient.DB())
	tokenRepo := notifications.NewRepository(dbClient.DB())

	matcher, err := technicians.NewMatcher(technicianRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create technician matcher", err)
		os.Exit(1)
	}

	dispatchService, err := dispatch.NewService(dispatch.ServiceParams{
		Requests:  requestRepo,
		Matcher:   matcher,
		Tokens:    tokenRepo,
		Messenger: messenger,
		App:       cfg.App,
		Dispatch:  cfg.Dispatch,
		Metrics:   metrics.NewDispatchMetrics(registry),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	acceptanceService, err := acceptance.NewService(acceptance.ServiceParams{
		TransactionRunner: dbClient,
		Requests:          requestRepo,
		Tokens:            tokenRepo,
		Technicians:       technicianRepo,
		Messenger:         messenger,
		WhatsApp:          cfg.WhatsApp,
		Dispatch:          cfg.Dispatch,
		Metrics:           metrics.NewAcceptanceMetrics(registry),
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create acceptance service", err)
		os.Exit(1)
	}

	webhookGuard, err := whatsappwebhook.NewIdempotencyGuard(redisClient, cfg.WhatsApp.WebhookDedupeTTL, "whatsapp-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}
	webhookService, err := whatsappwebhook.NewService(webhookGuard, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			metrics.NewHTTPMetrics(registry),
			metrics.Handler(registry),
			dispatchService,
			acceptanceService,
			webhookService,
			whatsappwebhook.NewVerifier(cfg.WhatsApp),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	// loser notices run in the background after the response is written
	acceptanceService.Wait()
	logg.Info(ctx, "api server stopped")
}
