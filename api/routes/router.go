package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/bairdservice/baird-backend/api/controllers"
	webhookcontrollers "github.com/bairdservice/baird-backend/api/controllers/webhooks"
	"github.com/bairdservice/baird-backend/api/middleware"
	"github.com/bairdservice/baird-backend/internal/acceptance"
	"github.com/bairdservice/baird-backend/internal/dispatch"
	"github.com/bairdservice/baird-backend/pkg/config"
	"github.com/bairdservice/baird-backend/pkg/db"
	"github.com/bairdservice/baird-backend/pkg/logger"
	"github.com/bairdservice/baird-backend/pkg/metrics"
	pkgredis "github.com/bairdservice/baird-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer relies on.
type RedisStore interface {
	pkgredis.IdempotencyStore
	middleware.RateLimitStore
	Ping(ctx context.Context) error
}

type DispatchService interface {
	Dispatch(ctx context.Context, requestID uuid.UUID) (*dispatch.Result, error)
}

type AcceptanceService interface {
	Accept(ctx context.Context, token string) (*acceptance.Result, error)
	Offer(ctx context.Context, token string) (*acceptance.OfferView, error)
}

type WebhookVerifier interface {
	Verify(rawBody []byte, header string) bool
	VerifyHandshake(mode, token, challenge string) (string, bool)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisStore RedisStore,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	dispatchService DispatchService,
	acceptanceService AcceptanceService,
	webhookService webhookcontrollers.WhatsAppWebhookService,
	webhookVerifier WebhookVerifier,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.CORS),
	)

	acceptPolicy := middleware.RateLimitPolicy{
		Name:   "accept",
		Window: cfg.RateLimit.AcceptWindow,
		Limit:  int64(cfg.RateLimit.AcceptIPLimit),
	}
	acceptLimiter := middleware.RateLimit(acceptPolicy, redisStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisStore))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/whatsapp", func(r chi.Router) {
		r.With(middleware.Idempotency(redisStore, middleware.DefaultIdempotencyTTL, logg)).
			Post("/notify", controllers.NotifyTechnicians(dispatchService, logg))
		r.With(acceptLimiter).
			Post("/accept", controllers.AcceptOffer(acceptanceService, logg))
		r.Get("/webhook", webhookcontrollers.WhatsAppWebhookHandshake(webhookVerifier, logg))
		r.Post("/webhook", webhookcontrollers.WhatsAppWebhook(webhookService, webhookVerifier, logg))
	})

	r.Route("/aceptar/{token}", func(r chi.Router) {
		r.Use(acceptLimiter)
		r.Get("/", controllers.AcceptancePage(acceptanceService, logg))
		r.Post("/", controllers.AcceptancePageSubmit(acceptanceService, logg))
	})

	return r
}
