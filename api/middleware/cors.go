package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/bairdservice/baird-backend/pkg/config"
)

// CORS returns middleware that applies the configured allowed origin policy.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", IdempotencyKeyHeader, "X-Requested-With", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
