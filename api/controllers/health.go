package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/bairdservice/baird-backend/api/responses"
	"github.com/bairdservice/baird-backend/pkg/config"
	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
	"github.com/bairdservice/baird-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

const envHeader = "X-Baird-Env"

type pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the database and redis both answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPinger, redisPinger pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]pinger{"database": dbPinger, "redis": redisPinger}
		failed := map[string]string{}
		for name, p := range checks {
			if p == nil {
				failed[name] = "not configured"
				continue
			}
			if err := p.Ping(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(failed))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
