package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bairdservice/baird-backend/api/responses"
	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
	"github.com/bairdservice/baird-backend/pkg/logger"
)

// RateLimitStore counts hits in redis under namespaced keys.
type RateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// RateLimitPolicy is a fixed window of Limit hits per client IP.
type RateLimitPolicy struct {
	Name   string
	Window time.Duration
	Limit  int64
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && p.Limit > 0
}

// RateLimit throttles a route per client IP. When the counter store fails the
// request goes through and the failure is logged; the acceptance claim stays
// single-winner regardless.
func RateLimit(policy RateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	policy.Name = strings.ToLower(strings.TrimSpace(policy.Name))
	if policy.Name == "" {
		policy.Name = "default"
	}
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)
			if ip == "" {
				next.ServeHTTP(w, r)
				return
			}

			count, err := store.IncrWithTTL(ctx, store.RateLimitKey(policy.Name+":"+ip), policy.Window)
			switch {
			case err != nil:
				if logg != nil {
					logg.Error(logg.WithField(ctx, "policy", policy.Name), "rate_limit.store_failed", err)
				}
			case count > policy.Limit:
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy":   policy.Name,
						"ip":       ip,
						"attempts": count,
						"limit":    policy.Limit,
					}), "rate_limit.blocked")
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Round(time.Second).Seconds())))
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many acceptance attempts"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP reads RemoteAddr, which chi's RealIP middleware has already
// rewritten from the proxy headers.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
