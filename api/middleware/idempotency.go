package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/bairdservice/baird-backend/api/responses"
	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
	"github.com/bairdservice/baird-backend/pkg/logger"
	pkgredis "github.com/bairdservice/baird-backend/pkg/redis"
)

const (
	// IdempotencyKeyHeader carries the caller-chosen replay key.
	IdempotencyKeyHeader = "Idempotency-Key"

	DefaultIdempotencyTTL = 24 * time.Hour
	maxIdempotencyKeyLen  = 128
)

// storedResponse is the replayable part of a handled request.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	BodyHash    string `json:"body_hash"`
}

// Idempotency replays the first non-5xx response recorded under an
// Idempotency-Key for ttl. Requests without the header pass through, and a
// reused key with a different body is rejected with 409.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(clientKey) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			bodyHash := hex.EncodeToString(sum[:])
			key := store.IdempotencyKey(r.Method+"|"+r.URL.Path, clientKey)

			raw, err := store.Get(ctx, key)
			switch {
			case err != nil && !errors.Is(err, redis.Nil):
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key"))
				return
			case err == nil && raw != "":
				var prior storedResponse
				if err := json.Unmarshal([]byte(raw), &prior); err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode stored response"))
					return
				}
				if prior.BodyHash != bodyHash {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				replay(w, prior)
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := responseStatus(ww)
			if status >= http.StatusInternalServerError {
				return
			}
			payload, err := json.Marshal(storedResponse{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
				BodyHash:    bodyHash,
			})
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "idempotency.encode_failed", err)
				}
				return
			}
			if _, err := store.SetNX(ctx, key, string(payload), ttl); err != nil && logg != nil {
				logg.Error(ctx, "idempotency.store_failed", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, prior storedResponse) {
	if prior.ContentType != "" {
		w.Header().Set("Content-Type", prior.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(prior.Status)
	_, _ = w.Write(prior.Body)
}
