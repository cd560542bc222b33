package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/bairdservice/baird-backend/pkg/logger"
)

// RequestIDHeader carries the per-request correlation id in both directions.
const RequestIDHeader = "X-Request-Id"

var inboundRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// RequestID reuses a well-formed inbound X-Request-Id or mints a UUID, echoes
// it on the response and tags the request logger with it.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if !inboundRequestID.MatchString(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
