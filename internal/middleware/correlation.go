package middleware

import (
	"net/http"
	"time"

	"github.com/cassiomorais/cardgateway/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

// maxCorrelationIDLen bounds inbound ids before they reach logs and the
// provider.
const maxCorrelationIDLen = 128

// CorrelationID adopts the caller's X-Correlation-ID or mints one, stores it
// in the request context and echoes it on the response.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := r.Header.Get(observability.CorrelationHeader); id != "" && len(id) <= maxCorrelationIDLen {
				ctx = observability.WithCorrelationID(ctx, id)
			}
			ctx, id := observability.EnsureCorrelationID(ctx)

			w.Header().Set(observability.CorrelationHeader, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			log := observability.ForContext(r.Context(), logger)
			event := log.Info()
			if ww.statusCode >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("method", r.Method).
				Str("route", routePattern(r)).
				Int("status", ww.statusCode).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}
