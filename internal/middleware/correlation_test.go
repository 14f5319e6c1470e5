package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cassiomorais/cardgateway/internal/infrastructure/observability"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCorrelationID_ReusesInbound(t *testing.T) {
	var seen string
	handler := CorrelationID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.CorrelationID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(observability.CorrelationHeader, "corr-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "corr-123", seen)
	assert.Equal(t, "corr-123", w.Header().Get(observability.CorrelationHeader))
}

func TestCorrelationID_MintsWhenMissingOrOversized(t *testing.T) {
	tests := map[string]string{
		"missing":   "",
		"oversized": strings.Repeat("x", maxCorrelationIDLen+1),
	}
	for name, inbound := range tests {
		t.Run(name, func(t *testing.T) {
			var seen string
			handler := CorrelationID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = observability.CorrelationID(r.Context())
			}))

			req := httptest.NewRequest("GET", "/", nil)
			if inbound != "" {
				req.Header.Set(observability.CorrelationHeader, inbound)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.NotEmpty(t, seen)
			assert.NotEqual(t, inbound, seen)
			assert.Equal(t, seen, w.Header().Get(observability.CorrelationHeader))
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(CorrelationID())
	r.Use(RequestLogger(logger))
	r.Get("/api/v1/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest("GET", "/api/v1/transactions/txn_1", nil)
	req.Header.Set(observability.CorrelationHeader, "corr-9")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"correlation_id":"corr-9"`)
	assert.Contains(t, out, `"route":"/api/v1/transactions/{id}"`)
	assert.Contains(t, out, `"status":418`)
	assert.NotContains(t, out, "txn_1")
}
