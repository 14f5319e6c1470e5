package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/cassiomorais/cardgateway/pkg/idempotency"
	"github.com/rs/zerolog"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	maxIdempotencyKeyLen   = 255
	maxIdempotencyBodySize = 1 << 20
	idempotencyLockTTL     = time.Minute
)

// Idempotency replays the stored response for a repeated Idempotency-Key.
// A key reused with a different body is rejected, and a key whose first
// request is still running answers 409. Requests without the header pass
// through. 5xx answers are not stored, so the caller may retry them.
func Idempotency(store idempotency.Store, ttl time.Duration, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				writeJSONError(w, http.StatusBadRequest, "idempotency key too long", "invalid_idempotency_key")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotencyBodySize+1))
			if err != nil || len(body) > maxIdempotencyBodySize {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large", "body_too_large")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			scoped := r.Method + " " + r.URL.Path + " " + key
			hash := requestHash(body)

			entry, err := store.Get(ctx, scoped)
			if err != nil {
				logger.Error().Err(err).Msg("Idempotency store unavailable")
				writeJSONError(w, http.StatusServiceUnavailable, "idempotency store unavailable", "idempotency_unavailable")
				return
			}
			if entry != nil {
				replay(w, entry, hash)
				return
			}

			unlock, acquired, err := store.Lock(ctx, scoped, idempotencyLockTTL)
			if err != nil {
				logger.Error().Err(err).Msg("Idempotency lock unavailable")
				writeJSONError(w, http.StatusServiceUnavailable, "idempotency store unavailable", "idempotency_unavailable")
				return
			}
			if !acquired {
				writeJSONError(w, http.StatusConflict, "a request with this idempotency key is in progress", "request_in_progress")
				return
			}
			defer unlock()

			// A concurrent holder may have saved between Get and Lock.
			entry, err = store.Get(ctx, scoped)
			if err != nil {
				logger.Error().Err(err).Msg("Idempotency store unavailable")
				writeJSONError(w, http.StatusServiceUnavailable, "idempotency store unavailable", "idempotency_unavailable")
				return
			}
			if entry != nil {
				replay(w, entry, hash)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode < http.StatusInternalServerError && !rec.bodyTruncated {
				err := store.Save(ctx, scoped, &idempotency.Entry{
					Status:      rec.statusCode,
					Body:        rec.body.Bytes(),
					RequestHash: hash,
				}, ttl)
				if err != nil {
					logger.Warn().Err(err).Msg("Failed to store idempotent response")
				}
			}
		})
	}
}

func replay(w http.ResponseWriter, entry *idempotency.Entry, hash string) {
	if entry.RequestHash != hash {
		writeJSONError(w, http.StatusUnprocessableEntity, "idempotency key reused with a different request", "idempotency_key_reused")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(entry.Status)
	w.Write(entry.Body)
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	body          *bytes.Buffer
	bodyTruncated bool
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.bodyTruncated {
		if r.body.Len()+len(b) > maxIdempotencyBodySize {
			r.bodyTruncated = true
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}
