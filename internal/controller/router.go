package controller

import (
	"time"

	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/config"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/cardgateway/internal/middleware"
	"github.com/cassiomorais/cardgateway/pkg/idempotency"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	ProviderName       string
	Gateway            payment.Gateway
	Subscriptions      payment.SubscriptionGateway
	WidgetTokens       WidgetTokens
	RedisClient        *redis.Client
	Metrics            *observability.Metrics
	CORSConfig         config.CORSConfig
	JWTSecret          string
	RateLimitPerMinute int
	Idempotency        idempotency.Store
	IdempotencyTTL     time.Duration
	Logger             zerolog.Logger
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(customMW.CorrelationID())
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(customMW.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", customMW.IdempotencyHeader, observability.CorrelationHeader},
		ExposedHeaders:   []string{observability.CorrelationHeader},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.SecurityHeaders())
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.ProviderName, deps.RedisClient)
	paymentH := NewPaymentController(deps.Gateway, deps.WidgetTokens)
	subH := NewSubscriptionController(deps.Subscriptions)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if deps.JWTSecret != "" {
			r.Use(customMW.RequireAuth(deps.JWTSecret))
		}

		idempotencyMW := customMW.Idempotency(deps.Idempotency, deps.IdempotencyTTL, deps.Logger)
		rateLimitMW := customMW.RateLimit(deps.RateLimitPerMinute)

		// Cards
		r.With(rateLimitMW).Post("/widget-tokens", paymentH.IssueWidgetToken)
		r.With(rateLimitMW).Post("/payment-tokens", paymentH.CreatePaymentToken)
		r.Get("/payment-tokens/{id}", paymentH.GetPaymentToken)

		// Charges
		r.With(idempotencyMW).Post("/charges", paymentH.CreateCharge)
		r.Post("/intents/{id}/cancel", paymentH.CancelIntent)
		r.Get("/transactions/{id}", paymentH.GetTransaction)
		r.With(idempotencyMW).Post("/refunds", paymentH.CreateRefund)

		// Subscriptions
		r.With(idempotencyMW).Post("/subscriptions", subH.Create)
		r.Post("/subscriptions/{id}/swap", subH.Swap)
		r.Post("/subscriptions/{id}/cancel", subH.Cancel)
		r.Post("/subscriptions/{id}/resume", subH.Resume)
	})

	return r
}
