package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/cassiomorais/cardgateway/internal/infrastructure/config"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/client"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/oauth"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/routing"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/cardgateway/internal/infrastructure/redis"
	"github.com/cassiomorais/cardgateway/pkg/idempotency"
	"github.com/cassiomorais/cardgateway/pkg/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const redisKeyPrefix = "cardgateway:"

type App struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Redis       *redis.Client
	Metrics     *observability.Metrics
	Tokens      *oauth.Manager
	Gateway     *gateway.Gateway
	Idempotency idempotency.Store

	tracer *sdktrace.TracerProvider
}

// New loads configuration and wires the gateway. Redis is only dialed when
// gateway.token_cache_driver is redis.
func New(ctx context.Context, serviceName string, metricsNamespace string, logOutput io.Writer) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, logOutput)
	logger.Info().Str("service", serviceName).Msg("Starting")

	app := &App{Config: cfg, Logger: logger}

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			app.tracer = tp
			logger.Info().Msg("Tracing enabled")
		}
	}

	var reg prometheus.Registerer = prometheus.NewRegistry()
	if cfg.Observability.EnableMetrics {
		reg = prometheus.DefaultRegisterer
	}
	app.Metrics = observability.NewMetrics(metricsNamespace, reg)

	var cache oauth.Cache
	if cfg.Gateway.TokenCacheDriver == "redis" {
		redisClient, err := infraRedis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		app.Redis = redisClient
		cache = infraRedis.NewTokenCache(redisClient, redisKeyPrefix+"token:")
		app.Idempotency = infraRedis.NewIdempotencyStore(redisClient, redisKeyPrefix+"idem:", logger)
		logger.Info().Msg("Connected to Redis")
	} else {
		app.Idempotency = idempotency.NewMemoryStore(nil)
	}

	g := cfg.Gateway
	app.Tokens = oauth.NewManager(oauth.Config{
		TokenURL: g.TokenURL,
		Backend:  oauth.Credentials{AppID: g.Backend.AppID, Secret: g.Backend.Secret},
		Frontend: oauth.Credentials{AppID: g.Frontend.AppID, Secret: g.Frontend.Secret},
		CacheTTL: g.TokenCacheTTL,
		Timeout:  g.HTTPTimeout,
		Retry: retry.Config{
			MaxAttempts:  g.TokenRetryAttempts,
			InitialDelay: g.TokenRetryDelay,
			MaxDelay:     30 * g.TokenRetryDelay,
			Backoff:      retry.Exponential,
		},
	}, cache, logger, app.Metrics)

	clientCfg := client.DefaultConfig(g.BaseURL)
	clientCfg.AcceptHeader = g.AcceptHeader
	clientCfg.Timeout = g.HTTPTimeout
	clientCfg.Retry.MaxAttempts = g.RetryAttempts
	clientCfg.Retry.InitialDelay = g.RetryBaseDelay
	clientCfg.Breaker = client.BreakerConfig{
		Name:             g.ProviderName,
		MaxRequests:      g.CircuitBreaker.MaxRequests,
		Interval:         g.CircuitBreaker.Interval,
		Timeout:          g.CircuitBreaker.Timeout,
		MinRequests:      g.CircuitBreaker.MinRequests,
		FailureThreshold: g.CircuitBreaker.FailureThreshold,
	}
	api := client.New(clientCfg, app.Tokens, logger, app.Metrics)

	app.Gateway = gateway.New(g.ProviderName, app.Tokens, api, routing.NewRouterFromConfig(g.Subaccounts), logger, app.Metrics)

	return app, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.tracer != nil {
		observability.Shutdown(context.Background(), a.tracer)
	}
}
