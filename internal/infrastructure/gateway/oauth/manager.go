package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	domainErrors "github.com/cassiomorais/cardgateway/internal/domain/errors"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/observability"
	"github.com/cassiomorais/cardgateway/pkg/retry"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

// expirySkew is subtracted from the provider's expires_in so a token is
// never handed out moments before the provider stops accepting it.
const expirySkew = 30 * time.Second

// Credentials is an OAuth client id and secret.
type Credentials struct {
	AppID  string
	Secret string
}

// Config configures a Manager.
type Config struct {
	TokenURL string
	Backend  Credentials
	Frontend Credentials
	// CacheTTL caps how long a backend token is reused.
	CacheTTL time.Duration
	Timeout  time.Duration
	// Retry applies to backend exchanges only.
	Retry retry.Config
}

// Manager obtains bearer tokens. Backend tokens are cached and shared by
// concurrent callers; frontend tokens are fetched fresh on every call.
type Manager struct {
	cfg     Config
	http    *resty.Client
	cache   Cache
	group   singleflight.Group
	logger  zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTransport sets the round tripper used for token exchanges.
func WithTransport(rt http.RoundTripper) Option {
	return func(m *Manager) { m.http.SetTransport(otelhttp.NewTransport(rt)) }
}

// NewManager creates a Manager. A nil cache means an in-memory cache.
func NewManager(cfg Config, cache Cache, logger zerolog.Logger, metrics *observability.Metrics, opts ...Option) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	if metrics == nil {
		metrics = observability.NewTestMetrics()
	}

	logger = logger.With().Str("component", "oauth").Logger()
	m := &Manager{
		cfg: cfg,
		http: resty.New().
			SetTimeout(cfg.Timeout).
			SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
			SetLogger(observability.RestyLogger(logger)),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if cache == nil {
		cache = NewMemoryCache(m.now)
	}
	m.cache = cache
	return m
}

// issuance is a token together with where it came from.
type issuance struct {
	token  BearerToken
	source string
}

const (
	sourceCache    = "cache"
	sourceExchange = "exchange"
)

// BackendToken returns a cached backend token, exchanging credentials when
// the cache is empty or expired. Concurrent misses share one exchange, which
// outlives any single caller's cancellation and is bounded by the client
// timeout across all retry attempts.
func (m *Manager) BackendToken(ctx context.Context) (BearerToken, error) {
	ctx, _ = observability.EnsureCorrelationID(ctx)
	key := m.cacheKey()
	log := observability.ForContext(ctx, m.logger).With().Str("scope", string(ScopeBackend)).Logger()

	if tok, ok := m.cached(ctx, key, log); ok {
		m.issued(log, ScopeBackend, issuance{token: tok, source: sourceCache})
		return tok, nil
	}

	flight := m.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.flightBudget())
		defer cancel()

		if tok, ok := m.cached(fctx, key, log); ok {
			return issuance{token: tok, source: sourceCache}, nil
		}

		retryCfg := m.cfg.Retry
		retryCfg.RetryIf = isRetryable
		retryCfg.OnRetry = func(attempt uint, delay time.Duration, err error) {
			log.Warn().Err(err).Uint("attempt", attempt).Dur("delay", delay).Msg("Token exchange failed, retrying")
		}

		tok, err := retry.DoWithResult(fctx, retryCfg, func() (BearerToken, error) {
			return m.exchange(fctx, ScopeBackend, m.cfg.Backend)
		})
		if err != nil {
			return nil, err
		}

		ttl := m.cfg.CacheTTL
		if until := tok.ExpiresAt.Sub(m.now()); until < ttl {
			ttl = until
		}
		if ttl > 0 {
			if err := m.cache.Set(fctx, key, tok, ttl); err != nil {
				log.Warn().Err(err).Msg("Failed to cache backend token")
			}
		}
		return issuance{token: tok, source: sourceExchange}, nil
	})

	select {
	case <-ctx.Done():
		m.metrics.TokenRequestsTotal.WithLabelValues(string(ScopeBackend), sourceExchange, "error").Inc()
		log.Warn().Err(ctx.Err()).Msg("Backend token request abandoned by caller")
		return BearerToken{}, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			m.metrics.TokenRequestsTotal.WithLabelValues(string(ScopeBackend), sourceExchange, "error").Inc()
			log.Error().Err(res.Err).Msg("Backend token exchange failed")
			return BearerToken{}, res.Err
		}
		iss := res.Val.(issuance)
		m.issued(log, ScopeBackend, iss)
		return iss.token, nil
	}
}

// FrontendToken exchanges the frontend credentials. The result is never
// cached and the exchange is never retried.
func (m *Manager) FrontendToken(ctx context.Context) (BearerToken, error) {
	ctx, _ = observability.EnsureCorrelationID(ctx)
	log := observability.ForContext(ctx, m.logger).With().Str("scope", string(ScopeFrontend)).Logger()

	tok, err := m.exchange(ctx, ScopeFrontend, m.cfg.Frontend)
	if err != nil {
		m.metrics.TokenRequestsTotal.WithLabelValues(string(ScopeFrontend), sourceExchange, "error").Inc()
		log.Error().Err(err).Msg("Frontend token exchange failed")
		return BearerToken{}, err
	}

	m.issued(log, ScopeFrontend, issuance{token: tok, source: sourceExchange})
	return tok, nil
}

// issued records a successful token request. The token value is never logged.
func (m *Manager) issued(log zerolog.Logger, scope Scope, iss issuance) {
	m.metrics.TokenRequestsTotal.WithLabelValues(string(scope), iss.source, "success").Inc()
	log.Info().
		Str("source", iss.source).
		Time("expires_at", iss.token.ExpiresAt).
		Msg("Token issued")
}

// flightBudget bounds a shared backend exchange: one client timeout per
// attempt plus every backoff delay between attempts.
func (m *Manager) flightBudget() time.Duration {
	attempts := m.cfg.Retry.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	budget := time.Duration(attempts) * m.cfg.Timeout
	for n := uint(0); n+1 < attempts; n++ {
		budget += m.cfg.Retry.Delay(n)
	}
	return budget
}

// ClearCache drops the cached backend token.
func (m *Manager) ClearCache(ctx context.Context) error {
	return m.cache.Delete(ctx, m.cacheKey())
}

func (m *Manager) cacheKey() string {
	return "cardgateway:oauth:backend:" + m.cfg.Backend.AppID
}

func (m *Manager) cached(ctx context.Context, key string, log zerolog.Logger) (BearerToken, bool) {
	tok, ok, err := m.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("Token cache read failed, exchanging credentials")
		return BearerToken{}, false
	}
	if !ok || tok.Expired(m.now()) {
		return BearerToken{}, false
	}
	return tok, true
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (m *Manager) exchange(ctx context.Context, scope Scope, creds Credentials) (BearerToken, error) {
	resp, err := m.http.R().
		SetContext(ctx).
		SetBasicAuth(creds.AppID, creds.Secret).
		SetHeader("Accept", "application/json").
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post(m.cfg.TokenURL)
	if err != nil {
		return BearerToken{}, &domainErrors.OAuthError{Scope: string(scope), Err: err}
	}

	body := resp.Body()
	var tr tokenResponse
	decodeErr := json.Unmarshal(body, &tr)

	if tr.Error != "" {
		return BearerToken{}, &domainErrors.OAuthError{
			Scope:       string(scope),
			StatusCode:  resp.StatusCode(),
			Code:        tr.Error,
			Description: tr.ErrorDescription,
			Payload:     body,
			Structured:  true,
		}
	}
	if resp.IsError() || decodeErr != nil || tr.AccessToken == "" {
		code := "missing_access_token"
		if resp.IsError() {
			code = http.StatusText(resp.StatusCode())
		}
		return BearerToken{}, &domainErrors.OAuthError{
			Scope:      string(scope),
			StatusCode: resp.StatusCode(),
			Code:       code,
			Payload:    body,
			Err:        decodeErr,
		}
	}

	return BearerToken{
		Value:     tr.AccessToken,
		Scope:     scope,
		ExpiresAt: m.expiresAt(tr.ExpiresIn),
	}, nil
}

func (m *Manager) expiresAt(expiresIn int64) time.Time {
	now := m.now()
	d := time.Duration(expiresIn) * time.Second
	switch {
	case d > expirySkew:
		return now.Add(d - expirySkew)
	case d > 0:
		return now.Add(d)
	default:
		return now.Add(m.cfg.CacheTTL)
	}
}

// isRetryable retries transport failures and unstructured answers. A
// structured error document from the provider is final.
func isRetryable(err error) bool {
	var oauthErr *domainErrors.OAuthError
	if errors.As(err, &oauthErr) {
		return !oauthErr.Structured
	}
	return true
}
