// Package client talks to the card provider's REST API with bounded retries,
// a circuit breaker and redacted request logging.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/cassiomorais/cardgateway/internal/domain/errors"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/oauth"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/observability"
	"github.com/cassiomorais/cardgateway/pkg/redact"
	"github.com/cassiomorais/cardgateway/pkg/retry"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultAcceptHeader selects version 2 of the transaction API.
const DefaultAcceptHeader = "application/vnd.mcn.transaction-service.api.v.2+json"

const (
	codeThreeDSNotSupported         = "THREEDS_NOT_SUPPORTED"
	codeThreeDSAuthenticationFailed = "THREEDS_AUTHENTICATION_FAILED"
)

// TokenSource supplies backend bearer tokens.
type TokenSource interface {
	BackendToken(ctx context.Context) (oauth.BearerToken, error)
}

// BreakerConfig configures the circuit breaker in front of the provider.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

// Config configures a Client.
type Config struct {
	BaseURL      string
	AcceptHeader string
	Timeout      time.Duration
	Retry        retry.Config
	Breaker      BreakerConfig
}

// DefaultConfig returns three attempts with a linear 1s, 2s delay.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		AcceptHeader: DefaultAcceptHeader,
		Timeout:      10 * time.Second,
		Retry: retry.Config{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Backoff:      retry.Linear,
		},
		Breaker: BreakerConfig{
			Name:             "card-provider",
			MaxRequests:      5,
			Interval:         60 * time.Second,
			Timeout:          30 * time.Second,
			MinRequests:      10,
			FailureThreshold: 0.6,
		},
	}
}

// Client is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *resty.Client
	tokens  TokenSource
	breaker *gobreaker.CircuitBreaker[*resty.Response]
	logger  zerolog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport sets the round tripper requests go through.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.SetTransport(otelhttp.NewTransport(rt)) }
}

// New creates a Client.
func New(cfg Config, tokens TokenSource, logger zerolog.Logger, metrics *observability.Metrics, opts ...Option) *Client {
	if cfg.AcceptHeader == "" {
		cfg.AcceptHeader = DefaultAcceptHeader
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultConfig(cfg.BaseURL).Retry
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultConfig(cfg.BaseURL).Breaker
	}
	if metrics == nil {
		metrics = observability.NewTestMetrics()
	}

	logger = logger.With().Str("component", "gateway_client").Logger()
	c := &Client{
		cfg: cfg,
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
			SetHeader("Accept", cfg.AcceptHeader).
			SetLogger(observability.RestyLogger(logger)),
		tokens:  tokens,
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer("github.com/cassiomorais/cardgateway/gateway/client"),
	}
	c.breaker = c.newBreaker(cfg.Breaker)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newBreaker(bc BreakerConfig) *gobreaker.CircuitBreaker[*resty.Response] {
	minRequests := bc.MinRequests
	if minRequests == 0 {
		minRequests = 1
	}
	return gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        bc.Name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= bc.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientFault(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			c.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

type call struct {
	op         string
	method     string
	path       string
	pathParams map[string]string
	// bearer is used as-is when set; otherwise a backend token is fetched.
	bearer *oauth.BearerToken
	body   any
}

// execute runs one logical operation: token, retries, breaker, logging,
// metrics and a span. It returns the raw success body.
func (c *Client) execute(ctx context.Context, cl call) ([]byte, error) {
	ctx, corrID := observability.EnsureCorrelationID(ctx)
	ctx, span := c.tracer.Start(ctx, "gateway."+cl.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gateway.operation", cl.op),
			attribute.String("correlation_id", corrID),
		),
	)
	defer span.End()

	log := c.logger.With().Str("correlation_id", corrID).Str("operation", cl.op).Logger()
	start := time.Now()

	body, err := c.run(ctx, cl, log)

	c.metrics.GatewayRequestDuration.WithLabelValues(cl.op).Observe(time.Since(start).Seconds())
	c.metrics.GatewayRequestsTotal.WithLabelValues(cl.op, outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		log.Error().Err(err).Msg("Provider call failed")
		return nil, err
	}
	return body, nil
}

func (c *Client) run(ctx context.Context, cl call, log zerolog.Logger) ([]byte, error) {
	bearer, err := c.bearer(ctx, cl)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if cl.body != nil {
		payload, err = json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", cl.op, err)
		}
	}

	var attempts uint
	retryCfg := c.cfg.Retry
	retryCfg.RetryIf = isRetryable
	retryCfg.OnRetry = func(attempt uint, delay time.Duration, err error) {
		c.metrics.GatewayRetries.WithLabelValues(cl.op).Inc()
		log.Warn().Err(err).Uint("attempt", attempt).Dur("delay", delay).Msg("Provider call failed, retrying")
	}

	body, err := retry.DoWithResult(ctx, retryCfg, func() ([]byte, error) {
		attempts++
		return c.attempt(ctx, cl, bearer, payload, log.With().Uint("attempt", attempts).Logger())
	})
	if err != nil {
		if isRetryable(err) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %d attempts: %w", domainErrors.ErrRetriesExhausted, attempts, err)
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) bearer(ctx context.Context, cl call) (oauth.BearerToken, error) {
	if cl.bearer != nil {
		return *cl.bearer, nil
	}
	if c.tokens == nil {
		return oauth.BearerToken{}, domainErrors.NewConfigurationError("gateway.backend", "no backend token source", nil)
	}
	return c.tokens.BackendToken(ctx)
}

func (c *Client) attempt(ctx context.Context, cl call, bearer oauth.BearerToken, payload []byte, log zerolog.Logger) ([]byte, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", bearer.Header()).
		SetHeader(observability.CorrelationHeader, observability.CorrelationID(ctx)).
		SetPathParams(cl.pathParams)
	if payload != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	log.Debug().
		Str("method", cl.method).
		Str("path", cl.path).
		RawJSON("request", loggable(payload)).
		Msg("Provider request")

	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		resp, err := req.Execute(cl.method, cl.path)
		if err != nil {
			return nil, fmt.Errorf("%s: transport: %w", cl.op, err)
		}
		if resp.IsError() {
			return resp, apiError(cl.op, resp)
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.metrics.CircuitBreakerRequests.WithLabelValues(c.breaker.Name(), "rejected").Inc()
		return nil, fmt.Errorf("%s: %w: %w", cl.op, domainErrors.ErrProviderUnavailable, err)
	}
	c.metrics.CircuitBreakerRequests.WithLabelValues(c.breaker.Name(), "allowed").Inc()

	if resp != nil {
		log.Debug().
			Int("status", resp.StatusCode()).
			Dur("latency", resp.Time()).
			RawJSON("response", loggable(resp.Body())).
			Msg("Provider response")
	}
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func loggable(body []byte) []byte {
	if len(body) == 0 {
		return []byte("null")
	}
	return redact.JSON(body)
}

// apiError decodes the provider's error document.
func apiError(op string, resp *resty.Response) error {
	body := resp.Body()
	apiErr := &domainErrors.APIError{
		Operation:  op,
		StatusCode: resp.StatusCode(),
		Payload:    body,
	}

	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		apiErr.Code = string(er.ErrorCode)
		apiErr.Message = er.GeneralMessage
		if apiErr.Message == "" && len(er.Errors) > 0 {
			apiErr.Message = er.Errors[0].Message
		}
	}
	if apiErr.Code == "" {
		apiErr.Code = strconv.Itoa(resp.StatusCode())
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}

	switch strings.ToUpper(apiErr.Code) {
	case codeThreeDSNotSupported:
		return &domainErrors.ThreeDSNotSupportedError{APIError: apiErr}
	case codeThreeDSAuthenticationFailed:
		return &domainErrors.ThreeDSAuthenticationFailedError{APIError: apiErr}
	}
	return apiErr
}

// isClientFault reports errors caused by the request rather than the
// provider. They do not count against the breaker.
func isClientFault(err error) bool {
	if errors.Is(err, domainErrors.ErrThreeDSNotSupported) || errors.Is(err, domainErrors.ErrThreeDSAuthenticationFailed) {
		return true
	}
	var apiErr *domainErrors.APIError
	return errors.As(err, &apiErr) && apiErr.IsClientError()
}

// isRetryable retries transport failures and provider-side API errors.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, domainErrors.ErrProviderUnavailable) ||
		errors.Is(err, domainErrors.ErrOAuth) ||
		errors.Is(err, domainErrors.ErrThreeDSNotSupported) ||
		errors.Is(err, domainErrors.ErrThreeDSAuthenticationFailed) {
		return false
	}
	var cfgErr *domainErrors.ConfigurationError
	if errors.As(err, &cfgErr) {
		return false
	}
	var apiErr *domainErrors.APIError
	if errors.As(err, &apiErr) {
		return !apiErr.IsClientError()
	}
	return true
}

func outcome(err error) string {
	var apiErr *domainErrors.APIError
	var cfgErr *domainErrors.ConfigurationError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domainErrors.ErrProviderUnavailable):
		return "circuit_open"
	case errors.Is(err, domainErrors.ErrRetriesExhausted):
		return "retries_exhausted"
	case errors.Is(err, domainErrors.ErrOAuth):
		return "auth_error"
	case errors.As(err, &cfgErr):
		return "config_error"
	case errors.As(err, &apiErr):
		return "rejected"
	default:
		return "error"
	}
}
