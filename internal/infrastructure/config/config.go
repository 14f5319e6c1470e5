package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`

	// JWTSecret enables bearer auth on /api/v1 when set.
	JWTSecret          string        `mapstructure:"jwt_secret"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// GatewayConfig is everything the card gateway adapter consumes.
type GatewayConfig struct {
	ProviderName string `mapstructure:"provider_name"`
	BaseURL      string `mapstructure:"base_url"`
	TokenURL     string `mapstructure:"token_url"`
	AcceptHeader string `mapstructure:"accept_header"`

	Backend     CredentialsConfig `mapstructure:"backend"`
	Frontend    CredentialsConfig `mapstructure:"frontend"`
	Subaccounts SubaccountsConfig `mapstructure:"subaccounts"`

	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	RetryAttempts  uint          `mapstructure:"retry_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`

	TokenRetryAttempts uint          `mapstructure:"token_retry_attempts"`
	TokenRetryDelay    time.Duration `mapstructure:"token_retry_delay"`
	TokenCacheTTL      time.Duration `mapstructure:"token_cache_ttl"`
	TokenCacheDriver   string        `mapstructure:"token_cache_driver"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CredentialsConfig is an OAuth client id/secret pair.
type CredentialsConfig struct {
	AppID  string `mapstructure:"app_id"`
	Secret string `mapstructure:"secret"`
}

type SubaccountConfig struct {
	AccountNumber    string `mapstructure:"account_number"`
	SubAccountNumber string `mapstructure:"sub_account_number"`
}

type SubaccountsConfig struct {
	LowRiskNonRecurring  SubaccountConfig `mapstructure:"low_risk_non_recurring"`
	HighRiskNonRecurring SubaccountConfig `mapstructure:"high_risk_non_recurring"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MinRequests      uint32        `mapstructure:"min_requests"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables, e.g. CARDGATEWAY_GATEWAY_BACKEND_SECRET
	v.SetEnvPrefix("CARDGATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cardgateway")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings the process cannot start without.
// Sub-accounts are checked when a bucket is resolved, not here.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit_per_minute cannot be negative"))
	}

	g := c.Gateway
	if g.BaseURL == "" {
		errs = append(errs, fmt.Errorf("gateway.base_url is required"))
	}
	if g.TokenURL == "" {
		errs = append(errs, fmt.Errorf("gateway.token_url is required"))
	}
	if g.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("gateway.http_timeout must be positive"))
	}
	if g.RetryAttempts == 0 {
		errs = append(errs, fmt.Errorf("gateway.retry_attempts must be at least 1"))
	}
	if g.TokenRetryAttempts == 0 {
		errs = append(errs, fmt.Errorf("gateway.token_retry_attempts must be at least 1"))
	}
	if g.TokenCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("gateway.token_cache_ttl must be positive"))
	}
	switch g.TokenCacheDriver {
	case "memory":
	case "redis":
		if c.Redis.Port <= 0 {
			errs = append(errs, fmt.Errorf("redis.port must be positive when gateway.token_cache_driver is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("gateway.token_cache_driver must be memory or redis, got %q", g.TokenCacheDriver))
	}

	// Production environment checks
	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if g.Backend.AppID == "" || g.Backend.Secret == "" {
			errs = append(errs, fmt.Errorf("gateway.backend credentials required in production"))
		}
		if g.Frontend.AppID == "" || g.Frontend.Secret == "" {
			errs = append(errs, fmt.Errorf("gateway.frontend credentials required in production"))
		}
		if c.Server.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("server.jwt_secret required in production"))
		}
		if strings.HasPrefix(g.BaseURL, "http://") {
			errs = append(errs, fmt.Errorf("gateway.base_url must use https in production"))
		}
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.rate_limit_per_minute", 120)
	v.SetDefault("server.idempotency_ttl", "24h")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Gateway defaults
	v.SetDefault("gateway.provider_name", "ccbill")
	v.SetDefault("gateway.base_url", "https://api.ccbill.com")
	v.SetDefault("gateway.token_url", "https://api.ccbill.com/ccbill-auth/oauth/token")
	v.SetDefault("gateway.accept_header", "application/vnd.mcn.transaction-service.api.v.2+json")
	v.SetDefault("gateway.backend.app_id", "")
	v.SetDefault("gateway.backend.secret", "")
	v.SetDefault("gateway.frontend.app_id", "")
	v.SetDefault("gateway.frontend.secret", "")
	v.SetDefault("gateway.subaccounts.low_risk_non_recurring.account_number", "")
	v.SetDefault("gateway.subaccounts.low_risk_non_recurring.sub_account_number", "")
	v.SetDefault("gateway.subaccounts.high_risk_non_recurring.account_number", "")
	v.SetDefault("gateway.subaccounts.high_risk_non_recurring.sub_account_number", "")
	v.SetDefault("gateway.http_timeout", "10s")
	v.SetDefault("gateway.retry_attempts", 3)
	v.SetDefault("gateway.retry_base_delay", "1s")
	v.SetDefault("gateway.token_retry_attempts", 3)
	v.SetDefault("gateway.token_retry_delay", "1s")
	v.SetDefault("gateway.token_cache_ttl", "1h")
	v.SetDefault("gateway.token_cache_driver", "memory")
	v.SetDefault("gateway.circuit_breaker.max_requests", 5)
	v.SetDefault("gateway.circuit_breaker.interval", "60s")
	v.SetDefault("gateway.circuit_breaker.timeout", "30s")
	v.SetDefault("gateway.circuit_breaker.min_requests", 10)
	v.SetDefault("gateway.circuit_breaker.failure_threshold", 0.6)

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
