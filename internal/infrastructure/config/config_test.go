package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Gateway: GatewayConfig{
			ProviderName:       "ccbill",
			BaseURL:            "https://api.example.test",
			TokenURL:           "https://api.example.test/oauth/token",
			HTTPTimeout:        10 * time.Second,
			RetryAttempts:      3,
			RetryBaseDelay:     time.Second,
			TokenRetryAttempts: 3,
			TokenRetryDelay:    time.Second,
			TokenCacheTTL:      time.Hour,
			TokenCacheDriver:   "memory",
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"port too low", 0},
		{"port negative", -1},
		{"port too high", 99999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestConfig_Validate_InvalidReadTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ReadTimeout = 0

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read_timeout")
}

func TestConfig_Validate_GatewayFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GatewayConfig)
		field  string
	}{
		{"missing base url", func(g *GatewayConfig) { g.BaseURL = "" }, "gateway.base_url"},
		{"missing token url", func(g *GatewayConfig) { g.TokenURL = "" }, "gateway.token_url"},
		{"zero http timeout", func(g *GatewayConfig) { g.HTTPTimeout = 0 }, "gateway.http_timeout"},
		{"zero retry attempts", func(g *GatewayConfig) { g.RetryAttempts = 0 }, "gateway.retry_attempts"},
		{"zero token retry attempts", func(g *GatewayConfig) { g.TokenRetryAttempts = 0 }, "gateway.token_retry_attempts"},
		{"zero cache ttl", func(g *GatewayConfig) { g.TokenCacheTTL = 0 }, "gateway.token_cache_ttl"},
		{"unknown cache driver", func(g *GatewayConfig) { g.TokenCacheDriver = "memcached" }, "gateway.token_cache_driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg.Gateway)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestConfig_Validate_RedisDriverNeedsPort(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.TokenCacheDriver = "redis"
	cfg.Redis.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.port")
}

func TestConfig_Validate_EmptySubaccountsAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.Subaccounts = SubaccountsConfig{}

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_Production(t *testing.T) {
	t.Setenv("ENV", "production")

	cfg := validConfig()
	cfg.Gateway.BaseURL = "http://api.example.test"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.backend credentials")
	assert.Contains(t, err.Error(), "gateway.frontend credentials")
	assert.Contains(t, err.Error(), "https")
	assert.Contains(t, err.Error(), "server.jwt_secret")
}

func TestConfig_Validate_NegativeRateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Server.RateLimitPerMinute = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit_per_minute")
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         0,
			ReadTimeout:  0,
			WriteTimeout: 0,
		},
		Gateway: GatewayConfig{TokenCacheDriver: "memory"},
	}

	err := cfg.Validate()
	require.Error(t, err)

	errStr := err.Error()
	assert.Contains(t, errStr, "server.port")
	assert.Contains(t, errStr, "read_timeout")
	assert.Contains(t, errStr, "write_timeout")
	assert.Contains(t, errStr, "gateway.base_url")
	assert.Contains(t, errStr, "gateway.token_cache_ttl")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "ccbill", cfg.Gateway.ProviderName)
	assert.Equal(t, time.Hour, cfg.Gateway.TokenCacheTTL)
	assert.Equal(t, uint(3), cfg.Gateway.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Gateway.RetryBaseDelay)
	assert.Equal(t, "memory", cfg.Gateway.TokenCacheDriver)
	assert.Equal(t, "application/vnd.mcn.transaction-service.api.v.2+json", cfg.Gateway.AcceptHeader)
	assert.Equal(t, 120, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, 24*time.Hour, cfg.Server.IdempotencyTTL)
	assert.Empty(t, cfg.Server.JWTSecret)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ENV", "")
	t.Chdir(t.TempDir())
	t.Setenv("CARDGATEWAY_GATEWAY_BACKEND_APP_ID", "backend-app")
	t.Setenv("CARDGATEWAY_GATEWAY_BACKEND_SECRET", "backend-secret")
	t.Setenv("CARDGATEWAY_GATEWAY_SUBACCOUNTS_HIGH_RISK_NON_RECURRING_ACCOUNT_NUMBER", "900100")
	t.Setenv("CARDGATEWAY_GATEWAY_TOKEN_CACHE_TTL", "15m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "backend-app", cfg.Gateway.Backend.AppID)
	assert.Equal(t, "backend-secret", cfg.Gateway.Backend.Secret)
	assert.Equal(t, "900100", cfg.Gateway.Subaccounts.HighRiskNonRecurring.AccountNumber)
	assert.Equal(t, 15*time.Minute, cfg.Gateway.TokenCacheTTL)
}

func TestRedisConfig_RedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "redis.internal", Port: 6380}
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr())
}
