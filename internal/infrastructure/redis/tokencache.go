package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/oauth"
	"github.com/redis/go-redis/v9"
)

// TokenCache shares backend tokens between processes. Entries expire on the
// Redis side, so a crashed writer never leaves a stale token behind.
type TokenCache struct {
	client *redis.Client
	prefix string
}

var _ oauth.Cache = (*TokenCache)(nil)

// NewTokenCache creates a TokenCache. Keys are stored under prefix.
func NewTokenCache(client *redis.Client, prefix string) *TokenCache {
	return &TokenCache{client: client, prefix: prefix}
}

type cachedToken struct {
	Value     string    `json:"value"`
	Scope     string    `json:"scope"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *TokenCache) Get(ctx context.Context, key string) (oauth.BearerToken, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return oauth.BearerToken{}, false, nil
	}
	if err != nil {
		return oauth.BearerToken{}, false, fmt.Errorf("get token: %w", err)
	}

	tok, err := decodeToken(raw)
	if err != nil {
		return oauth.BearerToken{}, false, err
	}
	return tok, true, nil
}

func (c *TokenCache) Set(ctx context.Context, key string, token oauth.BearerToken, ttl time.Duration) error {
	raw, err := encodeToken(token)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	return nil
}

func (c *TokenCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func encodeToken(token oauth.BearerToken) ([]byte, error) {
	raw, err := json.Marshal(cachedToken{
		Value:     token.Value,
		Scope:     string(token.Scope),
		ExpiresAt: token.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode token: %w", err)
	}
	return raw, nil
}

func decodeToken(raw []byte) (oauth.BearerToken, error) {
	var ct cachedToken
	if err := json.Unmarshal(raw, &ct); err != nil {
		return oauth.BearerToken{}, fmt.Errorf("decode token: %w", err)
	}
	return oauth.BearerToken{
		Value:     ct.Value,
		Scope:     oauth.Scope(ct.Scope),
		ExpiresAt: ct.ExpiresAt,
	}, nil
}
