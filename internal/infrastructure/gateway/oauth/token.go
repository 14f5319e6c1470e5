// Package oauth issues and caches OAuth2 client-credentials bearer tokens for
// the two trust scopes the provider distinguishes.
package oauth

import (
	"context"
	"sync"
	"time"

	"github.com/cassiomorais/cardgateway/pkg/redact"
)

// Scope is the trust level a token was issued for.
type Scope string

const (
	// ScopeBackend tokens authorize server-side charges, refunds and lookups.
	ScopeBackend Scope = "backend"
	// ScopeFrontend tokens are handed to the browser for card tokenization.
	ScopeFrontend Scope = "frontend"
)

// BearerToken is an issued access token. Its String form is masked.
type BearerToken struct {
	Value     string
	Scope     Scope
	ExpiresAt time.Time
}

// Header returns the Authorization header value.
func (t BearerToken) Header() string {
	return "Bearer " + t.Value
}

// Expired reports whether the token is no longer usable at now.
func (t BearerToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

func (t BearerToken) String() string {
	return "Bearer " + redact.Last4(t.Value) + " (" + string(t.Scope) + ")"
}

// GoString keeps %#v from printing the value.
func (t BearerToken) GoString() string {
	return t.String()
}

// Cache stores backend tokens between exchanges. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (BearerToken, bool, error)
	Set(ctx context.Context, key string, token BearerToken, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	token     BearerToken
	expiresAt time.Time
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache. A nil clock means time.Now.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (BearerToken, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return BearerToken{}, false, nil
	}
	return e.token, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, token BearerToken, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{token: token, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
