package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cassiomorais/cardgateway/pkg/idempotency"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// IdempotencyStore keeps replayable responses in Redis so every API replica
// sees the same Idempotency-Key history.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

func NewIdempotencyStore(client *redis.Client, prefix string, logger zerolog.Logger) *IdempotencyStore {
	return &IdempotencyStore{client: client, prefix: prefix, logger: logger}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (*idempotency.Entry, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency entry: %w", err)
	}

	var e idempotency.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return &e, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, key string, entry *idempotency.Entry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode idempotency entry: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save idempotency entry: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Lock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	lock := NewDistributedLock(s.client, s.prefix+key, ttl)
	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		return func() {}, false, err
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to release idempotency lock")
		}
	}, true, nil
}
