// Package idempotency stores responses to mutating requests so a retried
// request with the same Idempotency-Key is answered without repeating the
// side effect.
package idempotency

import (
	"context"
	"sync"
	"time"
)

// Entry is a stored response.
type Entry struct {
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Store persists entries and serializes requests sharing a key.
type Store interface {
	// Get returns nil, nil when key has no entry.
	Get(ctx context.Context, key string) (*Entry, error)
	Save(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	// Lock claims key while a request is in flight. acquired is false when
	// another holder has it.
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), acquired bool, err error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	locks   map[string]time.Time
	now     func() time.Time
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		locks:   make(map[string]time.Time),
		now:     now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	out := e.entry
	return &out, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, entry *Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{entry: *entry, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Lock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if until, held := s.locks[key]; held && s.now().Before(until) {
		return func() {}, false, nil
	}
	until := s.now().Add(ttl)
	s.locks[key] = until

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.locks[key].Equal(until) {
			delete(s.locks, key)
		}
	}, true, nil
}
