package cache

import (
	"context"
	"sync"
	"time"

	"offersync/pkg/requestcontext"
)

// InMemoryStore keeps entries in process memory. Used in tests and as the
// fallback when Redis is not configured; entries do not survive restarts.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]envelope
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]envelope)}
}

func (s *InMemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	now := requestcontext.Now(ctx)

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		missesTotal.WithLabelValues("memory", "absent").Inc()
		return nil, ErrMiss
	}
	// Expiry is always evaluated against the entry present at read time, so a
	// racing Set that reset the clock wins over this read's earlier snapshot.
	if entry.expired(now) {
		s.mu.Lock()
		if current, ok := s.entries[key]; ok && current.expired(now) {
			delete(s.entries, key)
			evictionsTotal.WithLabelValues("memory").Inc()
		}
		s.mu.Unlock()
		missesTotal.WithLabelValues("memory", "expired").Inc()
		return nil, ErrMiss
	}
	hitsTotal.WithLabelValues("memory").Inc()
	return entry.Data, nil
}

func (s *InMemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := envelope{
		Data:       append([]byte(nil), value...),
		StoredAt:   requestcontext.Now(ctx),
		TTLSeconds: ttlSeconds(ttl),
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) Invalidate(_ context.Context, key string) error {
	s.mu.Lock()
	if _, ok := s.entries[key]; ok {
		delete(s.entries, key)
		evictionsTotal.WithLabelValues("memory").Inc()
	}
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) CleanupExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
			evicted++
		}
	}
	if evicted > 0 {
		evictionsTotal.WithLabelValues("memory").Add(float64(evicted))
	}
	return evicted, nil
}

// Len reports the number of live-or-stale entries currently held. Test helper.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
