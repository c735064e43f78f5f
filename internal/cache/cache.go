// Package cache implements the persistent key/value cache with per-entry TTL
// that sits between the engine and the remote document store. Reads past an
// entry's TTL behave as a miss and evict the entry; backend failures degrade
// to a miss so a broken cache never blocks a read path, it only forces an
// extra remote fetch.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"offersync/pkg/platform/sentinel"
)

// ErrMiss is returned by Get when no usable entry exists: absent, expired,
// corrupt, or the backend failed.
var ErrMiss = sentinel.ErrMiss

// keyPrefix namespaces every cache entry in shared backends.
const keyPrefix = "cache:"

// Store is the cache contract consumed by the loader and the syncer.
type Store interface {
	// Get returns the cached payload or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites unconditionally and resets the expiry clock.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate removes the entry immediately regardless of TTL.
	Invalidate(ctx context.Context, key string) error
	// CleanupExpired sweeps all entries, evicts those past TTL, and returns
	// the number evicted. Intended to run once at process start.
	CleanupExpired(ctx context.Context) (int, error)
}

// envelope is the persisted JSON wrapper for each entry.
type envelope struct {
	Data       json.RawMessage `json:"data"`
	StoredAt   time.Time       `json:"storedAt"`
	TTLSeconds int64           `json:"ttlSeconds"`
}

func (e envelope) expired(now time.Time) bool {
	return now.After(e.StoredAt.Add(time.Duration(e.TTLSeconds) * time.Second))
}

// ttlSeconds converts a TTL to whole seconds for the envelope, rounding up so
// a sub-second TTL still yields a usable entry instead of one born expired.
func ttlSeconds(ttl time.Duration) int64 {
	return int64((ttl + time.Second - 1) / time.Second)
}

// Key builds a namespaced cache key `cache:<logicalName>:<paramsHash>`.
// Params are hashed so arbitrary filter values never leak into key syntax.
func Key(logicalName string, params ...string) string {
	sum := blake2b.Sum256([]byte(strings.Join(params, "\x1f")))
	return keyPrefix + logicalName + ":" + hex.EncodeToString(sum[:8])
}
