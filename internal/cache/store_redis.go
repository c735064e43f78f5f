package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"offersync/pkg/requestcontext"
)

// RedisStore persists cache entries in Redis so the cache survives process
// restarts. The TTL check is performed against the stored envelope rather
// than relying on Redis key expiry alone; the Redis expiry is kept as a
// backstop at twice the logical TTL so abandoned entries do not accumulate.
type RedisStore struct {
	client *redis.Client
	log    *log.Logger
}

func NewRedisStore(client *redis.Client, log *log.Logger) *RedisStore {
	return &RedisStore{client: client, log: log}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	now := requestcontext.Now(ctx)

	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		missesTotal.WithLabelValues("redis", "absent").Inc()
		return nil, ErrMiss
	}
	if err != nil {
		// Fail open: a broken cache must never block the read path.
		s.log.Printf("cache: redis get %s: %v", key, err)
		missesTotal.WithLabelValues("redis", "error").Inc()
		return nil, ErrMiss
	}

	var entry envelope
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.log.Printf("cache: corrupt envelope at %s, evicting: %v", key, err)
		if delErr := s.client.Del(ctx, key).Err(); delErr != nil {
			s.log.Printf("cache: evict corrupt %s: %v", key, delErr)
		}
		missesTotal.WithLabelValues("redis", "corrupt").Inc()
		return nil, ErrMiss
	}
	if entry.expired(now) {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.log.Printf("cache: evict expired %s: %v", key, err)
		} else {
			evictionsTotal.WithLabelValues("redis").Inc()
		}
		missesTotal.WithLabelValues("redis", "expired").Inc()
		return nil, ErrMiss
	}
	hitsTotal.WithLabelValues("redis").Inc()
	return entry.Data, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := envelope{
		Data:       value,
		StoredAt:   requestcontext.Now(ctx),
		TTLSeconds: ttlSeconds(ttl),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	backstop := 2 * time.Duration(entry.TTLSeconds) * time.Second
	return s.client.Set(ctx, key, raw, backstop).Err()
}

func (s *RedisStore) Invalidate(ctx context.Context, key string) error {
	removed, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return err
	}
	if removed > 0 {
		evictionsTotal.WithLabelValues("redis").Inc()
	}
	return nil
}

func (s *RedisStore) CleanupExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	evicted := 0

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return evicted, err
		}
		var entry envelope
		stale := json.Unmarshal(raw, &entry) != nil || entry.expired(now)
		if !stale {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return evicted, err
		}
		evicted++
	}
	if err := iter.Err(); err != nil {
		return evicted, err
	}
	if evicted > 0 {
		evictionsTotal.WithLabelValues("redis").Add(float64(evicted))
	}
	return evicted, nil
}
