package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration for the sync engine daemon.
type Server struct {
	Addr string

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig

	JWTSigningKey string

	// SyncDebounce is how long the syncer waits after the last mutation in a
	// burst before writing through to the remote store.
	SyncDebounce time.Duration

	// ListingCacheTTL bounds how long resolved catalogue listings may be
	// served from cache before a remote refetch.
	ListingCacheTTL time.Duration
}

// RedisConfig captures cache backend settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig captures the remote document store settings.
type PostgresConfig struct {
	URL string
}

// KafkaConfig captures the sync audit trail settings. Empty brokers disable
// publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("OFFERSYNC_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	topic := os.Getenv("KAFKA_SYNC_TOPIC")
	if topic == "" {
		topic = "offersync.sync-events"
	}

	return Server{
		Addr: addr,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("POSTGRES_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		JWTSigningKey:   jwtSigningKey,
		SyncDebounce:    durationEnv("SYNC_DEBOUNCE", time.Second),
		ListingCacheTTL: durationEnv("LISTING_CACHE_TTL", 15*time.Minute),
	}
}

func durationEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
