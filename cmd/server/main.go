package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	"offersync/internal/basket"
	"offersync/internal/cache"
	"offersync/internal/catalogue"
	"offersync/internal/events"
	"offersync/internal/favorites"
	"offersync/internal/gateway"
	"offersync/internal/identity"
	"offersync/internal/location"
	"offersync/internal/platform/config"
	"offersync/internal/platform/httpserver"
	"offersync/internal/platform/logger"
	platformredis "offersync/internal/platform/redis"
	"offersync/internal/session"
	"offersync/internal/syncer"
	httptransport "offersync/internal/transport/http"
)

// main wires the engine: stores, identity, collections, the debounced syncer,
// the session hydrator and the HTTP surface. Business logic lives in the
// internal packages; everything here is construction and lifecycle.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Cache backend: Redis when configured, in-process otherwise.
	var cacheStore cache.Store = cache.NewInMemoryStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		cacheStore = cache.NewRedisStore(redisClient.Client, log)
		log.Printf("cache backend: redis")
	} else {
		log.Printf("cache backend: memory (REDIS_URL not set)")
	}
	if evicted, err := cacheStore.CleanupExpired(ctx); err != nil {
		log.Printf("cache cleanup: %v", err)
	} else if evicted > 0 {
		log.Printf("cache cleanup: evicted %d stale entries", evicted)
	}

	// Remote document store: Postgres when configured, in-process otherwise.
	var gw gateway.Store = gateway.NewInMemoryStore()
	if cfg.Postgres.URL != "" {
		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer db.Close()
		pg := gateway.NewPostgresStore(db, log)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("postgres schema: %v", err)
		}
		gw = pg
		log.Printf("document store: postgres")
	} else {
		log.Printf("document store: memory (POSTGRES_URL not set)")
	}

	// Sync audit trail: Kafka when brokers are configured.
	var sink events.Sink = events.NewInMemorySink()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := events.NewKafkaSink(cfg.Kafka)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Printf("audit trail: kafka topic %s", cfg.Kafka.Topic)
	}
	auditInbox := make(chan events.Event, 256)
	auditWorker := events.NewWorker(sink, auditInbox, log)
	go func() { _ = auditWorker.Run(ctx) }()

	// Collections and identity.
	tokens := identity.NewTokenProvider(cfg.JWTSigningKey)
	b := basket.New()
	f := favorites.New()
	catalog := location.DefaultCatalog()
	sel := location.NewSelection(catalog)

	// Debounced write-through sync.
	sync := syncer.New(gw, tokens, cacheStore, log,
		syncer.WithDelay(cfg.SyncDebounce), syncer.WithAuditSink(auditInbox))
	sync.RegisterCollection(gateway.CollectionBaskets, b.Snapshot)
	sync.RegisterCollection(gateway.CollectionFavorites, f.Snapshot)
	sync.RegisterCollection(gateway.CollectionProfiles, sel.Snapshot)
	b.SetNotifier(sync.Notifier(gateway.CollectionBaskets))
	f.SetNotifier(sync.Notifier(gateway.CollectionFavorites))
	sel.SetNotifier(sync.Notifier(gateway.CollectionProfiles))
	go func() { _ = sync.Run(ctx) }()

	// Session hydration on auth transitions.
	hydrator := session.NewHydrator(gw, cacheStore, b, f, sel, log)
	tokens.OnAuthChange(func(p *identity.Profile) {
		hydrator.HandleAuthChange(ctx, p)
	})

	// Catalogue resolution.
	loader := catalogue.NewLoader(cacheStore, gw, cfg.ListingCacheTTL, log)
	pipeline := catalogue.NewPipeline(catalogue.NewClassifier(log), log)

	handler := httptransport.NewHandler(log, tokens, hydrator, loader, pipeline, b, f, sel, catalog)
	router := httptransport.NewRouter(handler, log)
	srv := httpserver.New(cfg.Addr, router)

	log.Printf("starting offersync on %s", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}
