package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offersync_cache_hits_total",
		Help: "Cache reads served from a live entry",
	}, []string{"backend"})

	missesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offersync_cache_misses_total",
		Help: "Cache reads that fell through to a miss (absent, expired, corrupt, or backend error)",
	}, []string{"backend", "reason"})

	evictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offersync_cache_evictions_total",
		Help: "Entries removed by TTL expiry or explicit invalidation",
	}, []string{"backend"})
)
