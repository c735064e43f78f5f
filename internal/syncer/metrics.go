package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scheduledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offersync_sync_scheduled_total",
		Help: "Debounce timers scheduled for remote writes",
	})

	coalescedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offersync_sync_coalesced_total",
		Help: "Pending timers cancelled and replaced by a newer mutation",
	})

	firedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offersync_sync_fired_total",
		Help: "Debounced remote writes attempted, by outcome",
	}, []string{"outcome"})

	writeDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "offersync_sync_write_duration_ms",
		Help:    "Latency of debounced gateway writes in milliseconds",
		Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
)
