package datasync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	areaSyncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crime",
		Subsystem: "sync",
		Name:      "areas_total",
		Help:      "Area refreshes by outcome (synced, skipped, failed).",
	}, []string{"status"})

	areaSyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crime",
		Subsystem: "sync",
		Name:      "area_duration_seconds",
		Help:      "Time to fetch and cache one area.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	rowsCached = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crime",
		Subsystem: "sync",
		Name:      "rows_cached_total",
		Help:      "Monthly rows written to the local cache.",
	})
)
