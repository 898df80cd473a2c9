package source

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crime",
		Subsystem: "source",
		Name:      "queries_total",
		Help:      "Datastore queries by outcome.",
	}, []string{"status"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crime",
		Subsystem: "source",
		Name:      "query_duration_seconds",
		Help:      "Datastore query latency including retries.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	rowsReturned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crime",
		Subsystem: "source",
		Name:      "rows_returned_total",
		Help:      "Rows returned by successful datastore queries.",
	})
)
