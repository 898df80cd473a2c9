package crime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	statsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crime",
		Subsystem: "area",
		Name:      "stats_computed_total",
		Help:      "Stats snapshots built after an area fetch.",
	})

	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crime",
		Subsystem: "area",
		Name:      "fetches_total",
		Help:      "Area fetches by outcome.",
	}, []string{"status"})
)
