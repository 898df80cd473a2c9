package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRuns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "crime",
		Subsystem: "monitoring",
		Name:      "sync_runs",
		Help:      "Sync runs in the lookback window by status.",
	}, []string{"status"})

	cachedAreas = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crime",
		Subsystem: "monitoring",
		Name:      "cached_areas",
		Help:      "Areas with rows in the local cache.",
	})

	staleAreas = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crime",
		Subsystem: "monitoring",
		Name:      "stale_areas",
		Help:      "Cached areas past the stale threshold.",
	})
)

// Publish copies a snapshot into the exported gauges.
func Publish(snap *Snapshot) {
	syncRuns.WithLabelValues("complete").Set(float64(snap.SyncComplete))
	syncRuns.WithLabelValues("failed").Set(float64(snap.SyncFailed))
	syncRuns.WithLabelValues("running").Set(float64(snap.SyncRunning))
	cachedAreas.Set(float64(snap.CachedAreas))
	staleAreas.Set(float64(len(snap.StaleAreas)))
}
