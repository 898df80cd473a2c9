// Package monitoring summarizes the sync log into health snapshots, exports
// them as Prometheus gauges, and raises webhook alerts.
package monitoring

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crime-cli/internal/model"
)

// Snapshot holds a point-in-time view of cache health.
type Snapshot struct {
	// Sync runs started within the lookback window.
	SyncTotal    int     `json:"sync_total" yaml:"sync_total"`
	SyncComplete int     `json:"sync_complete" yaml:"sync_complete"`
	SyncFailed   int     `json:"sync_failed" yaml:"sync_failed"`
	SyncRunning  int     `json:"sync_running" yaml:"sync_running"`
	SyncFailRate float64 `json:"sync_fail_rate" yaml:"sync_fail_rate"`
	RowsSynced   int64   `json:"rows_synced" yaml:"rows_synced"`

	// Cached areas whose last successful sync is missing or older than the
	// stale threshold.
	CachedAreas int      `json:"cached_areas" yaml:"cached_areas"`
	StaleAreas  []string `json:"stale_areas" yaml:"stale_areas"`

	LookbackHours int       `json:"lookback_hours" yaml:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at" yaml:"collected_at"`
}

// SyncSource is the part of store.Store the collector reads.
type SyncSource interface {
	ListSyncs(ctx context.Context, limit int) ([]model.SyncEntry, error)
	CachedAreas(ctx context.Context) ([]string, error)
	LastSuccess(ctx context.Context, area string) (*time.Time, error)
}

// Collector gathers snapshots from the store.
type Collector struct {
	src        SyncSource
	staleAfter time.Duration
	now        func() time.Time
}

// NewCollector creates a collector. staleAfter of zero disables staleness
// checks.
func NewCollector(src SyncSource, staleAfter time.Duration) *Collector {
	return &Collector{
		src:        src,
		staleAfter: staleAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now()
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
		StaleAreas:    []string{},
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	entries, err := c.src.ListSyncs(ctx, 10000)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list syncs")
	}
	for _, e := range entries {
		if e.StartedAt.Before(cutoff) {
			continue
		}
		snap.SyncTotal++
		switch e.Status {
		case model.SyncStatusComplete:
			snap.SyncComplete++
			snap.RowsSynced += e.RowsSynced
		case model.SyncStatusFailed:
			snap.SyncFailed++
		case model.SyncStatusRunning:
			snap.SyncRunning++
		}
	}
	if finished := snap.SyncComplete + snap.SyncFailed; finished > 0 {
		snap.SyncFailRate = float64(snap.SyncFailed) / float64(finished)
	}

	areas, err := c.src.CachedAreas(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: cached areas")
	}
	snap.CachedAreas = len(areas)

	if c.staleAfter > 0 {
		for _, a := range areas {
			last, err := c.src.LastSuccess(ctx, a)
			if err != nil {
				return nil, eris.Wrapf(err, "monitoring: last success for %s", a)
			}
			if last == nil || now.Sub(*last) > c.staleAfter {
				snap.StaleAreas = append(snap.StaleAreas, a)
			}
		}
		sort.Strings(snap.StaleAreas)
	}

	return snap, nil
}
