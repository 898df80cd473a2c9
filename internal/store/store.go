// Package store caches fetched monthly rows and records sync runs so areas
// can be rebuilt without contacting the datastore.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crime-cli/internal/model"
)

// Store persists cached rows, the neighborhood table, and the sync log.
type Store interface {
	// Row cache
	SaveRows(ctx context.Context, area string, rows []model.Row) (int64, error)
	LoadRows(ctx context.Context, area string) ([]model.Row, error)
	CachedAreas(ctx context.Context) ([]string, error)

	// Neighborhoods
	SaveNeighborhoods(ctx context.Context, ns []model.Neighborhood) error
	ListNeighborhoods(ctx context.Context) ([]model.Neighborhood, error)

	// Sync log
	StartSync(ctx context.Context, area string) (string, error)
	CompleteSync(ctx context.Context, id string, rowsSynced int64) error
	FailSync(ctx context.Context, id string, msg string) error
	LastSuccess(ctx context.Context, area string) (*time.Time, error)
	ListSyncs(ctx context.Context, limit int) ([]model.SyncEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ErrNotCached is returned by Cached.FetchRows when an area has no rows.
var ErrNotCached = eris.New("store: area not cached")

// encodeCounts stores a month's counts as a JSON object so a category that
// was absent stays absent rather than becoming zero.
func encodeCounts(counts map[string]int) ([]byte, error) {
	if counts == nil {
		counts = map[string]int{}
	}
	b, err := json.Marshal(counts)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal counts")
	}
	return b, nil
}

func decodeCounts(b []byte) (map[string]int, error) {
	counts := map[string]int{}
	if len(b) == 0 {
		return counts, nil
	}
	if err := json.Unmarshal(b, &counts); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal counts")
	}
	return counts, nil
}
