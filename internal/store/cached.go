package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crime-cli/internal/model"
)

// Cached replays an area's rows from a Store. It satisfies crime.RowFetcher.
type Cached struct {
	store Store
	area  string
}

// NewCached returns a row fetcher reading area from s.
func NewCached(s Store, area string) *Cached {
	return &Cached{store: s, area: area}
}

// FetchRows loads the cached rows. It returns ErrNotCached when the area has
// never been synced.
func (c *Cached) FetchRows(ctx context.Context) ([]model.Row, error) {
	rows, err := c.store.LoadRows(ctx, c.area)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Wrapf(ErrNotCached, "store: %s", c.area)
	}
	return rows, nil
}
