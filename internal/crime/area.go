package crime

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crime-cli/internal/model"
)

// RowFetcher supplies the monthly rows for one area. City and neighborhood
// sources and the local cache all satisfy it.
type RowFetcher interface {
	FetchRows(ctx context.Context) ([]model.Row, error)
}

// AreaConfig configures an Area.
type AreaConfig struct {
	Key        string
	Name       string
	Categories model.CategorySet
	Population PopulationTable
	Now        TimeContext
	Current    *CategoryContext
}

// Area is the aggregate for one geography: a grid of counts, the engine over
// it, and the stats snapshot computed once the data arrives.
type Area struct {
	key     string
	name    string
	fetcher RowFetcher
	grid    *Grid
	engine  *Engine
	current *CategoryContext
	log     *zap.Logger

	mu        sync.Mutex
	fetched   bool
	statsSet  bool
	stats     map[string]model.CategoryStats
	fetchedCh chan struct{}
	closeOnce sync.Once
}

// NewArea creates an unfetched area backed by fetcher.
func NewArea(cfg AreaConfig, fetcher RowFetcher) *Area {
	grid := NewGrid()
	return &Area{
		key:       cfg.Key,
		name:      cfg.Name,
		fetcher:   fetcher,
		grid:      grid,
		engine:    NewEngine(grid, cfg.Population, cfg.Now, cfg.Categories, cfg.Current),
		current:   cfg.Current,
		log:       zap.L().With(zap.String("component", "crime.area"), zap.String("area", cfg.Key)),
		fetchedCh: make(chan struct{}),
	}
}

// Key returns the area key.
func (a *Area) Key() string { return a.key }

// Name returns the display name.
func (a *Area) Name() string { return a.name }

// Engine returns the stats engine over the area's grid.
func (a *Area) Engine() *Engine { return a.engine }

// Fetched returns a channel closed once the area's data has been merged.
func (a *Area) Fetched() <-chan struct{} { return a.fetchedCh }

// IsFetched reports whether data has been merged.
func (a *Area) IsFetched() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fetched
}

// FetchData loads the area's rows once. After a successful fetch later calls
// return nil without contacting the fetcher. The lock is not held while the
// fetcher runs, so two calls racing before the first completes both fetch.
// A failed fetch leaves the area unfetched.
func (a *Area) FetchData(ctx context.Context) error {
	if a.IsFetched() {
		return nil
	}

	rows, err := a.fetcher.FetchRows(ctx)
	if err != nil {
		fetchesTotal.WithLabelValues("error").Inc()
		return eris.Wrapf(err, "area: fetch %s", a.key)
	}
	fetchesTotal.WithLabelValues("ok").Inc()

	a.grid.Merge(rows)

	a.mu.Lock()
	a.fetched = true
	a.mu.Unlock()

	a.log.Debug("rows merged", zap.Int("rows", len(rows)), zap.Int("months", a.grid.Len()))

	a.ComputeStats()
	a.closeOnce.Do(func() { close(a.fetchedCh) })
	return nil
}

// ComputeStats builds the stats snapshot the first time it is called after
// the data is fetched. Later calls do nothing.
func (a *Area) ComputeStats() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.fetched || a.statsSet {
		return
	}
	a.stats = a.engine.Snapshot()
	a.statsSet = true
	statsComputed.Inc()
}

// StatsComputed reports whether the snapshot has been built.
func (a *Area) StatsComputed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statsSet
}

// Stats returns a copy of the cached snapshot, or nil before it is computed.
func (a *Area) Stats() map[string]model.CategoryStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.statsSet {
		return nil
	}
	out := make(map[string]model.CategoryStats, len(a.stats))
	for k, v := range a.stats {
		out[k] = v
	}
	return out
}

// OnCategoryChange subscribes fn to the area's current-category context.
func (a *Area) OnCategoryChange(fn func(key string)) {
	if a.current == nil {
		return
	}
	a.current.Subscribe(fn)
}
