package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crime-cli/internal/areas"
	"github.com/sells-group/crime-cli/internal/crime"
	"github.com/sells-group/crime-cli/internal/datasync"
	"github.com/sells-group/crime-cli/internal/fetcher"
	"github.com/sells-group/crime-cli/internal/model"
	"github.com/sells-group/crime-cli/internal/resilience"
	"github.com/sells-group/crime-cli/internal/source"
	"github.com/sells-group/crime-cli/internal/store"
)

var errUnknownArea = eris.New("unknown area")

// appEnv holds the store, datastore client and shared area settings used by
// every command.
type appEnv struct {
	Store      store.Store
	Fetcher    *fetcher.HTTPFetcher
	Files      *fetcher.SchemeRouter
	Client     *source.Client
	Query      source.QueryBuilder
	Categories model.CategorySet
	Current    *crime.CategoryContext
	Now        crime.TimeContext
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates config for mode, opens and migrates the store, and
// builds the datastore client. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:         cfg.Source.UserAgent,
		Timeout:           cfg.Source.Timeout(),
		MaxRetries:        cfg.Source.MaxRetries,
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
	})
	client := source.NewClient(cfg.Source.BaseURL,
		source.WithFetcher(f),
		source.WithDataset(cfg.Source.Dataset),
		source.WithRetry(resilience.FromSourceConfig(cfg.Source.MaxRetries, 0)),
	)

	cats := cfg.CategorySet()
	initial := cfg.Area.DefaultCategory
	if initial == "" {
		initial = cats.Keys()[0]
	}

	return &appEnv{
		Store:      st,
		Fetcher:    f,
		Files:      fetcher.NewSchemeRouter(f, fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: cfg.Source.Timeout()})),
		Client:     client,
		Query:      source.QueryBuilder{Table: cfg.Source.Table, Where: cfg.Source.Where},
		Categories: cats,
		Current:    crime.NewCategoryContext(initial),
		Now:        timeContext(cfg.Area.CurrentYear, cfg.Area.CurrentMonth, time.Now()),
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// timeContext returns the configured reporting month, filling unset parts
// from the month before now.
func timeContext(year, month int, now time.Time) crime.TimeContext {
	tc := crime.TimeContextAt(now)
	if year > 0 {
		tc.Year = year
	}
	if month > 0 {
		tc.Month = month
	}
	return tc
}

// neighborhoods returns the neighborhood table from the store, importing the
// configured file the first time.
func (e *appEnv) neighborhoods(ctx context.Context) ([]model.Neighborhood, error) {
	ns, err := e.Store.ListNeighborhoods(ctx)
	if err != nil {
		return nil, err
	}
	if len(ns) > 0 || cfg.Area.NeighborhoodsFile == "" {
		return ns, nil
	}

	ns, err = areas.Load(ctx, e.Files, cfg.Area.NeighborhoodsFile)
	if errors.Is(err, os.ErrNotExist) {
		zap.L().Warn("neighborhoods file not found, only the city is available",
			zap.String("file", cfg.Area.NeighborhoodsFile))
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "load neighborhoods from %s", cfg.Area.NeighborhoodsFile)
	}
	if err := e.Store.SaveNeighborhoods(ctx, ns); err != nil {
		return nil, err
	}
	zap.L().Info("imported neighborhoods", zap.Int("count", len(ns)), zap.String("file", cfg.Area.NeighborhoodsFile))
	return ns, nil
}

// rowFetcher picks the cache or the live datastore for an area key.
func (e *appEnv) rowFetcher(key string, cached bool) crime.RowFetcher {
	if cached {
		return store.NewCached(e.Store, key)
	}
	if key == model.CityKey {
		return source.NewCity(e.Client, e.Query, e.Categories.Keys())
	}
	return source.NewNeighborhood(e.Client, e.Query, key, e.Categories.Keys())
}

// area builds an unfetched area for key ("city" or a neighborhood key).
func (e *appEnv) area(ctx context.Context, key string, cached bool) (*crime.Area, error) {
	ac := crime.AreaConfig{
		Key:        key,
		Categories: e.Categories,
		Now:        e.Now,
		Current:    e.Current,
	}

	if key == model.CityKey {
		ac.Name = cfg.Area.CityName
		ac.Population = crime.EstimatePopulation(cfg.Area.Population2000, cfg.Area.Population2010)
		return crime.NewArea(ac, e.rowFetcher(key, cached)), nil
	}

	ns, err := e.neighborhoods(ctx)
	if err != nil {
		return nil, err
	}
	n, ok := areas.Find(ns, key)
	if !ok {
		return nil, eris.Wrapf(errUnknownArea, "area %q", key)
	}
	ac.Name = n.Name
	ac.Population = crime.EstimatePopulation(n.Population2000, n.Population2010)
	return crime.NewArea(ac, e.rowFetcher(key, cached)), nil
}

// syncTargets lists the city and every neighborhood as refresh targets.
func (e *appEnv) syncTargets(ctx context.Context) ([]datasync.Target, error) {
	ns, err := e.neighborhoods(ctx)
	if err != nil {
		return nil, err
	}
	targets := make([]datasync.Target, 0, len(ns)+1)
	targets = append(targets, datasync.Target{Area: model.CityKey, Fetcher: e.rowFetcher(model.CityKey, false)})
	for _, n := range ns {
		targets = append(targets, datasync.Target{Area: n.Key, Fetcher: e.rowFetcher(n.Key, false)})
	}
	return targets, nil
}
