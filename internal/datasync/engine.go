// Package datasync refreshes the local row cache from the remote datastore
// and records every refresh in the sync log.
package datasync

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crime-cli/internal/crime"
	"github.com/sells-group/crime-cli/internal/model"
)

// Cache is the part of store.Store the engine writes to.
type Cache interface {
	SaveRows(ctx context.Context, area string, rows []model.Row) (int64, error)
	StartSync(ctx context.Context, area string) (string, error)
	CompleteSync(ctx context.Context, id string, rowsSynced int64) error
	FailSync(ctx context.Context, id string, msg string) error
	LastSuccess(ctx context.Context, area string) (*time.Time, error)
}

// Target pairs an area key with the fetcher that produces its rows.
type Target struct {
	Area    string
	Fetcher crime.RowFetcher
}

// RunOpts configures which areas to refresh and how.
type RunOpts struct {
	Areas []string // restrict to these area keys
	Force bool     // ignore the monthly schedule
}

// Result counts the outcome of a run.
type Result struct {
	Synced  int   `json:"synced" yaml:"synced"`
	Skipped int   `json:"skipped" yaml:"skipped"`
	Failed  int   `json:"failed" yaml:"failed"`
	Rows    int64 `json:"rows" yaml:"rows"`
}

// Engine orchestrates area refresh runs.
type Engine struct {
	cache       Cache
	targets     []Target
	concurrency int
	now         func() time.Time
}

// NewEngine creates a sync engine over targets. Concurrency below 1 means 1.
func NewEngine(cache Cache, targets []Target, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		cache:       cache,
		targets:     targets,
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) selectTargets(areas []string) ([]Target, error) {
	if len(areas) == 0 {
		return e.targets, nil
	}
	byKey := make(map[string]Target, len(e.targets))
	for _, t := range e.targets {
		byKey[t.Area] = t
	}
	out := make([]Target, 0, len(areas))
	for _, a := range areas {
		t, ok := byKey[a]
		if !ok {
			return nil, eris.Errorf("datasync: unknown area %q", a)
		}
		out = append(out, t)
	}
	return out, nil
}

// Run refreshes every selected area that is due. A failing area is recorded
// in the sync log and counted; it does not stop the others. Only sync log
// errors and cancellation abort the run.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*Result, error) {
	log := zap.L().With(zap.String("component", "datasync.engine"))
	now := e.now()

	targets, err := e.selectTargets(opts.Areas)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		log.Info("no areas selected")
		return &Result{}, nil
	}
	log.Info("selected areas", zap.Int("count", len(targets)), zap.Int("concurrency", e.concurrency))

	var (
		mu  sync.Mutex
		res Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, t := range targets {
		g.Go(func() error {
			status, rows, err := e.syncOne(gctx, t, now, opts.Force)
			if err != nil {
				return err
			}
			areaSyncsTotal.WithLabelValues(status).Inc()

			mu.Lock()
			defer mu.Unlock()
			switch status {
			case "synced":
				res.Synced++
				res.Rows += rows
			case "skipped":
				res.Skipped++
			default:
				res.Failed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("sync run complete",
		zap.Int("synced", res.Synced),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Int64("rows", res.Rows),
	)
	return &res, nil
}

func (e *Engine) syncOne(ctx context.Context, t Target, now time.Time, force bool) (string, int64, error) {
	log := zap.L().With(zap.String("component", "datasync.engine"), zap.String("area", t.Area))

	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	if !force {
		last, err := e.cache.LastSuccess(ctx, t.Area)
		if err != nil {
			return "", 0, eris.Wrapf(err, "datasync: check last sync for %s", t.Area)
		}
		if !MonthlySchedule(now, last) {
			log.Debug("skipping (not due)")
			return "skipped", 0, nil
		}
	}

	syncID, err := e.cache.StartSync(ctx, t.Area)
	if err != nil {
		return "", 0, eris.Wrapf(err, "datasync: start sync log for %s", t.Area)
	}

	start := time.Now()
	n, err := e.fetchAndSave(ctx, t)
	elapsed := time.Since(start)
	areaSyncDuration.Observe(elapsed.Seconds())

	if err != nil {
		log.Error("sync failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		if logErr := e.cache.FailSync(context.WithoutCancel(ctx), syncID, err.Error()); logErr != nil {
			log.Error("failed to record sync failure", zap.Error(logErr))
		}
		return "failed", 0, nil
	}

	if err := e.cache.CompleteSync(ctx, syncID, n); err != nil {
		log.Error("failed to record sync completion", zap.Error(err))
	}
	rowsCached.Add(float64(n))
	log.Info("sync complete", zap.Int64("rows", n), zap.Duration("elapsed", elapsed))
	return "synced", n, nil
}

func (e *Engine) fetchAndSave(ctx context.Context, t Target) (int64, error) {
	rows, err := t.Fetcher.FetchRows(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "datasync: fetch %s", t.Area)
	}
	n, err := e.cache.SaveRows(ctx, t.Area, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "datasync: save %s", t.Area)
	}
	return n, nil
}
