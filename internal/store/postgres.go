package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crime-cli/internal/db"
	"github.com/sells-group/crime-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var (
	countsMerge = db.Merge{
		Table:   "crime.monthly_counts",
		Columns: []string{"area", "year", "month", "counts", "fetched_at"},
		Keys:    []string{"area", "year", "month"},
	}
	neighborhoodsMerge = db.Merge{
		Table:   "crime.neighborhoods",
		Columns: []string{"key", "name", "population_2000", "population_2010"},
		Keys:    []string{"key"},
	}
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns, minConns := int32(4), int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS crime;

CREATE TABLE IF NOT EXISTS crime.monthly_counts (
	area       TEXT NOT NULL,
	year       INTEGER NOT NULL,
	month      INTEGER NOT NULL,
	counts     JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (area, year, month)
);

CREATE TABLE IF NOT EXISTS crime.neighborhoods (
	key             TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	population_2000 DOUBLE PRECISION NOT NULL DEFAULT 0,
	population_2010 DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS crime.sync_log (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	area         TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	rows_synced  BIGINT NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_log_area_status ON crime.sync_log(area, status, started_at DESC);
`

// Migrate creates the crime schema and its tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRows(ctx context.Context, area string, rows []model.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		counts, err := encodeCounts(r.Counts)
		if err != nil {
			return 0, err
		}
		data = append(data, []any{area, r.Year, r.Month, counts, now})
	}

	n, err := countsMerge.Apply(ctx, s.pool, data)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: save rows %s", area)
	}
	return n, nil
}

func (s *PostgresStore) LoadRows(ctx context.Context, area string) ([]model.Row, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT year, month, counts FROM crime.monthly_counts WHERE area = $1 ORDER BY year, month`, area)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load rows %s", area)
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		var r model.Row
		var counts []byte
		if err := rows.Scan(&r.Year, &r.Month, &counts); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		if r.Counts, err = decodeCounts(counts); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate rows")
}

func (s *PostgresStore) CachedAreas(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT area FROM crime.monthly_counts ORDER BY area`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: cached areas")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, eris.Wrap(err, "postgres: scan area")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate areas")
}

func (s *PostgresStore) SaveNeighborhoods(ctx context.Context, ns []model.Neighborhood) error {
	if len(ns) == 0 {
		return nil
	}
	data := make([][]any, 0, len(ns))
	for _, n := range ns {
		data = append(data, []any{n.Key, n.Name, n.Population2000, n.Population2010})
	}
	_, err := neighborhoodsMerge.Apply(ctx, s.pool, data)
	return eris.Wrap(err, "postgres: save neighborhoods")
}

func (s *PostgresStore) ListNeighborhoods(ctx context.Context) ([]model.Neighborhood, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, name, population_2000, population_2010 FROM crime.neighborhoods ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list neighborhoods")
	}
	defer rows.Close()

	var out []model.Neighborhood
	for rows.Next() {
		var n model.Neighborhood
		if err := rows.Scan(&n.Key, &n.Name, &n.Population2000, &n.Population2010); err != nil {
			return nil, eris.Wrap(err, "postgres: scan neighborhood")
		}
		out = append(out, n)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate neighborhoods")
}

func (s *PostgresStore) StartSync(ctx context.Context, area string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO crime.sync_log (id, area, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, area, string(model.SyncStatusRunning), time.Now().UTC())
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start sync for %s", area)
	}
	return id, nil
}

func (s *PostgresStore) CompleteSync(ctx context.Context, id string, rowsSynced int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE crime.sync_log SET status = $1, completed_at = now(), rows_synced = $2 WHERE id = $3`,
		string(model.SyncStatusComplete), rowsSynced, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete sync %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("sync not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) FailSync(ctx context.Context, id string, msg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE crime.sync_log SET status = $1, completed_at = now(), error = $2 WHERE id = $3`,
		string(model.SyncStatusFailed), msg, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail sync %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("sync not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) LastSuccess(ctx context.Context, area string) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT started_at FROM crime.sync_log
		 WHERE area = $1 AND status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`, area).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: last success for %s", area)
	}
	return &t, nil
}

func (s *PostgresStore) ListSyncs(ctx context.Context, limit int) ([]model.SyncEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, area, status, started_at, completed_at, rows_synced, error
		 FROM crime.sync_log ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list syncs")
	}
	defer rows.Close()

	var out []model.SyncEntry
	for rows.Next() {
		var e model.SyncEntry
		var status string
		var errMsg *string
		if err := rows.Scan(&e.ID, &e.Area, &status, &e.StartedAt, &e.CompletedAt, &e.RowsSynced, &errMsg); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sync")
		}
		e.Status = model.SyncStatus(status)
		if errMsg != nil {
			e.Error = *errMsg
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate syncs")
}
