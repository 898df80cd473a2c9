package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/crime-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS monthly_counts (
	area       TEXT NOT NULL,
	year       INTEGER NOT NULL,
	month      INTEGER NOT NULL,
	counts     TEXT NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (area, year, month)
);

CREATE TABLE IF NOT EXISTS neighborhoods (
	key             TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	population_2000 REAL NOT NULL DEFAULT 0,
	population_2010 REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sync_log (
	id           TEXT PRIMARY KEY,
	area         TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   DATETIME NOT NULL,
	completed_at DATETIME,
	rows_synced  INTEGER NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_log_area_status ON sync_log(area, status, started_at);
`

// Migrate creates the cache tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRows(ctx context.Context, area string, rows []model.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin save rows")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO monthly_counts (area, year, month, counts, fetched_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (area, year, month) DO UPDATE SET counts = excluded.counts, fetched_at = excluded.fetched_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare save rows")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	var n int64
	for _, r := range rows {
		counts, err := encodeCounts(r.Counts)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, area, r.Year, r.Month, string(counts), now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: save %s %04d-%02d", area, r.Year, r.Month)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit save rows")
	}
	return n, nil
}

func (s *SQLiteStore) LoadRows(ctx context.Context, area string) ([]model.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT year, month, counts FROM monthly_counts WHERE area = ? ORDER BY year, month`, area)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load rows %s", area)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Row
	for rows.Next() {
		var r model.Row
		var counts string
		if err := rows.Scan(&r.Year, &r.Month, &counts); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		if r.Counts, err = decodeCounts([]byte(counts)); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate rows")
}

func (s *SQLiteStore) CachedAreas(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT area FROM monthly_counts ORDER BY area`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: cached areas")
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan area")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate areas")
}

func (s *SQLiteStore) SaveNeighborhoods(ctx context.Context, ns []model.Neighborhood) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save neighborhoods")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, n := range ns {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO neighborhoods (key, name, population_2000, population_2010) VALUES (?, ?, ?, ?)
			 ON CONFLICT (key) DO UPDATE SET name = excluded.name,
			   population_2000 = excluded.population_2000, population_2010 = excluded.population_2010`,
			n.Key, n.Name, n.Population2000, n.Population2010)
		if err != nil {
			return eris.Wrapf(err, "sqlite: save neighborhood %s", n.Key)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit neighborhoods")
}

func (s *SQLiteStore) ListNeighborhoods(ctx context.Context) ([]model.Neighborhood, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, name, population_2000, population_2010 FROM neighborhoods ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list neighborhoods")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Neighborhood
	for rows.Next() {
		var n model.Neighborhood
		if err := rows.Scan(&n.Key, &n.Name, &n.Population2000, &n.Population2010); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan neighborhood")
		}
		out = append(out, n)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate neighborhoods")
}

func (s *SQLiteStore) StartSync(ctx context.Context, area string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_log (id, area, status, started_at) VALUES (?, ?, ?, ?)`,
		id, area, string(model.SyncStatusRunning), time.Now().UTC())
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: start sync for %s", area)
	}
	return id, nil
}

func (s *SQLiteStore) CompleteSync(ctx context.Context, id string, rowsSynced int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_log SET status = ?, completed_at = ?, rows_synced = ? WHERE id = ?`,
		string(model.SyncStatusComplete), time.Now().UTC(), rowsSynced, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete sync %s", id)
	}
	return checkRowsAffected(res, "sync", id)
}

func (s *SQLiteStore) FailSync(ctx context.Context, id string, msg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_log SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(model.SyncStatusFailed), time.Now().UTC(), msg, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail sync %s", id)
	}
	return checkRowsAffected(res, "sync", id)
}

func (s *SQLiteStore) LastSuccess(ctx context.Context, area string) (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at FROM sync_log WHERE area = ? AND status = ? ORDER BY started_at DESC LIMIT 1`,
		area, string(model.SyncStatusComplete)).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: last success for %s", area)
	}
	return &t, nil
}

func (s *SQLiteStore) ListSyncs(ctx context.Context, limit int) ([]model.SyncEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, area, status, started_at, completed_at, rows_synced, error
		 FROM sync_log ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list syncs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.SyncEntry
	for rows.Next() {
		var e model.SyncEntry
		var status string
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.Area, &status, &e.StartedAt, &completedAt, &e.RowsSynced, &errMsg); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sync")
		}
		e.Status = model.SyncStatus(status)
		if completedAt.Valid {
			t := completedAt.Time
			e.CompletedAt = &t
		}
		e.Error = errMsg.String
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate syncs")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
