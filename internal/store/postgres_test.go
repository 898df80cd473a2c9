package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crime-cli/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS crime`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MigrateError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE SCHEMA`).WillReturnError(errors.New("permission denied"))

	err := s.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: migrate")
}

func TestPostgresStore_SaveRows(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cols := []string{"area", "year", "month", "counts", "fetched_at"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_stage_crime_monthly_counts"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_crime_monthly_counts"}, cols).WillReturnResult(2)
	mock.ExpectExec(`DELETE FROM`).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO "crime"."monthly_counts" .* ON CONFLICT \("area", "year", "month"\)`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.SaveRows(context.Background(), model.CityKey, []model.Row{
		{Year: 2021, Month: 4, Counts: map[string]int{"robbery": 25}},
		{Year: 2021, Month: 5, Counts: map[string]int{"robbery": 30}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRowsEmpty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.SaveRows(context.Background(), model.CityKey, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadRows(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT year, month, counts FROM crime.monthly_counts WHERE area = \$1`).
		WithArgs("downtown-west").
		WillReturnRows(pgxmock.NewRows([]string{"year", "month", "counts"}).
			AddRow(2021, 4, []byte(`{"robbery":3}`)).
			AddRow(2021, 5, []byte(`{}`)))

	rows, err := s.LoadRows(context.Background(), "downtown-west")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]int{"robbery": 3}, rows[0].Counts)
	assert.Empty(t, rows[1].Counts)
	assert.Equal(t, 5, rows[1].Month)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadRowsBadJSON(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT year, month, counts`).
		WithArgs("city").
		WillReturnRows(pgxmock.NewRows([]string{"year", "month", "counts"}).
			AddRow(2021, 4, []byte(`not json`)))

	_, err := s.LoadRows(context.Background(), "city")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal counts")
}

func TestPostgresStore_CachedAreas(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT DISTINCT area FROM crime.monthly_counts`).
		WillReturnRows(pgxmock.NewRows([]string{"area"}).AddRow("city").AddRow("phillips"))

	areas, err := s.CachedAreas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "phillips"}, areas)
}

func TestPostgresStore_ListNeighborhoods(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT key, name, population_2000, population_2010 FROM crime.neighborhoods`).
		WillReturnRows(pgxmock.NewRows([]string{"key", "name", "population_2000", "population_2010"}).
			AddRow("phillips", "Phillips", 19805.0, 19000.0))

	ns, err := s.ListNeighborhoods(context.Background())
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "Phillips", ns[0].Name)
	assert.InDelta(t, 19805.0, ns[0].Population2000, 1e-9)
}

func TestPostgresStore_StartSync(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO crime.sync_log`).
		WithArgs(pgxmock.AnyArg(), "city", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.StartSync(context.Background(), "city")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteSync(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE crime.sync_log SET status = \$1, completed_at = now\(\), rows_synced = \$2`).
		WithArgs("complete", int64(120), "sync-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteSync(context.Background(), "sync-1", 120))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteSyncNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE crime.sync_log`).
		WithArgs("complete", int64(0), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteSync(context.Background(), "missing", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync not found")
}

func TestPostgresStore_FailSync(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE crime.sync_log SET status = \$1, completed_at = now\(\), error = \$2`).
		WithArgs("failed", "timeout", "sync-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FailSync(context.Background(), "sync-1", "timeout"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LastSuccessNone(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT started_at FROM crime.sync_log`).
		WithArgs("city").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.LastSuccess(context.Background(), "city")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresStore_LastSuccess(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	when := time.Date(2021, 5, 3, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT started_at FROM crime.sync_log`).
		WithArgs("city").
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}).AddRow(when))

	got, err := s.LastSuccess(context.Background(), "city")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, when.Equal(*got))
}

func TestPostgresStore_ListSyncs(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2021, 5, 3, 10, 0, 0, 0, time.UTC)
	done := started.Add(time.Minute)
	msg := "boom"

	mock.ExpectQuery(`SELECT id, area, status, started_at, completed_at, rows_synced, error\s+FROM crime.sync_log`).
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "area", "status", "started_at", "completed_at", "rows_synced", "error"}).
			AddRow("s1", "city", "failed", started, &done, int64(0), &msg))

	entries, err := s.ListSyncs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.SyncStatusFailed, entries[0].Status)
	assert.Equal(t, "boom", entries[0].Error)
	require.NotNil(t, entries[0].CompletedAt)
	assert.True(t, done.Equal(*entries[0].CompletedAt))
}
