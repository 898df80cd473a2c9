package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crime-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "crime.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_SaveAndLoadRows(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	n, err := s.SaveRows(ctx, "city", []model.Row{
		{Year: 2021, Month: 5, Counts: map[string]int{"robbery": 30, "burglary": 0}},
		{Year: 2021, Month: 4, Counts: map[string]int{"robbery": 25}},
		{Year: 2021, Month: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	rows, err := s.LoadRows(ctx, "city")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Loaded in chronological order.
	assert.Equal(t, 3, rows[0].Month)
	assert.Empty(t, rows[0].Counts)
	assert.Equal(t, map[string]int{"robbery": 25}, rows[1].Counts)

	// Zero is kept distinct from absent.
	v, ok := rows[2].Counts["burglary"]
	assert.True(t, ok)
	assert.Zero(t, v)
	_, ok = rows[1].Counts["burglary"]
	assert.False(t, ok)
}

func TestSQLite_SaveRowsReplaces(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.SaveRows(ctx, "city", []model.Row{{Year: 2021, Month: 5, Counts: map[string]int{"robbery": 1}}})
	require.NoError(t, err)
	_, err = s.SaveRows(ctx, "city", []model.Row{{Year: 2021, Month: 5, Counts: map[string]int{"robbery": 7}}})
	require.NoError(t, err)

	rows, err := s.LoadRows(ctx, "city")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7, rows[0].Counts["robbery"])
}

func TestSQLite_CachedAreas(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	areas, err := s.CachedAreas(ctx)
	require.NoError(t, err)
	assert.Empty(t, areas)

	for _, a := range []string{"phillips", "city"} {
		_, err := s.SaveRows(ctx, a, []model.Row{{Year: 2021, Month: 1, Counts: map[string]int{"x": 1}}})
		require.NoError(t, err)
	}

	areas, err = s.CachedAreas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "phillips"}, areas)
}

func TestSQLite_Neighborhoods(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveNeighborhoods(ctx, []model.Neighborhood{
		{Key: "phillips", Name: "Phillips", Population2000: 19805, Population2010: 19000},
		{Key: "armatage", Name: "Armatage", Population2000: 5000, Population2010: 4900},
	}))
	require.NoError(t, s.SaveNeighborhoods(ctx, []model.Neighborhood{
		{Key: "phillips", Name: "East Phillips", Population2000: 19805, Population2010: 19100},
	}))

	ns, err := s.ListNeighborhoods(ctx)
	require.NoError(t, err)
	require.Len(t, ns, 2)
	assert.Equal(t, "Armatage", ns[0].Name)
	assert.Equal(t, "East Phillips", ns[1].Name)
	assert.InDelta(t, 19100.0, ns[1].Population2010, 1e-9)
}

func TestSQLite_SyncLog(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	last, err := s.LastSuccess(ctx, "city")
	require.NoError(t, err)
	assert.Nil(t, last)

	ok, err := s.StartSync(ctx, "city")
	require.NoError(t, err)
	require.NoError(t, s.CompleteSync(ctx, ok, 42))

	bad, err := s.StartSync(ctx, "phillips")
	require.NoError(t, err)
	require.NoError(t, s.FailSync(ctx, bad, "datastore error"))

	last, err = s.LastSuccess(ctx, "city")
	require.NoError(t, err)
	assert.NotNil(t, last)

	last, err = s.LastSuccess(ctx, "phillips")
	require.NoError(t, err)
	assert.Nil(t, last)

	entries, err := s.ListSyncs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byArea := map[string]model.SyncEntry{}
	for _, e := range entries {
		byArea[e.Area] = e
	}
	assert.Equal(t, model.SyncStatusComplete, byArea["city"].Status)
	assert.Equal(t, int64(42), byArea["city"].RowsSynced)
	assert.NotNil(t, byArea["city"].CompletedAt)
	assert.Equal(t, model.SyncStatusFailed, byArea["phillips"].Status)
	assert.Equal(t, "datastore error", byArea["phillips"].Error)
}

func TestSQLite_CompleteUnknownSync(t *testing.T) {
	s := newTestSQLite(t)

	err := s.CompleteSync(context.Background(), "nope", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync not found: nope")
}
