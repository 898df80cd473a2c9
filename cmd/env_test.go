package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crime-cli/internal/config"
	"github.com/sells-group/crime-cli/internal/crime"
	"github.com/sells-group/crime-cli/internal/model"
	"github.com/sells-group/crime-cli/internal/store"
)

func newEmptyEnv(t *testing.T, neighborhoodsFile string) *appEnv {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "crime.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	cfg = &config.Config{Area: config.AreaConfig{
		CityName:          "Minneapolis",
		Population2000:    382618,
		Population2010:    382578,
		NeighborhoodsFile: neighborhoodsFile,
	}}
	return &appEnv{
		Store:      st,
		Categories: model.NewCategorySet([]model.Category{{Key: "robbery", Title: "Robbery"}}),
		Current:    crime.NewCategoryContext("robbery"),
		Now:        crime.TimeContext{Year: 2021, Month: 2},
	}
}

func TestNeighborhoods_ImportsFileOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neighborhoods.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"key,name,population_2000,population_2010\n"+
			"phillips,Phillips,19805,19000\n"+
			"armatage,Armatage,\"5,000\",4900\n"), 0o644))

	env := newEmptyEnv(t, path)
	ctx := context.Background()

	ns, err := env.neighborhoods(ctx)
	require.NoError(t, err)
	require.Len(t, ns, 2)
	assert.Equal(t, "Armatage", ns[0].Name)

	// Later calls read the store, not the file.
	require.NoError(t, os.Remove(path))
	ns, err = env.neighborhoods(ctx)
	require.NoError(t, err)
	assert.Len(t, ns, 2)
}

func TestNeighborhoods_MissingFile(t *testing.T) {
	env := newEmptyEnv(t, filepath.Join(t.TempDir(), "missing.csv"))

	ns, err := env.neighborhoods(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ns)
}

func TestArea_City(t *testing.T) {
	env := newEmptyEnv(t, "")

	a, err := env.area(context.Background(), model.CityKey, true)
	require.NoError(t, err)
	assert.Equal(t, model.CityKey, a.Key())
	assert.Equal(t, "Minneapolis", a.Name())
	assert.InDelta(t, 382618.0, a.Engine().Population().For(2000), 1e-6)
	assert.False(t, a.IsFetched())
}

func TestArea_Unknown(t *testing.T) {
	env := newEmptyEnv(t, "")

	_, err := env.area(context.Background(), "nowhere", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errUnknownArea))
	assert.Contains(t, err.Error(), "nowhere")
}

func TestSyncTargets(t *testing.T) {
	env := newEmptyEnv(t, "")
	require.NoError(t, env.Store.SaveNeighborhoods(context.Background(), []model.Neighborhood{
		{Key: "phillips", Name: "Phillips"},
		{Key: "armatage", Name: "Armatage"},
	}))

	targets, err := env.syncTargets(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.Equal(t, model.CityKey, targets[0].Area)
	assert.Equal(t, "armatage", targets[1].Area)
	assert.Equal(t, "phillips", targets[2].Area)
}

func TestInitStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	cfg = &config.Config{Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: path}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)

	cfg = &config.Config{Store: config.StoreConfig{Driver: "mysql"}}
	_, err = initStore(context.Background())
	assert.ErrorContains(t, err, "unsupported store driver")
}
