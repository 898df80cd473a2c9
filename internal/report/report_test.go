package report

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/crime-cli/internal/crime"
	"github.com/sells-group/crime-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type rowsFetcher []model.Row

func (r rowsFetcher) FetchRows(context.Context) ([]model.Row, error) { return r, nil }

var testCats = model.NewCategorySet([]model.Category{
	{Key: "robbery", Title: "Robbery"},
	{Key: "arson", Title: "Arson"},
})

// fetchedArea has all of 2020 plus January and February 2021, with
// February 2021 as the current month.
func fetchedArea(t *testing.T) *crime.Area {
	t.Helper()
	var rows []model.Row
	for m := 1; m <= 12; m++ {
		rows = append(rows, model.Row{Year: 2020, Month: m, Counts: map[string]int{"robbery": 1000, "arson": 1}})
	}
	rows = append(rows,
		model.Row{Year: 2021, Month: 1, Counts: map[string]int{"robbery": 1500}},
		model.Row{Year: 2021, Month: 2, Counts: map[string]int{"robbery": 3000}},
	)

	a := crime.NewArea(crime.AreaConfig{
		Key:        model.CityKey,
		Name:       "Minneapolis",
		Categories: testCats,
		Population: crime.EstimatePopulation(1000, 2000),
		Now:        crime.TimeContext{Year: 2021, Month: 2},
		Current:    crime.NewCategoryContext("robbery"),
	}, rowsFetcher(rows))
	require.NoError(t, a.FetchData(context.Background()))
	return a
}

func TestBuild(t *testing.T) {
	r := Build(fetchedArea(t), testCats, Options{})

	assert.Equal(t, "city", r.Area)
	assert.Equal(t, 2021, r.Year)
	assert.Equal(t, 2, r.Month)
	require.Len(t, r.Categories, 2)

	rob := r.Categories[0]
	assert.Equal(t, "Robbery", rob.Title)
	require.NotNil(t, rob.IncidentsMonth)
	assert.Equal(t, 3000, *rob.IncidentsMonth)
	assert.InDelta(t, 1.0, *rob.ChangeLastMonth, 1e-9)
	assert.Len(t, rob.TrailingYear, 12)
	require.Len(t, rob.YearToDate, 2)
	assert.InDelta(t, 4500.0, *rob.YearToDate[1].Value, 1e-9)
	require.Len(t, rob.AnnualRates, 1)

	arson := r.Categories[1]
	assert.Nil(t, arson.IncidentsMonth)
	assert.Nil(t, arson.ChangeLastMonth)
}

func TestBuild_Options(t *testing.T) {
	r := Build(fetchedArea(t), testCats, Options{Categories: []string{"arson", "unknown"}, SummaryOnly: true})
	require.Len(t, r.Categories, 1)
	assert.Equal(t, "arson", r.Categories[0].Key)
	assert.Nil(t, r.Categories[0].TrailingYear)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, Build(fetchedArea(t), testCats, Options{SummaryOnly: true})))

	out := buf.String()
	assert.Contains(t, out, "Minneapolis, February 2021")
	assert.Contains(t, out, "3,000")
	assert.Contains(t, out, "+100.0%")
	assert.Contains(t, out, "Arson")
	assert.Contains(t, out, " -")
}

func TestWriteCategorySeries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCategorySeries(&buf, Build(fetchedArea(t), testCats, Options{})))

	out := buf.String()
	assert.Contains(t, out, "== Robbery ==")
	assert.Contains(t, out, "Year to date (Feb)")
	assert.Contains(t, out, "4,500")
	assert.Contains(t, out, "== Arson ==")
}

func TestWriteSeries_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSeries(&buf, "Annual", nil))
	assert.Equal(t, "Annual\n  (no data)\n", buf.String())
}

func TestWriteSeries_Values(t *testing.T) {
	var buf bytes.Buffer
	points := []model.Point{model.NewPoint("Jan", 1234), model.MissingPoint("Feb"), model.NewPoint("2020", 3.14159)}
	require.NoError(t, WriteSeries(&buf, "S", points))

	out := buf.String()
	assert.Contains(t, out, "1,234")
	assert.Regexp(t, `Feb\s+-`, out)
	assert.Contains(t, out, "3.14")
}

func TestWriteSyncLog(t *testing.T) {
	started := time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC)
	done := started.Add(90 * time.Second)

	var buf bytes.Buffer
	require.NoError(t, WriteSyncLog(&buf, []model.SyncEntry{
		{ID: "0123456789abcdef", Area: "city", Status: model.SyncStatusComplete, StartedAt: started, CompletedAt: &done, RowsSynced: 12345},
		{ID: "x", Area: "phillips", Status: model.SyncStatusRunning, StartedAt: started},
	}))

	out := buf.String()
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "12,345")
	assert.Contains(t, out, "2021-03-01 09:00")
}

func TestWriteNeighborhoods(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNeighborhoods(&buf, []model.Neighborhood{
		{Key: "phillips", Name: "Phillips", Population2000: 19805, Population2010: 19417},
	}))
	assert.Contains(t, buf.String(), "19,805")
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, Build(fetchedArea(t), testCats, Options{SummaryOnly: true})))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "city", decoded["area"])

	cats, ok := decoded["categories"].([]any)
	require.True(t, ok)
	first, ok := cats[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3000, first["incidents_month"])
	assert.Contains(t, buf.String(), "change_month_last_year: null")
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteXLSX(path, Build(fetchedArea(t), testCats, Options{})))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 4)

	summary := f.Sheet["Summary"]
	require.NotNil(t, summary)
	require.Len(t, summary.Rows, 3)
	assert.Equal(t, "robbery", summary.Rows[1].Cells[0].String())
	assert.Equal(t, "3000", summary.Rows[1].Cells[2].String())

	trailing := f.Sheet["Trailing"]
	require.NotNil(t, trailing)
	// Header plus twelve months for each of the two categories.
	assert.Len(t, trailing.Rows, 25)
}
