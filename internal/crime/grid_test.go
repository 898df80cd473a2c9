package crime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crime-cli/internal/model"
)

func row(year, month int, counts map[string]int) model.Row {
	return model.Row{Year: year, Month: month, Counts: counts}
}

// fullYear returns twelve rows for year, each with the given counts.
func fullYear(year int, counts map[string]int) []model.Row {
	rows := make([]model.Row, 0, 12)
	for m := 1; m <= 12; m++ {
		rows = append(rows, row(year, m, counts))
	}
	return rows
}

func TestGrid_MergeAndGet(t *testing.T) {
	g := NewGrid()
	g.Merge([]model.Row{
		row(2021, 3, map[string]int{"robbery": 4}),
		row(2020, 12, map[string]int{"robbery": 7, "burglary": 0}),
	})

	assert.Equal(t, 2, g.Len())
	n, err := g.Get("robbery", 2021, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = g.Get("burglary", 2020, 12)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestGrid_GetMissing(t *testing.T) {
	g := NewGrid()
	g.Merge([]model.Row{row(2021, 3, map[string]int{"robbery": 4})})

	_, err := g.Get("robbery", 2021, 4)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = g.Get("arson", 2021, 3)
	assert.True(t, errors.Is(err, ErrNoData))
	assert.Contains(t, err.Error(), "arson 2021-03")
}

func TestGrid_MergeReplacesWholeEntry(t *testing.T) {
	g := NewGrid()
	g.Merge([]model.Row{row(2021, 1, map[string]int{"a": 1, "b": 2})})
	g.Merge([]model.Row{row(2021, 1, map[string]int{"a": 9})})

	n, err := g.Get("a", 2021, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	_, err = g.Get("b", 2021, 1)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 1, g.Len())
}

func TestGrid_MergeCopiesCounts(t *testing.T) {
	counts := map[string]int{"a": 1}
	g := NewGrid()
	g.Merge([]model.Row{row(2021, 1, counts)})
	counts["a"] = 100

	n, err := g.Get("a", 2021, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGrid_OrderIsChronological(t *testing.T) {
	g := NewGrid()
	g.Merge([]model.Row{
		row(2021, 2, map[string]int{"a": 1}),
		row(2019, 11, map[string]int{"a": 1}),
		row(2021, 1, map[string]int{"a": 1}),
		row(2020, 5, map[string]int{"a": 1}),
	})

	assert.Equal(t, []int{2019, 2020, 2021}, g.Years())
	assert.Equal(t, []int{1, 2}, g.MonthsIn(2021))

	var seen []YearMonth
	g.Each(func(at YearMonth, _ map[string]int) { seen = append(seen, at) })
	assert.Equal(t, []YearMonth{{2019, 11}, {2020, 5}, {2021, 1}, {2021, 2}}, seen)

	latest, ok := g.Latest()
	require.True(t, ok)
	assert.Equal(t, YearMonth{2021, 2}, latest)
}

func TestGrid_LatestEmpty(t *testing.T) {
	_, ok := NewGrid().Latest()
	assert.False(t, ok)
}

func TestGrid_YearTotalSkipsAbsent(t *testing.T) {
	g := NewGrid()
	g.Merge([]model.Row{
		row(2020, 1, map[string]int{"a": 3}),
		row(2020, 2, map[string]int{"b": 5}),
		row(2020, 6, map[string]int{"a": 4}),
	})

	assert.Equal(t, 7, g.YearTotal("a", 2020))
	assert.Equal(t, 0, g.YearTotal("a", 2019))
	assert.Equal(t, 3, g.MonthCount(2020))
}

func TestGrid_FilterRangeOneYear(t *testing.T) {
	g := NewGrid()
	g.Merge(fullYear(2019, map[string]int{"a": 1}))
	g.Merge(fullYear(2020, map[string]int{"a": 1}))
	g.Merge(fullYear(2021, map[string]int{"a": 1}))

	sub := g.FilterRange(2020, 5, 2021, 5)
	require.Equal(t, 12, sub.Len())

	var got []YearMonth
	sub.Each(func(at YearMonth, _ map[string]int) { got = append(got, at) })
	assert.Equal(t, YearMonth{2020, 6}, got[0])
	assert.Equal(t, YearMonth{2021, 5}, got[11])
	assert.False(t, sub.Has(2020, 5))
	assert.True(t, sub.Has(2021, 5))
}

func TestGrid_FilterRangeMultiYear(t *testing.T) {
	g := NewGrid()
	for y := 2016; y <= 2021; y++ {
		g.Merge(fullYear(y, map[string]int{"a": 1}))
	}

	sub := g.FilterRange(2017, 10, 2020, 2)
	// 2 months of 2017, all of 2018 and 2019, 2 months of 2020.
	assert.Equal(t, 2+12+12+2, sub.Len())
	assert.Equal(t, []int{2017, 2018, 2019, 2020}, sub.Years())
}

func TestGrid_Rows(t *testing.T) {
	g := NewGrid()
	g.Merge([]model.Row{
		row(2021, 2, map[string]int{"a": 2}),
		row(2021, 1, map[string]int{"a": 1}),
	})

	rows := g.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Month)
	rows[0].Counts["a"] = 50

	n, err := g.Get("a", 2021, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
