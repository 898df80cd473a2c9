package source

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crime-cli/internal/model"
)

func TestDecodeRows(t *testing.T) {
	records := []map[string]any{
		{"year": json.Number("2021"), "month": json.Number("5"), "robbery": json.Number("12"), "arson": json.Number("1")},
		{"year": "2021", "month": "4", "robbery": "9", "arson": "0"},
		{"year": 2021.0, "month": 3.0, "robbery": 4.0, "arson": 2},
	}

	rows, err := DecodeRows(records, []string{"robbery", "arson"})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, model.Row{Year: 2021, Month: 5, Counts: map[string]int{"robbery": 12, "arson": 1}}, rows[0])
	assert.Equal(t, map[string]int{"robbery": 9, "arson": 0}, rows[1].Counts)
	assert.Equal(t, 3, rows[2].Month)
	assert.Equal(t, 2, rows[2].Counts["arson"])
}

func TestDecodeRows_CategoryRequired(t *testing.T) {
	tests := []struct {
		name string
		rec  map[string]any
		want string
	}{
		{"absent", map[string]any{"year": 2021, "month": 5, "robbery": 1}, "missing category arson"},
		{"null", map[string]any{"year": 2021, "month": 5, "robbery": 1, "arson": nil}, "missing category arson"},
		{"empty string", map[string]any{"year": 2021, "month": 5, "robbery": 1, "arson": " "}, "missing category arson"},
		{"negative", map[string]any{"year": 2021, "month": 5, "robbery": -3, "arson": 0}, "negative count -3 for category robbery"},
		{"negative string", map[string]any{"year": 2021, "month": 5, "robbery": 0, "arson": "-1"}, "negative count -1 for category arson"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRows([]map[string]any{tt.rec}, []string{"robbery", "arson"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeRows_FloatStrings(t *testing.T) {
	rows, err := DecodeRows([]map[string]any{{"year": 2020, "month": 1, "a": "7.0"}}, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 7, rows[0].Counts["a"])
}

func TestDecodeRows_Errors(t *testing.T) {
	_, err := DecodeRows([]map[string]any{{"month": 1}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid year")

	_, err = DecodeRows([]map[string]any{{"year": 2020, "month": "x"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid month")

	_, err = DecodeRows([]map[string]any{{"year": 2020, "month": 1, "a": "lots"}}, []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category a")

	_, err = DecodeRows([]map[string]any{{"year": 2020, "month": 1, "a": true}}, []string{"a"})
	assert.Error(t, err)
}

func TestDecodeRows_SkipsBadMonths(t *testing.T) {
	rows, err := DecodeRows([]map[string]any{
		{"year": 2020, "month": 13},
		{"year": 2020, "month": 12},
	}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 12, rows[0].Month)
}

type fakeQuerier struct {
	sql     []string
	records []map[string]any
	err     error
}

func (f *fakeQuerier) Query(_ context.Context, sql string) ([]map[string]any, error) {
	f.sql = append(f.sql, sql)
	return f.records, f.err
}

func TestCity_FetchRows(t *testing.T) {
	q := &fakeQuerier{records: []map[string]any{
		{"year": 2021, "month": 5, "robbery": 30},
		{"year": 2021, "month": 4, "robbery": 25},
	}}
	city := NewCity(q, DefaultQueryBuilder(), []string{"robbery"})

	rows, err := city.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	require.Len(t, q.sql, 1)
	assert.Contains(t, q.sql[0], "SUM(robbery) AS robbery")

	_, err = city.FetchPrevious(context.Background(), 2021, 5, 2)
	require.NoError(t, err)
	assert.Contains(t, q.sql[1], "(year < 2021 AND year > 2019)")
}

func TestNeighborhood_FetchRows(t *testing.T) {
	q := &fakeQuerier{records: []map[string]any{
		{"year": 2021, "month": 5, "neighborhood_key": "phillips", "robbery": 3, "notes": ""},
	}}
	n := NewNeighborhood(q, DefaultQueryBuilder(), "phillips", []string{"robbery"})

	rows, err := n.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "phillips", n.Key())
	assert.Equal(t, map[string]int{"robbery": 3}, rows[0].Counts)
	assert.Contains(t, q.sql[0], "neighborhood_key = 'phillips'")
}

func TestNeighborhood_FetchRowsError(t *testing.T) {
	q := &fakeQuerier{err: assert.AnError}
	_, err := NewNeighborhood(q, DefaultQueryBuilder(), "phillips", nil).FetchRows(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source: neighborhood phillips")
}
