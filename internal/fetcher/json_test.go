package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecords_RowDicts(t *testing.T) {
	input := `[{"year":2021,"month":"5","robbery":12},{"year":2021,"month":4,"robbery":"9"}]`

	rows, err := DecodeRecords[map[string]any](context.Background(), strings.NewReader(input), nil)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, json.Number("2021"), rows[0]["year"])
	assert.Equal(t, "5", rows[0]["month"])
	assert.Equal(t, "9", rows[1]["robbery"])
}

func TestDecodeRecords_Typed(t *testing.T) {
	type rec struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	}

	got, err := DecodeRecords[rec](context.Background(), strings.NewReader(`  [{"key":"a","name":"A"},{"key":"b","name":"B"}]`), nil)
	require.NoError(t, err)
	assert.Equal(t, []rec{{"a", "A"}, {"b", "B"}}, got)

	got, err = DecodeRecords[rec](context.Background(), strings.NewReader(`[]`), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = DecodeRecords[rec](context.Background(), strings.NewReader("\n"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeRecords_ObjectPayload(t *testing.T) {
	var env struct {
		Error string `json:"error"`
	}
	_, err := DecodeRecords[map[string]any](context.Background(), strings.NewReader(` {"error":"no such table"}`), &env)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrObjectPayload))
	assert.Equal(t, "no such table", env.Error)

	_, err = DecodeRecords[map[string]any](context.Background(), strings.NewReader(`{"error":"x"}`), nil)
	assert.True(t, errors.Is(err, ErrObjectPayload))
}

func TestDecodeRecords_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"scalar", `42`, "expected '['"},
		{"truncated", `[{"a":1},{"a":`, "decode element 1"},
		{"bad object", `{"error":`, "decode object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env map[string]any
			_, err := DecodeRecords[map[string]any](context.Background(), strings.NewReader(tt.input), &env)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeRecords_ContextCancellation(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("[")
	for i := range 5000 {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"a":1}`)
	}
	sb.WriteString("]")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DecodeRecords[map[string]any](ctx, strings.NewReader(sb.String()), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}
