package source

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crime-cli/internal/model"
)

// DecodeRows converts datastore row dicts into model rows. year and month are
// required, and so is every category: a missing, null or negative category
// value fails the decode. Category values may be JSON numbers or numeric
// strings. Rows with a month outside 1-12 are skipped.
func DecodeRows(records []map[string]any, categories []string) ([]model.Row, error) {
	rows := make([]model.Row, 0, len(records))
	for i, rec := range records {
		year, ok, err := toInt(rec["year"])
		if err != nil || !ok {
			return nil, eris.Errorf("source: row %d: invalid year %v", i, rec["year"])
		}
		month, ok, err := toInt(rec["month"])
		if err != nil || !ok {
			return nil, eris.Errorf("source: row %d: invalid month %v", i, rec["month"])
		}
		if month < 1 || month > 12 {
			zap.L().Warn("source: skipping row with month out of range",
				zap.Int("year", year), zap.Int("month", month))
			continue
		}

		counts := make(map[string]int, len(categories))
		for _, c := range categories {
			n, ok, err := toInt(rec[c])
			if err != nil {
				return nil, eris.Wrapf(err, "source: row %d: category %s", i, c)
			}
			if !ok {
				return nil, eris.Errorf("source: row %d: missing category %s", i, c)
			}
			if n < 0 {
				return nil, eris.Errorf("source: row %d: negative count %d for category %s", i, n, c)
			}
			counts[c] = n
		}
		rows = append(rows, model.Row{Year: year, Month: month, Counts: counts})
	}
	return rows, nil
}

// toInt reads an integer from a decoded JSON value. ok is false for nil and
// empty strings.
func toInt(v any) (n int, ok bool, err error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case json.Number:
		return parseNumber(string(x))
	case string:
		return parseNumber(x)
	case float64:
		return int(math.Round(x)), true, nil
	case int:
		return x, true, nil
	case int64:
		return int(x), true, nil
	default:
		return 0, false, eris.Errorf("source: unexpected value type %T", v)
	}
}

func parseNumber(s string) (int, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, eris.Wrapf(err, "source: parse %q", s)
	}
	return int(math.Round(f)), true, nil
}
