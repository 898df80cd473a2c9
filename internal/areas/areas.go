// Package areas loads the neighborhood table (key, name and the 2000 and
// 2010 census populations) from CSV or XLSX.
package areas

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crime-cli/internal/fetcher"
	"github.com/sells-group/crime-cli/internal/model"
)

var requiredColumns = []string{"key", "name", "population_2000", "population_2010"}

// Load reads the neighborhood table at location, a local path or an
// http(s) or ftp URL fetched with f. Locations ending in .xlsx are read as workbooks;
// anything else is CSV.
func Load(ctx context.Context, f fetcher.Fetcher, location string) ([]model.Neighborhood, error) {
	isXLSX := strings.EqualFold(filepath.Ext(location), ".xlsx")

	if isRemote(location) {
		if f == nil {
			return nil, eris.Errorf("areas: no fetcher for %s", location)
		}
		if isXLSX {
			return loadRemoteXLSX(ctx, f, location)
		}
		body, err := f.Download(ctx, location)
		if err != nil {
			return nil, eris.Wrap(err, "areas: download")
		}
		defer body.Close() //nolint:errcheck
		return ReadCSV(ctx, body)
	}

	if isXLSX {
		return ReadXLSX(location)
	}

	file, err := os.Open(location)
	if err != nil {
		return nil, eris.Wrap(err, "areas: open")
	}
	defer file.Close() //nolint:errcheck
	return ReadCSV(ctx, file)
}

func isRemote(location string) bool {
	for _, prefix := range []string{"http://", "https://", "ftp://"} {
		if strings.HasPrefix(location, prefix) {
			return true
		}
	}
	return false
}

// loadRemoteXLSX downloads a workbook to a temporary file and reads it.
func loadRemoteXLSX(ctx context.Context, f fetcher.Fetcher, location string) ([]model.Neighborhood, error) {
	dir, err := os.MkdirTemp("", "crime-areas-*")
	if err != nil {
		return nil, eris.Wrap(err, "areas: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	path := filepath.Join(dir, "neighborhoods.xlsx")
	if _, err := f.DownloadToFile(ctx, location, path); err != nil {
		return nil, eris.Wrap(err, "areas: download")
	}
	return ReadXLSX(path)
}

// ReadCSV parses a neighborhood CSV with a header row. Columns may appear in
// any order; extra columns are ignored.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.Neighborhood, error) {
	t, err := fetcher.ReadTable(ctx, r, fetcher.CSVOptions{Comment: '#', TrimSpace: true})
	if err != nil {
		return nil, eris.Wrap(err, "areas: read csv")
	}
	if t.Header == nil {
		return nil, eris.New("areas: empty csv")
	}
	return parse(t.Header, t.Rows)
}

// ReadXLSX parses the first sheet of a workbook whose first row is the
// header.
func ReadXLSX(path string) ([]model.Neighborhood, error) {
	t, err := fetcher.ReadSheet(path, fetcher.SheetOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "areas: read xlsx")
	}
	if t.Header == nil {
		return nil, eris.New("areas: empty workbook")
	}
	return parse(t.Header, t.Rows)
}

func parse(header []string, records [][]string) ([]model.Neighborhood, error) {
	log := zap.L().With(zap.String("component", "areas"))

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, eris.Errorf("areas: missing column %q", name)
		}
	}

	cell := func(rec []string, name string) string {
		i := col[name]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	seen := make(map[string]bool, len(records))
	out := make([]model.Neighborhood, 0, len(records))
	for n, rec := range records {
		key := cell(rec, "key")
		if key == "" {
			log.Warn("skipping row without key", zap.Int("row", n+2))
			continue
		}
		if seen[key] {
			return nil, eris.Errorf("areas: duplicate key %q", key)
		}
		seen[key] = true

		p2000, err := parsePopulation(cell(rec, "population_2000"))
		if err != nil {
			return nil, eris.Wrapf(err, "areas: %s population_2000", key)
		}
		p2010, err := parsePopulation(cell(rec, "population_2010"))
		if err != nil {
			return nil, eris.Wrapf(err, "areas: %s population_2010", key)
		}

		name := cell(rec, "name")
		if name == "" {
			name = key
		}
		out = append(out, model.Neighborhood{Key: key, Name: name, Population2000: p2000, Population2010: p2010})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// parsePopulation accepts plain or thousands-separated numbers. A blank cell
// is zero, which later reads as a missing population.
func parsePopulation(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse %q", s)
	}
	if v < 0 {
		return 0, eris.Errorf("negative population %q", s)
	}
	return v, nil
}

// Find returns the neighborhood with key.
func Find(ns []model.Neighborhood, key string) (model.Neighborhood, bool) {
	for _, n := range ns {
		if n.Key == key {
			return n, true
		}
	}
	return model.Neighborhood{}, false
}
