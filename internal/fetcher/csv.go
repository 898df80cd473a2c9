// Package fetcher downloads remote files over HTTP or FTP and reads the JSON,
// CSV and XLSX payloads they carry.
package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures ReadTable.
type CSVOptions struct {
	Delimiter rune // default ','
	Comment   rune // 0 disables comment lines
	TrimSpace bool
	// NoHeader treats the first record as data.
	NoHeader bool
}

// Table is a parsed delimited file.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable reads every record from r. Records may have differing field
// counts. Unless opts.NoHeader is set, the first record becomes the header;
// an input without records yields an empty table.
func ReadTable(ctx context.Context, r io.Reader, opts CSVOptions) (*Table, error) {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.Comment = opts.Comment
	cr.FieldsPerRecord = -1

	t := &Table{}
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "csv: context cancelled")
		}
		rec, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, eris.Wrapf(err, "csv: read record %d", line)
		}
		if opts.TrimSpace {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}
		if t.Header == nil && !opts.NoHeader {
			t.Header = rec
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
}
