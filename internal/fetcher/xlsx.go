package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SheetOptions configures ReadSheet.
type SheetOptions struct {
	// Sheet names the sheet to read; empty means the first one.
	Sheet    string
	NoHeader bool
}

// ReadSheet reads one sheet of the workbook at path into a Table. Rows whose
// cells are all blank are dropped before the header is taken.
func ReadSheet(path string, opts SheetOptions) (*Table, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	var sheet *xlsx.Sheet
	switch {
	case opts.Sheet != "":
		s, ok := wb.Sheet[opts.Sheet]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.Sheet)
		}
		sheet = s
	case len(wb.Sheets) > 0:
		sheet = wb.Sheets[0]
	default:
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	t := &Table{}
	for _, row := range sheet.Rows {
		rec := make([]string, len(row.Cells))
		empty := true
		for i, c := range row.Cells {
			rec[i] = c.String()
			if strings.TrimSpace(rec[i]) != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		if t.Header == nil && !opts.NoHeader {
			t.Header = rec
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}
