package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/crime-cli/internal/model"
)

// WriteXLSX saves r as a workbook with a summary sheet and one sheet per
// series kind. Missing values are left as empty cells.
func WriteXLSX(path string, r *AreaReport) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	addStrings(summary, "category", "title", "incidents_month", "rate_month", "change_last_month", "change_month_last_year")
	for _, c := range r.Categories {
		row := summary.AddRow()
		row.AddCell().SetString(c.Key)
		row.AddCell().SetString(c.Title)
		if c.IncidentsMonth != nil {
			row.AddCell().SetInt(*c.IncidentsMonth)
		} else {
			row.AddCell()
		}
		addFloat(row, c.RateMonth)
		addFloat(row, c.ChangeLastMonth)
		addFloat(row, c.ChangeMonthLastYear)
	}

	series := []struct {
		sheet string
		pick  func(CategoryReport) []model.Point
	}{
		{"Trailing", func(c CategoryReport) []model.Point { return c.TrailingYear }},
		{"Year to date", func(c CategoryReport) []model.Point { return c.YearToDate }},
		{"Annual rates", func(c CategoryReport) []model.Point { return c.AnnualRates }},
	}
	for _, s := range series {
		sheet, err := f.AddSheet(s.sheet)
		if err != nil {
			return eris.Wrapf(err, "report: add sheet %s", s.sheet)
		}
		addStrings(sheet, "category", "label", "value")
		for _, c := range r.Categories {
			for _, p := range s.pick(c) {
				row := sheet.AddRow()
				row.AddCell().SetString(c.Key)
				row.AddCell().SetString(p.Label)
				addFloat(row, p.Value)
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "report: save xlsx")
	}
	return nil
}

func addStrings(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addFloat(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v != nil {
		cell.SetFloat(*v)
	}
}
