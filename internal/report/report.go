// Package report turns an area's cached stats and series into text tables,
// YAML documents and XLSX workbooks.
package report

import (
	"github.com/sells-group/crime-cli/internal/crime"
	"github.com/sells-group/crime-cli/internal/model"
)

// AreaReport is the full statistical picture of one area at its current
// month.
type AreaReport struct {
	Area       string           `json:"area" yaml:"area"`
	Name       string           `json:"name" yaml:"name"`
	Year       int              `json:"year" yaml:"year"`
	Month      int              `json:"month" yaml:"month"`
	Categories []CategoryReport `json:"categories" yaml:"categories"`
}

// CategoryReport holds one category's summary and series.
type CategoryReport struct {
	Key                 string `json:"key" yaml:"key"`
	Title               string `json:"title" yaml:"title"`
	model.CategoryStats `json:",inline" yaml:",inline"`

	TrailingYear []model.Point `json:"trailing_year" yaml:"trailing_year"`
	YearToDate   []model.Point `json:"year_to_date" yaml:"year_to_date"`
	AnnualRates  []model.Point `json:"annual_rates" yaml:"annual_rates"`
}

// Options selects what Build includes.
type Options struct {
	// Categories restricts the report to these keys. Empty means all.
	Categories []string
	// TrailingYears is the window of the trailing series. 0 means 1.
	TrailingYears int
	// SummaryOnly leaves the series out.
	SummaryOnly bool
}

// Build assembles a report from a fetched area. Categories the area's
// snapshot does not know are skipped.
func Build(a *crime.Area, cats model.CategorySet, opts Options) *AreaReport {
	eng := a.Engine()
	now := eng.Now()
	stats := a.Stats()

	keys := opts.Categories
	if len(keys) == 0 {
		keys = cats.Keys()
	}

	r := &AreaReport{
		Area:       a.Key(),
		Name:       a.Name(),
		Year:       now.Year,
		Month:      now.Month,
		Categories: make([]CategoryReport, 0, len(keys)),
	}
	for _, key := range keys {
		c, ok := cats.Get(key)
		if !ok {
			continue
		}
		cr := CategoryReport{Key: c.Key, Title: c.Title}
		if s, ok := stats[key]; ok {
			cr.CategoryStats = s
		}
		if !opts.SummaryOnly {
			cr.TrailingYear = eng.TrailingYearSeries(key, opts.TrailingYears)
			cr.YearToDate = eng.YearToDateHistory(key)
			cr.AnnualRates = eng.AnnualRateSeries(key)
		}
		r.Categories = append(r.Categories, cr)
	}
	return r
}
