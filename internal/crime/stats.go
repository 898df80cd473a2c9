package crime

import (
	"strconv"
	"time"

	"github.com/sells-group/crime-cli/internal/model"
)

// zeroChangeBase replaces a zero starting count in MonthChange so that going
// from 0 to 1 incident reads as +100%.
const zeroChangeBase = 0.5

// TimeContext is the "now" an area computes its statistics against.
type TimeContext struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// TimeContextAt returns the month before now, the latest month a monthly
// feed can be expected to have published.
func TimeContextAt(now time.Time) TimeContext {
	y, m := PreviousMonth(now.Year(), int(now.Month()))
	return TimeContext{Year: y, Month: m}
}

// LastMonth returns the month before the context's current month.
func (t TimeContext) LastMonth() (int, int) {
	return PreviousMonth(t.Year, t.Month)
}

// Engine derives counts, rates, changes, and series from a Grid.
//
// Every method accepts an empty category to mean the current category from the
// CategoryContext, and a zero year or month to mean the TimeContext's.
type Engine struct {
	grid    *Grid
	pop     PopulationTable
	now     TimeContext
	cats    model.CategorySet
	current *CategoryContext
}

// NewEngine wires an engine over grid. current may be nil, in which case an
// empty category stays empty and matches nothing.
func NewEngine(grid *Grid, pop PopulationTable, now TimeContext, cats model.CategorySet, current *CategoryContext) *Engine {
	return &Engine{
		grid:    grid,
		pop:     pop,
		now:     now,
		cats:    cats,
		current: current,
	}
}

// Now returns the engine's time context.
func (e *Engine) Now() TimeContext { return e.now }

// Grid returns the grid the engine reads from.
func (e *Engine) Grid() *Grid { return e.grid }

// Population returns the population table used for rates.
func (e *Engine) Population() PopulationTable { return e.pop }

func (e *Engine) category(c string) string {
	if c == "" && e.current != nil {
		return e.current.Current()
	}
	return c
}

func (e *Engine) year(y int) int {
	if y == 0 {
		return e.now.Year
	}
	return y
}

func (e *Engine) month(m int) int {
	if m == 0 {
		return e.now.Month
	}
	return m
}

// MonthlyCount returns the incidents of category in (year, month), or
// ErrNoData.
func (e *Engine) MonthlyCount(category string, year, month int) (int, error) {
	return e.grid.Get(e.category(category), e.year(year), e.month(month))
}

// YearlyCount returns the incidents of category summed over the populated
// months of year.
func (e *Engine) YearlyCount(category string, year int) int {
	return e.grid.YearTotal(e.category(category), e.year(year))
}

// MonthlyRate returns incidents per 1,000 residents for (year, month).
func (e *Engine) MonthlyRate(category string, year, month int) (float64, error) {
	year = e.year(year)
	n, err := e.MonthlyCount(category, year, month)
	if err != nil {
		return 0, err
	}
	return float64(n) / e.pop.thousands(year), nil
}

// YearlyRate returns incidents per 1,000 residents for year.
func (e *Engine) YearlyRate(category string, year int) float64 {
	year = e.year(year)
	return float64(e.YearlyCount(category, year)) / e.pop.thousands(year)
}

// MonthChange returns the relative change from (year1, month1) to
// (year2, month2). A zero starting count is treated as 0.5, so 0 -> 1 is 2.0.
func (e *Engine) MonthChange(category string, year1, month1, year2, month2 int) (float64, error) {
	c1, err := e.MonthlyCount(category, year1, month1)
	if err != nil {
		return 0, err
	}
	c2, err := e.MonthlyCount(category, year2, month2)
	if err != nil {
		return 0, err
	}

	base := float64(c1)
	if c1 == 0 {
		base = zeroChangeBase
	}
	return float64(c2-c1) / base, nil
}

// TrailingYearSeries returns one point per month in the window of the given
// number of years ending at the current month, labeled by month abbreviation.
// years <= 0 means 1. Months lacking the category yield a missing point.
func (e *Engine) TrailingYearSeries(category string, years int) []model.Point {
	if years <= 0 {
		years = 1
	}
	category = e.category(category)

	window := e.grid.FilterRange(
		e.now.Year-years, e.now.Month,
		e.now.Year-(years-1), e.now.Month,
	)

	var out []model.Point
	window.Each(func(at YearMonth, counts map[string]int) {
		label := MonthLabel(at.Month)
		if v, ok := counts[category]; ok {
			out = append(out, model.NewPoint(label, float64(v)))
		} else {
			out = append(out, model.MissingPoint(label))
		}
	})
	return out
}

// firstFullYear returns the earliest year with entries for all twelve months.
func (e *Engine) firstFullYear() (int, bool) {
	for _, y := range e.grid.Years() {
		if e.grid.MonthCount(y) == 12 {
			return y, true
		}
	}
	return 0, false
}

// YearToDateHistory returns, for every year from the first complete year on,
// the incidents of category in months up to and including the current month.
func (e *Engine) YearToDateHistory(category string) []model.Point {
	category = e.category(category)

	minYear, ok := e.firstFullYear()
	if !ok {
		return nil
	}

	var out []model.Point
	for _, y := range e.grid.Years() {
		if y < minYear {
			continue
		}
		incidents := 0
		for _, m := range e.grid.MonthsIn(y) {
			if m > e.now.Month {
				continue
			}
			if n, err := e.grid.Get(category, y, m); err == nil {
				incidents += n
			}
		}
		out = append(out, model.NewPoint(strconv.Itoa(y), float64(incidents)))
	}
	return out
}

// AnnualRateSeries returns the yearly rate of category for every year from the
// first complete year through last year, or through the current year once the
// current month is December.
func (e *Engine) AnnualRateSeries(category string) []model.Point {
	category = e.category(category)

	minYear, ok := e.firstFullYear()
	if !ok {
		return nil
	}
	maxYear := e.now.Year - 1
	if e.now.Month == 12 {
		maxYear = e.now.Year
	}

	var out []model.Point
	for _, y := range e.grid.Years() {
		if y < minYear || y > maxYear {
			continue
		}
		out = append(out, model.NewPoint(strconv.Itoa(y), e.YearlyRate(category, y)))
	}
	return out
}

// Snapshot computes the current-month summary for every category.
func (e *Engine) Snapshot() map[string]model.CategoryStats {
	lastYear, lastMonth := e.now.LastMonth()

	out := make(map[string]model.CategoryStats, e.cats.Len())
	for _, key := range e.cats.Keys() {
		var s model.CategoryStats
		if n, err := e.MonthlyCount(key, 0, 0); err == nil {
			s.IncidentsMonth = &n
		}
		if r, err := e.MonthlyRate(key, 0, 0); err == nil {
			s.RateMonth = &r
		}
		if c, err := e.MonthChange(key, lastYear, lastMonth, 0, 0); err == nil {
			s.ChangeLastMonth = &c
		}
		if c, err := e.MonthChange(key, e.now.Year-1, e.now.Month, 0, 0); err == nil {
			s.ChangeMonthLastYear = &c
		}
		out[key] = s
	}
	return out
}
