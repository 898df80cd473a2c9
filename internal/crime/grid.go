// Package crime aggregates monthly crime incident counts into per-category
// counts, rates, period-over-period changes, and multi-year series.
package crime

import (
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crime-cli/internal/model"
)

// ErrNoData is returned when a (category, year, month) cell was never
// populated. It is distinct from a zero count.
var ErrNoData = eris.New("crime: no data")

type record struct {
	at     YearMonth
	counts map[string]int
}

// Grid is a sparse store of per-category incident counts keyed by year and
// month. Records are kept in a slice ordered by year then month, with an index
// for lookups, so an absent month never reads as zero. Grid is safe for
// concurrent use.
type Grid struct {
	mu      sync.RWMutex
	records []record
	index   map[YearMonth]int
}

// NewGrid returns an empty grid.
func NewGrid() *Grid {
	return &Grid{index: make(map[YearMonth]int)}
}

// Merge stores each row's counts at its (year, month), replacing any counts
// already there. Rows may arrive in any order.
func (g *Grid) Merge(rows []model.Row) {
	g.mu.Lock()
	defer g.mu.Unlock()

	added := false
	for _, r := range rows {
		at := YearMonth{Year: r.Year, Month: r.Month}
		counts := make(map[string]int, len(r.Counts))
		for k, v := range r.Counts {
			counts[k] = v
		}
		if i, ok := g.index[at]; ok {
			g.records[i].counts = counts
			continue
		}
		g.index[at] = len(g.records)
		g.records = append(g.records, record{at: at, counts: counts})
		added = true
	}

	if added {
		g.reorder()
	}
}

// reorder sorts records chronologically and rebuilds the index.
func (g *Grid) reorder() {
	sort.Slice(g.records, func(i, j int) bool {
		return g.records[i].at.Before(g.records[j].at)
	})
	for i, r := range g.records {
		g.index[r.at] = i
	}
}

// Len returns the number of populated months.
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}

// Has reports whether (year, month) has an entry.
func (g *Grid) Has(year, month int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.index[YearMonth{Year: year, Month: month}]
	return ok
}

// Get returns the count for category at (year, month). It returns ErrNoData
// if the month has no entry or the entry carries no count for category.
func (g *Grid) Get(category string, year, month int) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	i, ok := g.index[YearMonth{Year: year, Month: month}]
	if !ok {
		return 0, eris.Wrapf(ErrNoData, "grid: %s %04d-%02d", category, year, month)
	}
	v, ok := g.records[i].counts[category]
	if !ok {
		return 0, eris.Wrapf(ErrNoData, "grid: %s %04d-%02d", category, year, month)
	}
	return v, nil
}

// YearTotal sums category over the months of year that have entries. Absent
// months contribute nothing.
func (g *Grid) YearTotal(category string, year int) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	total := 0
	for _, r := range g.records {
		if r.at.Year == year {
			total += r.counts[category]
		}
	}
	return total
}

// FilterRange returns the subgrid of entries (y, m) where
//
//	(y == year1 && m > month1) ||
//	(y == year2 && m <= month2) ||
//	(year2-year1 > 1 && year1 < y && y < year2)
//
// With year2 == year1+1 and month2 == month1 this is the 12 months trailing
// (year2, month2], start exclusive and end inclusive.
func (g *Grid) FilterRange(year1, month1, year2, month2 int) *Grid {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := NewGrid()
	for _, r := range g.records {
		y, m := r.at.Year, r.at.Month
		if (y == year1 && m > month1) ||
			(y == year2 && m <= month2) ||
			(year2-year1 > 1 && y > year1 && y < year2) {
			out.index[r.at] = len(out.records)
			out.records = append(out.records, record{at: r.at, counts: r.counts})
		}
	}
	return out
}

// Years returns the years with at least one entry, ascending.
func (g *Grid) Years() []int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var years []int
	for _, r := range g.records {
		if len(years) == 0 || years[len(years)-1] != r.at.Year {
			years = append(years, r.at.Year)
		}
	}
	return years
}

// MonthsIn returns the months of year that have entries, ascending.
func (g *Grid) MonthsIn(year int) []int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var months []int
	for _, r := range g.records {
		if r.at.Year == year {
			months = append(months, r.at.Month)
		}
	}
	return months
}

// MonthCount returns how many months of year have entries.
func (g *Grid) MonthCount(year int) int {
	return len(g.MonthsIn(year))
}

// Latest returns the most recent populated month.
func (g *Grid) Latest() (YearMonth, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.records) == 0 {
		return YearMonth{}, false
	}
	return g.records[len(g.records)-1].at, true
}

// Each calls fn for every entry in year-then-month order. The counts map must
// not be modified, and fn must not call back into g's mutating methods.
func (g *Grid) Each(fn func(at YearMonth, counts map[string]int)) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, r := range g.records {
		fn(r.at, r.counts)
	}
}

// Rows exports the grid as rows in year-then-month order.
func (g *Grid) Rows() []model.Row {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rows := make([]model.Row, 0, len(g.records))
	for _, r := range g.records {
		counts := make(map[string]int, len(r.counts))
		for k, v := range r.counts {
			counts[k] = v
		}
		rows = append(rows, model.Row{Year: r.at.Year, Month: r.at.Month, Counts: counts})
	}
	return rows
}
