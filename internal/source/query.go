package source

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// QueryBuilder renders the datastore SQL for a table and base filter.
type QueryBuilder struct {
	Table string
	Where string
}

// DefaultQueryBuilder targets the default table and filter.
func DefaultQueryBuilder() QueryBuilder {
	return QueryBuilder{Table: DefaultTable, Where: DefaultWhere}
}

func (b QueryBuilder) table() string {
	if b.Table == "" {
		return DefaultTable
	}
	return b.Table
}

func (b QueryBuilder) where() string {
	if strings.TrimSpace(b.Where) == "" {
		return "1 = 1"
	}
	return b.Where
}

func (b QueryBuilder) sums(categories []string) (string, error) {
	if !identRe.MatchString(b.table()) {
		return "", eris.Errorf("source: invalid table name %q", b.table())
	}
	var sb strings.Builder
	sb.WriteString("SELECT year, month")
	for _, c := range categories {
		if !identRe.MatchString(c) {
			return "", eris.Errorf("source: invalid category key %q", c)
		}
		fmt.Fprintf(&sb, ", SUM(%s) AS %s", c, c)
	}
	fmt.Fprintf(&sb, " FROM %s WHERE %s", b.table(), b.where())
	return sb.String(), nil
}

// AggregateQuery sums each category over every area, one row per month,
// newest first.
func (b QueryBuilder) AggregateQuery(categories []string) (string, error) {
	q, err := b.sums(categories)
	if err != nil {
		return "", err
	}
	return q + " GROUP BY year, month ORDER BY year DESC, month DESC", nil
}

// PreviousYearsQuery is AggregateQuery restricted to the months from
// (year-years, month) through (year, month), both inclusive. years <= 0
// means 1.
func (b QueryBuilder) PreviousYearsQuery(categories []string, year, month, years int) (string, error) {
	if years <= 0 {
		years = 1
	}
	q, err := b.sums(categories)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(q)
	fmt.Fprintf(&sb, " AND ((year = %d AND month <= %d)", year, month)
	if years > 1 {
		fmt.Fprintf(&sb, " OR (year < %d AND year > %d)", year, year-years)
	}
	fmt.Fprintf(&sb, " OR (year = %d AND month >= %d))", year-years, month)
	sb.WriteString(" GROUP BY year, month ORDER BY year DESC, month DESC")
	return sb.String(), nil
}

// NeighborhoodQuery selects every row for one neighborhood, newest first.
func (b QueryBuilder) NeighborhoodQuery(key string) (string, error) {
	if !identRe.MatchString(b.table()) {
		return "", eris.Errorf("source: invalid table name %q", b.table())
	}
	if key == "" {
		return "", eris.New("source: empty neighborhood key")
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE %s AND neighborhood_key = '%s' ORDER BY year DESC, month DESC",
		b.table(), b.where(), strings.ReplaceAll(key, "'", "''")), nil
}
