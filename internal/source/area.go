package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crime-cli/internal/model"
)

// City fetches citywide totals by summing every neighborhood per month.
type City struct {
	client     Querier
	query      QueryBuilder
	categories []string
}

// NewCity returns a city fetcher for the given category keys.
func NewCity(client Querier, qb QueryBuilder, categories []string) *City {
	return &City{client: client, query: qb, categories: append([]string(nil), categories...)}
}

// FetchRows returns every month of citywide totals.
func (c *City) FetchRows(ctx context.Context) ([]model.Row, error) {
	sql, err := c.query.AggregateQuery(c.categories)
	if err != nil {
		return nil, err
	}
	return c.run(ctx, sql)
}

// FetchPrevious returns the citywide totals for the trailing years ending at
// (year, month).
func (c *City) FetchPrevious(ctx context.Context, year, month, years int) ([]model.Row, error) {
	sql, err := c.query.PreviousYearsQuery(c.categories, year, month, years)
	if err != nil {
		return nil, err
	}
	return c.run(ctx, sql)
}

func (c *City) run(ctx context.Context, sql string) ([]model.Row, error) {
	records, err := c.client.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrap(err, "source: city")
	}
	return DecodeRows(records, c.categories)
}

// Neighborhood fetches the monthly rows of a single neighborhood.
type Neighborhood struct {
	client     Querier
	query      QueryBuilder
	key        string
	categories []string
}

// NewNeighborhood returns a fetcher for the neighborhood with the given key.
func NewNeighborhood(client Querier, qb QueryBuilder, key string, categories []string) *Neighborhood {
	return &Neighborhood{client: client, query: qb, key: key, categories: append([]string(nil), categories...)}
}

// Key returns the neighborhood key.
func (n *Neighborhood) Key() string { return n.key }

// FetchRows returns every month recorded for the neighborhood.
func (n *Neighborhood) FetchRows(ctx context.Context) ([]model.Row, error) {
	sql, err := n.query.NeighborhoodQuery(n.key)
	if err != nil {
		return nil, err
	}
	records, err := n.client.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "source: neighborhood %s", n.key)
	}
	return DecodeRows(records, n.categories)
}
