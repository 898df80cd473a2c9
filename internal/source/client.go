// Package source queries the remote SQL-over-HTTP datastore that publishes
// monthly crime counts and turns its row dicts into model rows.
package source

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crime-cli/internal/fetcher"
	"github.com/sells-group/crime-cli/internal/resilience"
)

// Defaults for the Minneapolis aggregate crime datastore.
const (
	DefaultBaseURL = "https://api.scraperwiki.com/api/1.0/datastore/sqlite"
	DefaultDataset = "minneapolis_aggregate_crime_data"
	DefaultTable   = "swdata"

	// DefaultWhere drops rows the scraper appended as corrections to earlier
	// months; the corrected totals are already in the original rows.
	DefaultWhere = "notes NOT LIKE 'Added to%'"
)

// Querier runs a SQL query against the datastore and returns one map per
// result row.
type Querier interface {
	Query(ctx context.Context, sql string) ([]map[string]any, error)
}

// Option configures a Client.
type Option func(*Client)

// WithFetcher overrides the HTTP fetcher.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Client) {
		c.fetcher = f
	}
}

// WithDataset overrides the datastore name.
func WithDataset(name string) Option {
	return func(c *Client) {
		c.dataset = name
	}
}

// WithRetry overrides the retry policy applied around each query.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// Client queries the datastore over HTTP.
type Client struct {
	baseURL string
	dataset string
	fetcher fetcher.Fetcher
	retry   resilience.RetryConfig
	log     *zap.Logger
}

// NewClient creates a datastore client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		dataset: DefaultDataset,
		retry:   resilience.DefaultRetryConfig(),
		log:     zap.L().With(zap.String("component", "source")),
	}
	for _, o := range opts {
		o(c)
	}
	if c.fetcher == nil {
		c.fetcher = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("source", "query")
	}
	return c
}

// QueryURL returns the request URL for sql.
func (c *Client) QueryURL(sql string) string {
	v := url.Values{}
	v.Set("format", "jsondict")
	v.Set("name", c.dataset)
	v.Set("query", sql)
	return c.baseURL + "?" + v.Encode()
}

type datastoreError struct {
	Error string `json:"error"`
}

// Query runs sql and returns the result rows. Responses are retried when the
// body is cut short, the connection drops or the datastore reports itself
// busy; HTTP status retries happen in the fetcher.
func (c *Client) Query(ctx context.Context, sql string) ([]map[string]any, error) {
	start := time.Now()
	rows, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]map[string]any, error) {
		return c.query(ctx, sql)
	})
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	queriesTotal.WithLabelValues(status).Inc()
	queryDuration.Observe(elapsed.Seconds())

	if err != nil {
		c.log.Warn("query failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}
	rowsReturned.Add(float64(len(rows)))
	c.log.Debug("query complete",
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", elapsed),
	)
	return rows, nil
}

func (c *Client) query(ctx context.Context, sql string) ([]map[string]any, error) {
	body, err := c.fetcher.Download(ctx, c.QueryURL(sql))
	if err != nil {
		return nil, eris.Wrap(err, "source: query")
	}
	defer body.Close() //nolint:errcheck

	// The datastore reports bad SQL as a JSON object instead of an array.
	var dsErr datastoreError
	rows, err := fetcher.DecodeRecords[map[string]any](ctx, body, &dsErr)
	if errors.Is(err, fetcher.ErrObjectPayload) {
		err = eris.Errorf("source: datastore error: %s", dsErr.Error)
		if resilience.IsTransientMessage(dsErr.Error) {
			return nil, resilience.NewTransientError(err, 0)
		}
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "source: decode rows")
	}
	return rows, nil
}
