package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/crime-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int

	// RequestsPerSecond is the starting rate for each host.
	RequestsPerSecond float64
	Burst             int

	// BackoffBase is the first retry delay; later retries double it.
	BackoffBase time.Duration
}

func (o *HTTPOptions) defaults() {
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.UserAgent == "" {
		o.UserAgent = "crime-cli/1.0"
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 5
	}
	if o.Burst <= 0 {
		o.Burst = int(math.Ceil(o.RequestsPerSecond))
	}
	if o.BackoffBase == 0 {
		o.BackoffBase = time.Second
	}
}

// statusError is a response status worth retrying.
type statusError struct {
	code int
	host string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.code, e.host)
}

// HTTPFetcher implements Fetcher over net/http with per-host pacing and
// retries on network errors, 429s and 5xx responses.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters *hostLimiters
}

// NewHTTPFetcher creates an HTTPFetcher; zero options take defaults.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	opts.defaults()
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts: opts,
		limiters: &hostLimiters{
			start: rate.Limit(opts.RequestsPerSecond),
			burst: opts.Burst,
			hosts: make(map[string]*hostLimiter),
		},
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *hostLimiter {
	return f.limiters.get(rawURL)
}

func (f *HTTPFetcher) retryConfig(host string) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    f.opts.MaxRetries,
		InitialBackoff: f.opts.BackoffBase,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.5,
		// Anything but the caller giving up: network errors and retryable
		// statuses both land here.
		ShouldRetry: func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
		OnRetry: resilience.RetryLogger("fetcher", host),
	}
}

// send issues req once, pacing it through the host limiter.
func (f *HTTPFetcher) send(ctx context.Context, req *http.Request, lim *hostLimiter) (*http.Response, error) {
	if err := lim.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}
	resp, err := f.client.Do(req.Clone(ctx))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		lim.slowDown()
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
	default:
		lim.speedUp()
		return resp, nil
	}
	_ = resp.Body.Close()
	return nil, &statusError{code: resp.StatusCode, host: req.URL.Host}
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/json, text/csv;q=0.9, */*;q=0.8")

	lim := f.limiterFor(rawURL)
	resp, err := resilience.DoVal(ctx, f.retryConfig(req.URL.Host), func(ctx context.Context) (*http.Response, error) {
		return f.send(ctx, req, lim)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(err, "download")
		}
		return nil, eris.Wrap(err, "download: all retries exhausted")
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("download: unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL and writes it to path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	return downloadToFile(ctx, f, rawURL, path)
}
