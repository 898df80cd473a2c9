package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"

	"github.com/rotisserie/eris"
)

// Fetcher downloads remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL into path and returns the bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// SchemeRouter dispatches each URL to the fetcher registered for its scheme.
type SchemeRouter struct {
	byScheme map[string]Fetcher
}

// NewSchemeRouter routes http and https URLs to web and ftp URLs to ftp.
// A nil fetcher leaves its schemes unsupported.
func NewSchemeRouter(web, ftp Fetcher) *SchemeRouter {
	r := &SchemeRouter{byScheme: make(map[string]Fetcher, 3)}
	if web != nil {
		r.byScheme["http"] = web
		r.byScheme["https"] = web
	}
	if ftp != nil {
		r.byScheme["ftp"] = ftp
	}
	return r
}

func (r *SchemeRouter) route(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}
	f, ok := r.byScheme[u.Scheme]
	if !ok {
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
	return f, nil
}

// Download fetches rawURL with the fetcher for its scheme.
func (r *SchemeRouter) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := r.route(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

// DownloadToFile fetches rawURL into path with the fetcher for its scheme.
func (r *SchemeRouter) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	f, err := r.route(rawURL)
	if err != nil {
		return 0, err
	}
	return f.DownloadToFile(ctx, rawURL, path)
}

func downloadToFile(ctx context.Context, f Fetcher, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}
	return n, nil
}
