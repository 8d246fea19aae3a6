// Package fetch implements the two external transports dpt's core keeps
// out of its own packages: fetching a repository index document and
// fetching a package archive's bytes. Both are plain HTTP GETs; dpt does
// not reach for a heavier HTTP client library since net/http already
// covers this without friction.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPFetcher fetches "<base>/index.yaml" documents and arbitrary archive
// URLs over plain HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

// Fetch satisfies repoindex.Fetcher: it GETs "<base>/index.yaml".
func (f *HTTPFetcher) Fetch(ctx context.Context, base string) (io.ReadCloser, error) {
	return f.get(ctx, base+"/index.yaml")
}

// FetchArchive GETs the absolute archive URL from a resolved record.
func (f *HTTPFetcher) FetchArchive(ctx context.Context, url string) (io.ReadCloser, error) {
	return f.get(ctx, url)
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}

	res, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, res.Status)
	}

	return res.Body, nil
}
