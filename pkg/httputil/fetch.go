// Package httputil provides HTTP helpers shared by the extractor and the
// screenshot fetcher: bounded retries and cached GETs.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/previewforge/previewforge/pkg/cache"
	"github.com/previewforge/previewforge/pkg/observability"
)

// maxFetchBytes caps screenshot downloads; anything larger is not a
// plausible preview source.
const maxFetchBytes = 20 << 20

// Fetcher performs cached, retried GETs for remote image material
// (screenshots, hero images supplied by URL).
type Fetcher struct {
	Client *http.Client
	Cache  cache.Cache
	TTL    time.Duration
}

// NewFetcher creates a fetcher with the given cache. A nil cache disables
// response caching; a nil client uses a 30-second-timeout default.
func NewFetcher(c cache.Cache) *Fetcher {
	return &Fetcher{
		Client: &http.Client{Timeout: 30 * time.Second},
		Cache:  cache.OrNull(c),
		TTL:    cache.TTLFetch,
	}
}

// Get fetches url, consulting the cache first. Transient failures (network
// errors, 5xx) are retried with backoff; 4xx responses are returned
// immediately.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	key := cache.FetchKey(url)
	if data, hit, err := f.Cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "fetch")
		return data, nil
	}
	observability.Cache().OnCacheMiss(ctx, "fetch")

	var body []byte
	err := RetryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		start := time.Now()
		observability.HTTP().OnRequest(ctx, http.MethodGet, req.URL.Host, req.URL.Path)
		resp, err := f.Client.Do(req)
		if err != nil {
			observability.HTTP().OnError(ctx, http.MethodGet, req.URL.Host, req.URL.Path, err)
			return &RetryableError{Err: err}
		}
		defer resp.Body.Close()
		observability.HTTP().OnResponse(ctx, http.MethodGet, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

		if resp.StatusCode >= 500 {
			return &RetryableError{Err: fmt.Errorf("server error: %s", resp.Status)}
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
		return err
	})
	if err != nil {
		return nil, err
	}

	_ = f.Cache.Set(ctx, key, body, f.TTL)
	return body, nil
}
