// Package provider implements the Provider Adapter (C2): one polymorphic
// fetcher per feed source, returning normalized FeedItems and tracking
// the last HTTP status observed.
package provider

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Ebang213/pharmaforge/pkg/cache"
	"github.com/Ebang213/pharmaforge/pkg/model"
)

// Adapter is the capability set every concrete source adapter exposes
// (spec.md §4.2).
type Adapter interface {
	SourceID() model.Source
	SourceName() string
	Category() model.Category
	Fetch(ctx context.Context) ([]*model.FeedItem, int, error)
	CacheKey() string
	CacheTTL() time.Duration
	IsHealthy() bool
}

const (
	maxRetries      = 3
	backoffBase     = 1 * time.Second
	requestTimeout  = 15 * time.Second
	connectTimeout  = 5 * time.Second
	userAgent       = "PharmaforgeWatchtower/1.0 (+compliance-monitoring)"
)

// fetchLimiter paces outbound requests to upstream FDA endpoints across
// all adapters in this process: at most one request every 200ms, no
// burst. Fetching three sources back-to-back should still look like a
// single well-behaved client, not a burst of parallel hits.
var fetchLimiter = rate.NewLimiter(rate.Every(200*time.Millisecond), 1)

// newHTTPClient builds an *http.Client honoring the per-request ≤15s
// timeout and ≤5s connect timeout from spec.md §4.2.
func newHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: connectTimeout,
	}
	return &http.Client{Timeout: requestTimeout, Transport: transport}
}

// BaseAdapter carries the fields and retry/fallback machinery common to
// all three concrete adapters, grounded on
// pkg/compliance/regwatch/adapters.go's BaseAdapter (sourceType,
// healthy bool, sync.RWMutex) and swarm.go's pollAgent retry loop.
type BaseAdapter struct {
	sourceID   model.Source
	sourceName string
	category   model.Category
	cacheTTL   time.Duration

	client *http.Client

	mu      sync.RWMutex
	healthy bool
}

func newBaseAdapter(sourceID model.Source, sourceName string, category model.Category) BaseAdapter {
	return BaseAdapter{
		sourceID:   sourceID,
		sourceName: sourceName,
		category:   category,
		cacheTTL:   cache.DefaultTTL,
		client:     newHTTPClient(),
		healthy:    true,
	}
}

func (b *BaseAdapter) SourceID() model.Source   { return b.sourceID }
func (b *BaseAdapter) SourceName() string       { return b.sourceName }
func (b *BaseAdapter) Category() model.Category { return b.category }
func (b *BaseAdapter) CacheKey() string         { return cache.Key(string(b.sourceID)) }
func (b *BaseAdapter) CacheTTL() time.Duration  { return b.cacheTTL }

func (b *BaseAdapter) IsHealthy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.healthy
}

func (b *BaseAdapter) setHealthy(h bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.healthy = h
}

// fetchResult is the outcome of one URL attempt.
type fetchResult struct {
	body       []byte
	contentType string
	httpStatus int
}

// fetchURLsWithRetry tries each URL in urls, in order, for up to
// maxRetries rounds with exponential backoff between rounds (base 1s,
// doubling). Retries on network error, 429, and 5xx; fails fast (moves
// to the next URL without waiting) on other 4xx. Returns the first
// successful (2xx) body, empty or not, or the last error seen if every URL in
// every round failed (spec.md §4.2).
func fetchURLsWithRetry(ctx context.Context, client *http.Client, urls []string, sleep func(time.Duration)) (fetchResult, error) {
	var lastErr error
	lastStatus := 0

	for attempt := 0; attempt < maxRetries; attempt++ {
		anyRetryable := false
		for _, url := range urls {
			res, status, err := doFetch(ctx, client, url)
			lastStatus = status
			if err == nil {
				return res, nil
			}
			lastErr = err

			if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
				// non-retryable 4xx: try the next URL in the list, but
				// never wait for a backoff round because of it.
				continue
			}
			anyRetryable = true
		}

		if !anyRetryable {
			break
		}

		if attempt < maxRetries-1 {
			wait := backoffBase * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return fetchResult{}, ctx.Err()
			default:
			}
			if sleep != nil {
				sleep(wait)
			} else {
				time.Sleep(wait)
			}
		}
	}

	if lastErr == nil {
		lastErr = model.NewError(model.ErrProviderAllSourcesFailed, "all source URLs exhausted")
	}
	return fetchResult{httpStatus: lastStatus}, lastErr
}

func doFetch(ctx context.Context, client *http.Client, url string) (fetchResult, int, error) {
	if err := fetchLimiter.Wait(ctx); err != nil {
		return fetchResult{}, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fetchResult{}, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.8, */*;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return fetchResult{}, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetchResult{}, resp.StatusCode, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fetchResult{httpStatus: resp.StatusCode}, resp.StatusCode,
			model.NewError(model.ErrProviderHTTP, http.StatusText(resp.StatusCode))
	}

	return fetchResult{
		body:        body,
		contentType: resp.Header.Get("Content-Type"),
		httpStatus:  resp.StatusCode,
	}, resp.StatusCode, nil
}
