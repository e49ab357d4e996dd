package datamap

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"datamap/internal/geom"
)

// Fetcher loads topology and data resources by URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FetchOptions configures an HTTPFetcher.
type FetchOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	// RateLimit caps requests per second; zero means unlimited.
	RateLimit rate.Limit
}

// HTTPFetcher fetches http(s) URLs, file:// URLs and plain file paths.
// Concurrent fetches of the same URL share one request.
type HTTPFetcher struct {
	client  *http.Client
	opts    FetchOptions
	limiter *rate.Limiter
	group   singleflight.Group
}

func NewHTTPFetcher(opts FetchOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff == 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "datamap/1.0"
	}
	f := &HTTPFetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
	if opts.RateLimit > 0 {
		f.limiter = rate.NewLimiter(opts.RateLimit, 1)
	}
	return f
}

var defaultFetcher Fetcher = NewHTTPFetcher(FetchOptions{})

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	v, err, shared := f.group.Do(rawURL, func() (any, error) {
		return f.fetch(ctx, rawURL)
	})
	if shared {
		zap.L().Debug("shared fetch", zap.String("url", rawURL))
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Scheme == "file" || len(u.Scheme) == 1 {
		path := rawURL
		if err == nil && u.Scheme == "file" {
			path = u.Path
		}
		b, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil, eris.Wrapf(rerr, "read %s", path)
		}
		return b, nil
	}

	zap.L().Debug("fetching", zap.String("url", rawURL))
	var lastErr error
	for attempt := 0; attempt < f.opts.MaxRetries; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "rate limiter wait")
			}
		}
		b, retry, err := f.get(ctx, rawURL)
		if err == nil {
			zap.L().Info("fetched", zap.String("url", rawURL), zap.Int("bytes", len(b)))
			return b, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		if attempt == f.opts.MaxRetries-1 {
			break
		}
		zap.L().Warn("fetch failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if !f.backoff(ctx, attempt) {
			return nil, eris.Wrap(ctx.Err(), "fetch cancelled")
		}
	}
	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

// get performs one request. retry reports whether the failure is transient.
func (f *HTTPFetcher) get(ctx context.Context, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, eris.Wrapf(err, "get %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, eris.Errorf("http %d from %s", resp.StatusCode, rawURL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, eris.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, eris.Wrapf(err, "read body of %s", rawURL)
	}
	return b, false, nil
}

func (f *HTTPFetcher) backoff(ctx context.Context, attempt int) bool {
	d := f.opts.Backoff << attempt
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// fetchData loads the DataURL table. CSV rows are keyed by their id column;
// JSON must be an object keyed by region id.
func (m *Map) fetchData(ctx context.Context) (map[string]any, error) {
	raw, err := m.fetcher().Fetch(ctx, m.opts.DataURL)
	if err != nil {
		return nil, eris.Wrapf(err, "datamap: fetch data %s", m.opts.DataURL)
	}
	switch strings.ToLower(m.opts.DataType) {
	case "csv":
		table, err := geom.ParseDataCSV(bytes.NewReader(raw))
		if err != nil {
			return nil, eris.Wrapf(err, "datamap: parse csv %s", m.opts.DataURL)
		}
		out := make(map[string]any, len(table))
		for id, rec := range table {
			out[id] = rec
		}
		return out, nil
	default:
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, eris.Wrapf(err, "datamap: parse json %s", m.opts.DataURL)
		}
		return out, nil
	}
}
