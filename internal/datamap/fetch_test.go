package datamap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const xyzGeoJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"iso_a3":"XYZ","name":"Xyz"},
 "geometry":{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]}}]}`

type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	body, ok := f[rawURL]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(body), nil
}

func TestDrawFetchesJSONData(t *testing.T) {
	m := newTestMap(t, func(o *Options) {
		o.Fills = Fills{"high": "#FF0000"}
		o.DataURL = "mem://data.json"
		o.Fetcher = fakeFetcher{"mem://data.json": `{"AAA":{"fillKey":"high"},"BBB":"#00FF00"}`}
	})
	assert.Equal(t, "#FF0000", m.regionElement("AAA").Style("fill"))
	assert.Equal(t, "#00FF00", m.regionElement("BBB").Style("fill"))
	assert.Equal(t, "high", m.Data()["AAA"]["fillKey"])
}

func TestDrawFetchesCSVData(t *testing.T) {
	m := newTestMap(t, func(o *Options) {
		o.Fills = Fills{"high": "#FF0000"}
		o.DataType = "csv"
		o.DataURL = "mem://data.csv"
		o.Fetcher = fakeFetcher{"mem://data.csv": "id,fillKey,votes\nCCC,high,12\n"}
	})
	assert.Equal(t, "#FF0000", m.regionElement("CCC").Style("fill"))
	assert.Equal(t, 12.0, m.Data()["CCC"]["votes"])
}

func TestDrawFetchesTopology(t *testing.T) {
	m := newTestMap(t, func(o *Options) {
		o.Regions = nil
		o.Geography.DataURL = "mem://xyz.geojson"
		o.Fetcher = fakeFetcher{"mem://xyz.geojson": xyzGeoJSON}
	})
	require.Len(t, m.Subunits(), 1)
	assert.NotNil(t, m.regionElement("XYZ"))
	assert.Equal(t, "Xyz", m.Regions()[0].Name)
}

func TestDrawReturnsFetchErrors(t *testing.T) {
	_, err := New(context.Background(), NewElement("map", 960, 500), Options{
		Scope:         "test",
		SetProjection: flatProjection,
		Regions:       fixtureRegions(),
		DataURL:       "mem://missing.json",
		Fetcher:       fakeFetcher{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file does not exist")
}

func TestHTTPFetcher(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/slow":
			<-release
			_, _ = w.Write([]byte("slow"))
		case "/missing":
			http.NotFound(w, r)
		case "/flaky":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetchOptions{MaxRetries: 2, Backoff: time.Millisecond})
	ctx := context.Background()

	b, err := f.Fetch(ctx, srv.URL+"/data.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(b))

	t.Run("not found is not retried", func(t *testing.T) {
		hits.Store(0)
		_, err := f.Fetch(ctx, srv.URL+"/missing")
		require.Error(t, err)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("server errors are retried", func(t *testing.T) {
		hits.Store(0)
		_, err := f.Fetch(ctx, srv.URL+"/flaky")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all retries exhausted")
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("concurrent fetches share a request", func(t *testing.T) {
		hits.Store(0)
		var wg sync.WaitGroup
		results := make([]string, 4)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				b, err := f.Fetch(ctx, srv.URL+"/slow")
				if err == nil {
					results[i] = string(b)
				}
			}(i)
		}
		require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()
		assert.Equal(t, int32(1), hits.Load())
		for _, r := range results {
			assert.Equal(t, "slow", r)
		}
	})
}

func TestHTTPFetcherNoWaitAfterLastAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetchOptions{MaxRetries: 1, Backoff: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	_, err := f.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retries exhausted")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPFetcherReadsFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"A":1}`), 0o600))

	f := NewHTTPFetcher(FetchOptions{})
	b, err := f.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, `{"A":1}`, string(b))

	b, err = f.Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, `{"A":1}`, string(b))

	_, err = f.Fetch(context.Background(), filepath.Join(dir, "nope.json"))
	assert.Error(t, err)
}
