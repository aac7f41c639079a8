package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/marketfeed/internal/models"
)

func testResolver(mirrors []models.Mirror) *Resolver {
	return NewResolver(mirrors,
		WithRetry(2, time.Millisecond, 5*time.Millisecond),
		WithRateLimit(1000),
	)
}

func TestResolveFallsBackToSecondMirror(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()

	r := testResolver([]models.Mirror{
		{Name: "primary", BaseURL: down.URL},
		{Name: "secondary", BaseURL: up.URL},
	})

	url, err := r.Resolve(context.Background(), "feed.json")
	require.NoError(t, err)
	assert.Equal(t, up.URL+"/feed.json", url)
}

func TestResolveNotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := testResolver([]models.Mirror{{Name: "only", BaseURL: srv.URL}})

	_, err := r.Resolve(context.Background(), "feed.json")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int64(1), hits.Load(), "client errors are final")
}

func TestResolveRetriesRateLimited(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := testResolver([]models.Mirror{{Name: "only", BaseURL: srv.URL}})

	url, err := r.Resolve(context.Background(), "charts/GLD_daily_compact.png")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/charts/GLD_daily_compact.png", url)
	assert.Equal(t, int64(2), hits.Load())
}

func TestResolveCachesResult(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := testResolver([]models.Mirror{{Name: "only", BaseURL: srv.URL}})

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(context.Background(), "feed.json")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), hits.Load(), "repeat resolutions served from cache")
}

func TestResolveNoMirrors(t *testing.T) {
	r := testResolver(nil)
	_, err := r.Resolve(context.Background(), "feed.json")
	assert.ErrorIs(t, err, ErrNoMirrors)
}

func TestFetchReturnsBodyAndValidator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Thu, 27 Aug 2026 10:00:00 GMT")
		w.Write([]byte(`{"assets":{}}`))
	}))
	defer srv.Close()

	r := testResolver([]models.Mirror{{Name: "only", BaseURL: srv.URL}})

	body, v, outcome, err := r.Fetch(context.Background(), "index.json", Validator{})
	require.NoError(t, err)
	assert.Equal(t, Fetched, outcome)
	assert.Equal(t, `{"assets":{}}`, string(body))
	assert.Equal(t, `"v1"`, v.ETag)
	assert.Equal(t, "Thu, 27 Aug 2026 10:00:00 GMT", v.LastModified)
}

func TestFetchNotModified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	r := testResolver([]models.Mirror{{Name: "only", BaseURL: srv.URL}})

	body, v, outcome, err := r.Fetch(context.Background(), "index.json", Validator{ETag: `"v1"`})
	require.NoError(t, err)
	assert.Equal(t, NotModified, outcome)
	assert.Nil(t, body)
	assert.Equal(t, `"v1"`, v.ETag, "validator carried forward")
}

func TestFetchFallsBackAcrossMirrors(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer up.Close()

	r := testResolver([]models.Mirror{
		{Name: "primary", BaseURL: down.URL},
		{Name: "secondary", BaseURL: up.URL},
	})

	body, _, outcome, err := r.Fetch(context.Background(), "index.json", Validator{})
	require.NoError(t, err)
	assert.Equal(t, Fetched, outcome)
	assert.Equal(t, "ok", string(body))
}

func TestFetchAllMirrorsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := testResolver([]models.Mirror{{Name: "only", BaseURL: srv.URL}})

	_, _, outcome, err := r.Fetch(context.Background(), "index.json", Validator{})
	assert.Equal(t, Failed, outcome)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestURLFor(t *testing.T) {
	assert.Equal(t, "https://example.com/a/b.json", URLFor("https://example.com/", "/a/b.json"))
	assert.Equal(t, "https://example.com/a/b.json", URLFor("https://example.com", "a/b.json"))
}
