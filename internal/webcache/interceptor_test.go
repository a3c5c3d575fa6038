package webcache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psodhi/vidyasetu/internal/storage"
)

type countingTransport struct {
	calls int
	base  http.RoundTripper
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls++
	return t.base.RoundTrip(req)
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store := storage.New(filepath.Join(t.TempDir(), "test.db"), time.Second)
	require.NoError(t, store.Open())
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<html>home</html>")
	})
	mux.HandleFunc("/student/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<html>student dashboard</html>")
	})
	mux.HandleFunc("/static/css/style.css", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		io.WriteString(w, "body{}")
	})
	mux.HandleFunc("/admin/stats/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<html>admin</html>")
	})
	mux.HandleFunc("/api/auth/token/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<html>token</html>")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, rt http.RoundTripper, url string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestInterceptor_CacheFirstNeverTouchesNetwork(t *testing.T) {
	store := newTestStore(t)
	server := newTestServer(t)
	counting := &countingTransport{base: http.DefaultTransport}

	ic, err := NewInterceptor(store, counting, server.URL, "v2")
	require.NoError(t, err)

	resp := get(t, ic, server.URL+"/student/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, counting.calls)

	// Second request must be served from cache with zero network calls.
	resp = get(t, ic, server.URL+"/student/", nil)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "student dashboard")
	assert.Equal(t, 1, counting.calls, "cached URL must not touch the network")
}

func TestInterceptor_PassThrough(t *testing.T) {
	store := newTestStore(t)
	server := newTestServer(t)
	counting := &countingTransport{base: http.DefaultTransport}

	ic, err := NewInterceptor(store, counting, server.URL, "v2")
	require.NoError(t, err)

	// POST passes through and is never cached.
	req, err := http.NewRequest(http.MethodPost, server.URL+"/student/", strings.NewReader("{}"))
	require.NoError(t, err)
	resp, err := ic.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 1, counting.calls)

	cached, _ := ic.lookup(http.MethodPost, server.URL+"/student/")
	assert.Nil(t, cached)

	// Cross-origin GET passes through untouched.
	other := newTestServer(t)
	resp = get(t, ic, other.URL+"/student/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	cached, _ = ic.lookup(http.MethodGet, other.URL+"/student/")
	assert.Nil(t, cached)
}

func TestInterceptor_SecurityExclusions(t *testing.T) {
	store := newTestStore(t)
	server := newTestServer(t)
	counting := &countingTransport{base: http.DefaultTransport}

	ic, err := NewInterceptor(store, counting, server.URL, "v2")
	require.NoError(t, err)

	for _, p := range []string{"/admin/stats/", "/api/auth/token/"} {
		resp := get(t, ic, server.URL+p, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		cached, tier := ic.lookup(http.MethodGet, server.URL+p)
		assert.Nil(t, cached, "%s must never be cached (found in tier %s)", p, tier)
	}

	// Repeat requests keep hitting the network.
	before := counting.calls
	get(t, ic, server.URL+"/admin/stats/", nil)
	assert.Equal(t, before+1, counting.calls)
}

func TestInterceptor_TierClassification(t *testing.T) {
	store := newTestStore(t)
	server := newTestServer(t)

	ic, err := NewInterceptor(store, http.DefaultTransport, server.URL, "v2")
	require.NoError(t, err)

	get(t, ic, server.URL+"/static/css/style.css", nil)
	_, tier := ic.lookup(http.MethodGet, server.URL+"/static/css/style.css")
	assert.Equal(t, "static-v2", tier)

	get(t, ic, server.URL+"/student/", nil)
	_, tier = ic.lookup(http.MethodGet, server.URL+"/student/")
	assert.Equal(t, "runtime-v2", tier)
}

func TestInterceptor_NavigationFallback(t *testing.T) {
	store := newTestStore(t)

	ic, err := NewInterceptor(store, failingTransport{}, "http://lms.example", "v2")
	require.NoError(t, err)

	// No cached pages at all: the failure surfaces.
	req, _ := http.NewRequest(http.MethodGet, "http://lms.example/student/", nil)
	req.Header.Set("Accept", "text/html")
	_, err = ic.RoundTrip(req)
	assert.Error(t, err)

	// With the root cached, navigation falls back to it.
	root := &CachedResponse{
		URL: "http://lms.example/", Method: http.MethodGet, Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"text/html"}},
		Body:   []byte("<html>root</html>"),
	}
	require.NoError(t, store.Put("offline-pages-v2", cacheKey(http.MethodGet, root.URL), root))

	resp := get(t, ic, "http://lms.example/student/", http.Header{"Accept": []string{"text/html"}})
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "root")

	// The dedicated offline page wins over the root once cached.
	offline := &CachedResponse{
		URL: "http://lms.example/offline/", Method: http.MethodGet, Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"text/html"}},
		Body:   []byte("<html>you are offline</html>"),
	}
	require.NoError(t, store.Put("offline-pages-v2", cacheKey(http.MethodGet, offline.URL), offline))

	resp = get(t, ic, "http://lms.example/student/", http.Header{"Accept": []string{"text/html"}})
	body, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "you are offline")
}

func TestInterceptor_ImageFallback(t *testing.T) {
	store := newTestStore(t)

	ic, err := NewInterceptor(store, failingTransport{}, "http://lms.example", "v2")
	require.NoError(t, err)

	resp := get(t, ic, "http://lms.example/static/img/lesson7.png", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "<svg")
}

func TestInterceptor_GenericFallbackIs503(t *testing.T) {
	store := newTestStore(t)

	ic, err := NewInterceptor(store, failingTransport{}, "http://lms.example", "v2")
	require.NoError(t, err)

	resp := get(t, ic, "http://lms.example/api/lessons.json", http.Header{"Accept": []string{"application/json"}})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Service Unavailable", string(body))
}

type brokenBodyTransport struct{}

func (brokenBodyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	header := http.Header{}
	header.Set("Content-Type", "text/html; charset=utf-8")
	return &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     header,
		Body:       io.NopCloser(brokenReader{}),
		Request:    req,
	}, nil
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestInterceptor_BodyReadFailureFallsBack(t *testing.T) {
	store := newTestStore(t)

	ic, err := NewInterceptor(store, brokenBodyTransport{}, "http://lms.example", "v2")
	require.NoError(t, err)
	require.NoError(t, ic.Activate())

	resp := get(t, ic, "http://lms.example/api/lessons.json", http.Header{"Accept": []string{"application/json"}})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Service Unavailable", string(body))

	// The aborted response must not have been cached.
	cached, _ := ic.lookup(http.MethodGet, "http://lms.example/api/lessons.json")
	assert.Nil(t, cached)
}

func TestInterceptor_PrecacheSwallowsPerURLFailures(t *testing.T) {
	store := newTestStore(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/offline/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html>offline</html>")
	})
	// Everything else 404s.
	server := httptest.NewServer(mux)
	defer server.Close()

	ic, err := NewInterceptor(store, http.DefaultTransport, server.URL, "v2")
	require.NoError(t, err)

	ic.Precache(context.Background())

	cached, tier := ic.lookup(http.MethodGet, server.URL+"/offline/")
	require.NotNil(t, cached, "reachable page must be precached despite sibling failures")
	assert.Equal(t, "offline-pages-v2", tier)

	missing, _ := ic.lookup(http.MethodGet, server.URL+"/manifest.json")
	assert.Nil(t, missing)
}

func TestInterceptor_ActivateDropsStaleTiers(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.EnsureCollection("static-v1"))
	require.NoError(t, store.EnsureCollection("runtime-v1"))
	require.NoError(t, store.EnsureCollection("offline-pages-v1"))

	ic, err := NewInterceptor(store, http.DefaultTransport, "http://lms.example", "v2")
	require.NoError(t, err)
	require.NoError(t, ic.Activate())

	names, err := store.CollectionNames()
	require.NoError(t, err)

	assert.NotContains(t, names, "static-v1")
	assert.NotContains(t, names, "runtime-v1")
	assert.NotContains(t, names, "offline-pages-v1")
	assert.Contains(t, names, "static-v2")
	assert.Contains(t, names, "runtime-v2")
	assert.Contains(t, names, "offline-pages-v2")

	// Non-tier collections are untouched.
	assert.Contains(t, names, storage.QuizSubmissions)
}
