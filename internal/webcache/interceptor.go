package webcache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/psodhi/vidyasetu/internal/debuglog"
	"github.com/psodhi/vidyasetu/internal/storage"
)

// Paths that must never be written into any cache tier, even on success.
var excludedPathFragments = []string{"/admin/", "/api/auth/"}

// Core URLs fetched into the static tier at startup.
var defaultPrecacheAssets = []string{
	"/",
	"/login/",
	"/signup/",
	"/manifest.json",
	"/static/css/style.css",
	"/static/js/app.js",
	"/static/img/logo.png",
}

// Role dashboards and the offline page, fetched into the offline-pages tier
// so navigation has somewhere to land without a network.
var defaultPrecachePages = []string{
	"/offline/",
	"/student/",
	"/teacher/",
	"/parent/",
}

// Interceptor is a cache-first http.RoundTripper for same-origin GET traffic.
// Writes and cross-origin requests pass through untouched. On network failure
// it serves a typed fallback: the offline page for navigations, a placeholder
// image for image requests, a synthetic 503 for everything else.
type Interceptor struct {
	store  *storage.Store
	base   http.RoundTripper
	origin *url.URL
	tiers  tierNames

	precacheAssets []string
	precachePages  []string
}

func NewInterceptor(store *storage.Store, base http.RoundTripper, origin string, version string) (*Interceptor, error) {
	if base == nil {
		base = http.DefaultTransport
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parsing origin: %w", err)
	}
	if version == "" {
		version = "v2"
	}
	return &Interceptor{
		store:          store,
		base:           base,
		origin:         originURL,
		tiers:          namesForVersion(version),
		precacheAssets: defaultPrecacheAssets,
		precachePages:  defaultPrecachePages,
	}, nil
}

func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || req.URL.Host != i.origin.Host {
		return i.base.RoundTrip(req)
	}

	if cached, tier := i.lookup(req.Method, req.URL.String()); cached != nil {
		debuglog.Debugf("cache hit (%s): %s", tier, req.URL)
		return synthesize(req, cached), nil
	}

	resp, err := i.base.RoundTrip(req)
	if err != nil {
		debuglog.Warnf("network failure for %s: %v", req.URL, err)
		return i.fallback(req, err)
	}

	if resp.StatusCode == http.StatusOK && i.cacheable(req.URL.Path) {
		stored, storeErr := i.storeResponse(req, resp)
		if storeErr != nil {
			debuglog.Warnf("caching %s: %v", req.URL, storeErr)
		}
		if stored == nil {
			// The body died mid-read; the original response is unusable.
			return i.fallback(req, storeErr)
		}
		return stored, nil
	}

	return resp, nil
}

// lookup searches every current tier for the request. Presence wins; nothing
// is revalidated.
func (i *Interceptor) lookup(method, rawURL string) (*CachedResponse, string) {
	key := cacheKey(method, rawURL)
	for _, tier := range i.tiers.all() {
		var cached CachedResponse
		found, err := i.store.Get(tier, key, &cached)
		if err != nil {
			debuglog.Warnf("cache lookup in %s: %v", tier, err)
			continue
		}
		if found {
			return &cached, tier
		}
	}
	return nil, ""
}

func (i *Interceptor) cacheable(urlPath string) bool {
	for _, fragment := range excludedPathFragments {
		if strings.Contains(urlPath, fragment) {
			return false
		}
	}
	return true
}

// classify picks the tier for a successful response: path-prefixed static
// assets go long-lived, HTML documents go to the runtime cache, anything else
// is not cached.
func (i *Interceptor) classify(urlPath string, header http.Header) (string, bool) {
	if strings.HasPrefix(urlPath, "/static/") {
		return i.tiers.static, true
	}
	if strings.Contains(header.Get("Content-Type"), "text/html") {
		return i.tiers.runtime, true
	}
	return "", false
}

// storeResponse consumes the response body, writes the record into its tier,
// and returns an equivalent response for the caller.
func (i *Interceptor) storeResponse(req *http.Request, resp *http.Response) (*http.Response, error) {
	tier, ok := i.classify(req.URL.Path, resp.Header)
	if !ok {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	cached := &CachedResponse{
		URL:      req.URL.String(),
		Method:   req.Method,
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: now(),
	}
	if err := i.store.Put(tier, cacheKey(req.Method, cached.URL), cached); err != nil {
		// Serve the response anyway; a cache write failure is never fatal.
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp, err
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// Precache fetches the fixed core URL lists into their tiers. Per-URL failures
// are logged and swallowed; one missing asset must not abort startup.
func (i *Interceptor) Precache(ctx context.Context) {
	i.precacheInto(ctx, i.precacheAssets, i.tiers.static)
	i.precacheInto(ctx, i.precachePages, i.tiers.offlinePages)
}

func (i *Interceptor) precacheInto(ctx context.Context, paths []string, tier string) {
	for _, p := range paths {
		target := i.origin.ResolveReference(&url.URL{Path: p}).String()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			debuglog.Warnf("precache %s: %v", target, err)
			continue
		}
		resp, err := i.base.RoundTrip(req)
		if err != nil {
			debuglog.Warnf("precache %s: %v", target, err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil || resp.StatusCode >= 400 {
			debuglog.Warnf("precache %s: status=%d err=%v", target, resp.StatusCode, err)
			continue
		}
		cached := &CachedResponse{
			URL:      target,
			Method:   http.MethodGet,
			Status:   resp.StatusCode,
			Header:   resp.Header.Clone(),
			Body:     body,
			StoredAt: now(),
		}
		if err := i.store.Put(tier, cacheKey(http.MethodGet, target), cached); err != nil {
			debuglog.Warnf("precache store %s: %v", target, err)
		}
	}
}

// Activate drops every tier collection whose name does not match the current
// version, then reports readiness. Old cache contents are discarded wholesale.
func (i *Interceptor) Activate() error {
	names, err := i.store.CollectionNames()
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}
	for _, name := range names {
		if isTierCollection(name) && !i.tiers.contains(name) {
			debuglog.Infof("dropping stale cache tier %s", name)
			if err := i.store.DropCollection(name); err != nil {
				return fmt.Errorf("dropping %s: %w", name, err)
			}
		}
	}
	for _, tier := range i.tiers.all() {
		if err := i.store.EnsureCollection(tier); err != nil {
			return fmt.Errorf("ensuring %s: %w", tier, err)
		}
	}
	return nil
}

func synthesize(req *http.Request, cached *CachedResponse) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", cached.Status, http.StatusText(cached.Status)),
		StatusCode:    cached.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        cached.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(cached.Body)),
		ContentLength: int64(len(cached.Body)),
		Request:       req,
	}
}

func isNavigation(req *http.Request) bool {
	if strings.Contains(req.Header.Get("Accept"), "text/html") {
		return true
	}
	return path.Ext(req.URL.Path) == "" && strings.HasSuffix(req.URL.Path, "/")
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true,
}

func isImageRequest(req *http.Request) bool {
	if strings.HasPrefix(req.Header.Get("Accept"), "image/") {
		return true
	}
	return imageExtensions[strings.ToLower(path.Ext(req.URL.Path))]
}
