package catalog

import (
	"fmt"
	"net/http"
	"time"
)

const defaultUserAgent = "vidyasetu/1.0 (offline LMS client; github.com/psodhi/vidyasetu)"

// SyncState carries the conditional-GET metadata for the catalog feed.
type SyncState struct {
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	LastFetched  time.Time `json:"last_fetched"`
}

// Fetcher retrieves the server's lesson catalog feed with conditional GET
// support, so an unchanged catalog costs one 304 round trip.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Fetcher{client: client, userAgent: userAgent}
}

// Fetch requests the catalog feed. The second return value reports whether
// new content arrived; a 304 returns (nil, false, nil).
func (f *Fetcher) Fetch(feedURL string, state *SyncState) (*http.Response, bool, error) {
	req, err := http.NewRequest(http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/atom+xml, application/rss+xml, application/xml, text/xml")

	if state.ETag != "" {
		req.Header.Set("If-None-Match", state.ETag)
	}
	if state.LastModified != "" {
		req.Header.Set("If-Modified-Since", state.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetching catalog: %w", err)
	}

	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		return nil, false, nil
	}

	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, false, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	return resp, true, nil
}

// UpdateSyncState records the validators from a fresh response.
func (f *Fetcher) UpdateSyncState(state *SyncState, resp *http.Response) {
	if etag := resp.Header.Get("ETag"); etag != "" {
		state.ETag = etag
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		state.LastModified = lastMod
	}
	state.LastFetched = time.Now()
}
