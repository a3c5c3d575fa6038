package catalog

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name           string
		state          *SyncState
		serverResponse func(t *testing.T, w http.ResponseWriter, r *http.Request)
		expectUpdated  bool
		expectError    bool
	}{
		{
			name:  "fresh fetch",
			state: &SyncState{},
			serverResponse: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("User-Agent") == "" {
					t.Error("expected a User-Agent header")
				}
				w.Header().Set("ETag", "\"abc\"")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("<rss></rss>"))
			},
			expectUpdated: true,
		},
		{
			name:  "not modified with ETag",
			state: &SyncState{ETag: "\"abc\""},
			serverResponse: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("If-None-Match") != "\"abc\"" {
					t.Errorf("expected If-None-Match, got %q", r.Header.Get("If-None-Match"))
				}
				w.WriteHeader(http.StatusNotModified)
			},
			expectUpdated: false,
		},
		{
			name:  "not modified with Last-Modified",
			state: &SyncState{LastModified: "Wed, 01 Jan 2025 00:00:00 GMT"},
			serverResponse: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("If-Modified-Since") != "Wed, 01 Jan 2025 00:00:00 GMT" {
					t.Errorf("expected If-Modified-Since, got %q", r.Header.Get("If-Modified-Since"))
				}
				w.WriteHeader(http.StatusNotModified)
			},
			expectUpdated: false,
		},
		{
			name:  "server error",
			state: &SyncState{},
			serverResponse: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.serverResponse(t, w, r)
			}))
			defer server.Close()

			f := NewFetcher(server.Client(), "")
			resp, updated, err := f.Fetch(server.URL+"/lessons/feed/", tt.state)

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if updated != tt.expectUpdated {
				t.Errorf("expected updated=%v, got %v", tt.expectUpdated, updated)
			}
			if resp != nil {
				resp.Body.Close()
			}
		})
	}
}

func TestFetcher_UpdateSyncState(t *testing.T) {
	f := NewFetcher(nil, "")
	state := &SyncState{}

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("ETag", "\"v2\"")
	resp.Header.Set("Last-Modified", "Thu, 02 Jan 2025 00:00:00 GMT")

	f.UpdateSyncState(state, resp)

	if state.ETag != "\"v2\"" {
		t.Errorf("expected ETag to update, got %q", state.ETag)
	}
	if state.LastModified != "Thu, 02 Jan 2025 00:00:00 GMT" {
		t.Errorf("expected Last-Modified to update, got %q", state.LastModified)
	}
	if state.LastFetched.IsZero() {
		t.Error("expected LastFetched to be set")
	}
}
