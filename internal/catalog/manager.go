package catalog

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/psodhi/vidyasetu/internal/debuglog"
	"github.com/psodhi/vidyasetu/internal/storage"
)

const (
	syncStateCollection = "catalog-meta"
	syncStateKey        = "state"
)

// Manager keeps the local lesson catalog in step with the server's feed.
type Manager struct {
	store           *storage.Store
	fetcher         *Fetcher
	parser          *Parser
	feedURL         string
	refreshInterval time.Duration
	mu              sync.Mutex
}

func NewManager(store *storage.Store, httpClient *http.Client, serverURL, userAgent string, refreshInterval time.Duration) (*Manager, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	feedURL := base.ResolveReference(&url.URL{Path: "/lessons/feed/"}).String()

	if refreshInterval <= 0 {
		refreshInterval = 5 * time.Minute
	}
	return &Manager{
		store:           store,
		fetcher:         NewFetcher(httpClient, userAgent),
		parser:          NewParser(),
		feedURL:         feedURL,
		refreshInterval: refreshInterval,
	}, nil
}

// Lessons returns the locally known catalog.
func (m *Manager) Lessons() ([]*storage.Lesson, error) {
	return m.store.GetAllLessons()
}

// Refresh fetches the catalog feed and upserts its lessons, honoring the
// stored ETag/Last-Modified validators. Refreshes inside the configured
// interval are skipped.
func (m *Manager) Refresh() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.loadSyncState()
	if time.Since(state.LastFetched) < m.refreshInterval {
		return nil
	}

	resp, updated, err := m.fetcher.Fetch(m.feedURL, state)
	if err != nil {
		return fmt.Errorf("fetching catalog: %w", err)
	}

	if !updated || resp == nil {
		state.LastFetched = time.Now()
		m.saveSyncState(state)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}

	lessons, err := m.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parsing catalog: %w", err)
	}

	for _, lesson := range lessons {
		if err := m.store.SaveLesson(lesson); err != nil {
			return fmt.Errorf("saving lesson %s: %w", lesson.ID, err)
		}
	}

	m.fetcher.UpdateSyncState(state, resp)
	m.saveSyncState(state)

	debuglog.Infof("catalog refreshed: %d lessons", len(lessons))
	return nil
}

// ForceRefresh drops the interval gate and validators for one refresh.
func (m *Manager) ForceRefresh() error {
	m.mu.Lock()
	m.saveSyncState(&SyncState{})
	m.mu.Unlock()
	return m.Refresh()
}

func (m *Manager) loadSyncState() *SyncState {
	var state SyncState
	found, err := m.store.Get(syncStateCollection, syncStateKey, &state)
	if err != nil || !found {
		return &SyncState{}
	}
	return &state
}

func (m *Manager) saveSyncState(state *SyncState) {
	if err := m.store.Put(syncStateCollection, syncStateKey, state); err != nil {
		debuglog.Warnf("saving catalog sync state: %v", err)
	}
}
