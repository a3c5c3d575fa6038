package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/psodhi/vidyasetu/internal/debuglog"
	"github.com/psodhi/vidyasetu/internal/storage"
)

// Status of a lesson download within this session.
type Status int

const (
	StatusPending Status = iota
	StatusDownloading
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDownloading:
		return "downloading"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// State is per-lesson download bookkeeping. It lives in memory only: a
// restart loses in-flight state while already-cached content is unaffected.
type State struct {
	Status   Status
	Progress float64
}

// Event is delivered to the notifier on terminal states so the UI can show
// a toast and refresh the lesson's control.
type Event struct {
	LessonID string
	Status   Status
	Err      error
}

// Manager caches lesson content on demand. One download per lesson at a time,
// guarded only within this session; no retry, no resume, no integrity check.
type Manager struct {
	httpClient *http.Client
	store      *storage.Store

	mu     sync.Mutex
	states map[string]*State
	notify func(Event)
}

func NewManager(httpClient *http.Client, store *storage.Store) *Manager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Manager{
		httpClient: httpClient,
		store:      store,
		states:     make(map[string]*State),
	}
}

// SetNotifier registers the terminal-state callback.
func (m *Manager) SetNotifier(notify func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = notify
}

// State returns the session's bookkeeping for a lesson.
func (m *Manager) State(lessonID string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[lessonID]
	if !ok {
		return State{}, false
	}
	return *state, true
}

// DownloadLesson fetches url and stores the body as the lesson's offline
// content. A download already in flight for the same lesson makes this a
// no-op.
func (m *Manager) DownloadLesson(ctx context.Context, lessonID, url string) error {
	m.mu.Lock()
	if state, ok := m.states[lessonID]; ok && state.Status == StatusDownloading {
		m.mu.Unlock()
		debuglog.Debugf("download of %s already in flight", lessonID)
		return nil
	}
	m.states[lessonID] = &State{Status: StatusDownloading}
	m.mu.Unlock()

	content, err := m.fetch(ctx, url)
	if err != nil {
		m.finish(lessonID, StatusFailed, err)
		return fmt.Errorf("downloading lesson %s: %w", lessonID, err)
	}

	cached := &storage.CachedLesson{
		ID:       lessonID,
		Content:  string(content),
		CachedAt: time.Now(),
	}
	if err := m.store.SaveCachedLesson(cached); err != nil {
		m.finish(lessonID, StatusFailed, err)
		return fmt.Errorf("storing lesson %s: %w", lessonID, err)
	}

	m.finish(lessonID, StatusCompleted, nil)
	return nil
}

func (m *Manager) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

func (m *Manager) finish(lessonID string, status Status, err error) {
	m.mu.Lock()
	state := m.states[lessonID]
	state.Status = status
	if status == StatusCompleted {
		state.Progress = 1
	}
	notify := m.notify
	m.mu.Unlock()

	if err != nil {
		debuglog.Warnf("download %s: %v", lessonID, err)
	} else {
		debuglog.Infof("download %s: %s", lessonID, status)
	}
	if notify != nil {
		notify(Event{LessonID: lessonID, Status: status, Err: err})
	}
}
