package netmon

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/psodhi/vidyasetu/internal/debuglog"
)

// Monitor is the single source of truth for "are we online". It probes the
// configured server on an interval and fans transitions out to registered
// callbacks, in registration order. There is no debouncing: every observed
// transition produces exactly one round of callbacks.
type Monitor struct {
	probeURL string
	interval time.Duration
	client   *http.Client

	mu        sync.Mutex
	online    bool
	callbacks []func(online bool)
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewMonitor(probeURL string, interval, timeout time.Duration) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Monitor{
		probeURL: probeURL,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		online:   true,
		stopCh:   make(chan struct{}),
	}
}

// IsOnline returns a snapshot of the current status.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnStatusChange registers a callback invoked on every transition. Callbacks
// run synchronously in registration order.
func (m *Monitor) OnStatusChange(callback func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// SetOnline applies a connectivity observation. Only edge transitions notify
// callbacks; repeated observations of the same state are ignored.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	callbacks := make([]func(bool), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	debuglog.Infof("connectivity changed: online=%v", online)
	for _, callback := range callbacks {
		callback(online)
	}
}

// Probe performs a single connectivity check against the server.
func (m *Monitor) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	// Any response from the server means the network path is up, even an
	// error status.
	return true
}

// Start runs the probe loop until ctx is done or Stop is called. The first
// probe fires immediately so startup state settles quickly.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		m.SetOnline(m.Probe(ctx))

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.SetOnline(m.Probe(ctx))
			}
		}
	}()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
