package syncq

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/psodhi/vidyasetu/internal/debuglog"
	"github.com/psodhi/vidyasetu/internal/netmon"
	"github.com/psodhi/vidyasetu/internal/storage"
)

// Sync tags. Registering a tag more than once before it fires is tolerated;
// triggers are set-deduplicated.
const (
	TagQuizSubmission = "quiz-submission"
	TagProgressUpdate = "progress-update"
)

const maxConcurrentReplays = 5

var allTags = []string{TagQuizSubmission, TagProgressUpdate}

// CollectionForTag maps a sync tag to its queue collection.
func CollectionForTag(tag string) (string, bool) {
	switch tag {
	case TagQuizSubmission:
		return storage.QuizSubmissions, true
	case TagProgressUpdate:
		return storage.ProgressUpdates, true
	default:
		return "", false
	}
}

// FlushResult summarizes one drain pass over a tag's queue.
type FlushResult struct {
	Tag       string
	Delivered int
	Remaining int
	Evicted   int
}

// Agent replays queued submissions once connectivity returns. Replays within
// a tag run concurrently with no ordering guarantee; a failed replay leaves
// the record queued for the next trigger. There is no backoff and no attempt
// cap — the only bound is the optional max-age eviction.
type Agent struct {
	store  *storage.Store
	client *http.Client

	// maxRecordAge evicts records older than this at flush time. Zero
	// disables eviction and restores unbounded retry.
	maxRecordAge time.Duration

	mu       sync.Mutex
	pending  map[string]bool
	notifier func(FlushResult)
}

func NewAgent(store *storage.Store, client *http.Client, maxRecordAge time.Duration) *Agent {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Agent{
		store:        store,
		client:       client,
		maxRecordAge: maxRecordAge,
		pending:      make(map[string]bool),
	}
}

// SetNotifier registers a callback invoked after each flush pass.
func (a *Agent) SetNotifier(notifier func(FlushResult)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notifier = notifier
}

// Register marks a tag's queue for draining on the next trigger.
func (a *Agent) Register(tag string) {
	if _, ok := CollectionForTag(tag); !ok {
		debuglog.Warnf("ignoring unknown sync tag %q", tag)
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[tag] = true
}

// Attach subscribes the agent to connectivity transitions. Going online
// re-registers every tag opportunistically and drains the queues.
func (a *Agent) Attach(monitor *netmon.Monitor) {
	monitor.OnStatusChange(func(online bool) {
		if !online {
			return
		}
		for _, tag := range allTags {
			a.Register(tag)
		}
		a.FlushRegistered(context.Background())
	})
}

// FlushRegistered drains every registered tag and clears the trigger set.
func (a *Agent) FlushRegistered(ctx context.Context) {
	a.mu.Lock()
	tags := make([]string, 0, len(a.pending))
	for tag := range a.pending {
		tags = append(tags, tag)
	}
	a.pending = make(map[string]bool)
	a.mu.Unlock()

	for _, tag := range tags {
		if _, err := a.Flush(ctx, tag); err != nil {
			debuglog.Errorf("flushing %s: %v", tag, err)
		}
	}
}

// Flush drains one tag's queue: every record is replayed against its stored
// target; HTTP success deletes the record, anything else leaves it in place.
func (a *Agent) Flush(ctx context.Context, tag string) (FlushResult, error) {
	result := FlushResult{Tag: tag}

	collection, ok := CollectionForTag(tag)
	if !ok {
		return result, fmt.Errorf("unknown sync tag %q", tag)
	}

	subs, err := a.store.GetSubmissions(collection)
	if err != nil {
		return result, fmt.Errorf("reading queue: %w", err)
	}

	live := subs[:0]
	for _, sub := range subs {
		if a.maxRecordAge > 0 && time.Since(sub.CreatedAt) > a.maxRecordAge {
			debuglog.Warnf("evicting %s record %s older than %s", tag, sub.ID, a.maxRecordAge)
			if err := a.store.Delete(collection, sub.ID); err != nil {
				debuglog.Errorf("evicting %s: %v", sub.ID, err)
			}
			result.Evicted++
			continue
		}
		live = append(live, sub)
	}

	if len(live) == 0 {
		a.notify(result)
		return result, nil
	}

	subCh := make(chan *storage.QueuedSubmission, len(live))
	var delivered sync.Map

	var wg sync.WaitGroup
	workers := maxConcurrentReplays
	if len(live) < workers {
		workers = len(live)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range subCh {
				if a.replay(ctx, sub) {
					if err := a.store.Delete(collection, sub.ID); err != nil {
						debuglog.Errorf("removing delivered record %s: %v", sub.ID, err)
						continue
					}
					delivered.Store(sub.ID, true)
				}
			}
		}()
	}

	for _, sub := range live {
		subCh <- sub
	}
	close(subCh)
	wg.Wait()

	for _, sub := range live {
		if _, ok := delivered.Load(sub.ID); ok {
			result.Delivered++
		} else {
			result.Remaining++
		}
	}

	debuglog.Infof("sync %s: delivered=%d remaining=%d evicted=%d",
		tag, result.Delivered, result.Remaining, result.Evicted)
	a.notify(result)
	return result, nil
}

// replay reissues a queued submission exactly as captured: stored method,
// target URL, header snapshot, and payload. Headers are not refreshed, so a
// stale token fails like any other error and the record stays queued.
func (a *Agent) replay(ctx context.Context, sub *storage.QueuedSubmission) bool {
	method := sub.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, sub.TargetURL, bytes.NewReader(sub.Payload))
	if err != nil {
		debuglog.Errorf("building replay request for %s: %v", sub.ID, err)
		return false
	}
	for key, value := range sub.Headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		debuglog.Warnf("replay %s failed: %v", sub.ID, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		debuglog.Warnf("replay %s rejected: HTTP %d", sub.ID, resp.StatusCode)
		return false
	}
	return true
}

// QueuedCount reports the total records waiting across every tag.
func (a *Agent) QueuedCount() int {
	total := 0
	for _, tag := range allTags {
		collection, _ := CollectionForTag(tag)
		subs, err := a.store.GetSubmissions(collection)
		if err != nil {
			continue
		}
		total += len(subs)
	}
	return total
}

func (a *Agent) notify(result FlushResult) {
	a.mu.Lock()
	notifier := a.notifier
	a.mu.Unlock()
	if notifier != nil {
		notifier(result)
	}
}
