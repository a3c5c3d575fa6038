package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/psodhi/vidyasetu/internal/debuglog"
	"github.com/psodhi/vidyasetu/internal/netmon"
	"github.com/psodhi/vidyasetu/internal/storage"
	"github.com/psodhi/vidyasetu/internal/syncq"
)

// Outcome reports how a submission was handled.
type Outcome int

const (
	// OutcomeSent means the server accepted the submission live.
	OutcomeSent Outcome = iota
	// OutcomeQueued means the submission was stored for replay on reconnect.
	OutcomeQueued
)

func (o Outcome) String() string {
	if o == OutcomeSent {
		return "sent"
	}
	return "queued"
}

// Client submits quiz answers and progress updates to the LMS server. When
// the network is down the write is queued with a snapshot of the auth headers
// and the matching sync tag is registered; a server rejection (non-2xx) is an
// error, not a queue candidate, since the request did reach the server.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	store      *storage.Store
	agent      *syncq.Agent
	monitor    *netmon.Monitor

	csrfToken     string
	sessionCookie string
}

func New(baseURL string, httpClient *http.Client, store *storage.Store, agent *syncq.Agent, monitor *netmon.Monitor, csrfToken, sessionCookie string) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:       parsed,
		httpClient:    httpClient,
		store:         store,
		agent:         agent,
		monitor:       monitor,
		csrfToken:     csrfToken,
		sessionCookie: sessionCookie,
	}, nil
}

// SubmitQuiz sends a quiz answer, queuing it if the network is unavailable.
func (c *Client) SubmitQuiz(ctx context.Context, quizID, answer string) (Outcome, error) {
	payload, err := json.Marshal(storage.QuizPayload{QuizID: quizID, Answer: answer})
	if err != nil {
		return OutcomeQueued, fmt.Errorf("encoding quiz payload: %w", err)
	}
	target := c.endpoint(fmt.Sprintf("/quiz/%s/submit/", quizID))
	return c.submit(ctx, syncq.TagQuizSubmission, target, payload)
}

// UpdateProgress marks a lesson complete (or not), queuing offline.
func (c *Client) UpdateProgress(ctx context.Context, lessonID string, completed bool) (Outcome, error) {
	payload, err := json.Marshal(storage.ProgressPayload{LessonID: lessonID, Completed: completed})
	if err != nil {
		return OutcomeQueued, fmt.Errorf("encoding progress payload: %w", err)
	}
	target := c.endpoint(fmt.Sprintf("/lesson/%s/complete/", lessonID))
	return c.submit(ctx, syncq.TagProgressUpdate, target, payload)
}

func (c *Client) submit(ctx context.Context, tag, target string, payload []byte) (Outcome, error) {
	if c.monitor != nil && !c.monitor.IsOnline() {
		return c.enqueue(tag, target, payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return OutcomeQueued, fmt.Errorf("building request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		debuglog.Infof("live submit failed, queuing for %s: %v", tag, err)
		return c.enqueue(tag, target, payload)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return OutcomeSent, fmt.Errorf("server rejected submission: HTTP %d", resp.StatusCode)
	}
	return OutcomeSent, nil
}

func (c *Client) enqueue(tag, target string, payload []byte) (Outcome, error) {
	collection, ok := syncq.CollectionForTag(tag)
	if !ok {
		return OutcomeQueued, fmt.Errorf("unknown sync tag %q", tag)
	}

	now := time.Now()
	sub := &storage.QueuedSubmission{
		ID:        storage.NewSubmissionID(now),
		Tag:       tag,
		TargetURL: target,
		Method:    http.MethodPost,
		Headers:   c.headerSnapshot(),
		Payload:   payload,
		CreatedAt: now,
	}
	if err := c.store.SaveSubmission(collection, sub); err != nil {
		return OutcomeQueued, fmt.Errorf("queuing submission: %w", err)
	}

	if c.agent != nil {
		c.agent.Register(tag)
	}
	debuglog.Infof("queued %s %s for replay", tag, sub.ID)
	return OutcomeQueued, nil
}

func (c *Client) endpoint(p string) string {
	ref := &url.URL{Path: p}
	return c.baseURL.ResolveReference(ref).String()
}

func (c *Client) applyHeaders(req *http.Request) {
	for key, value := range c.headerSnapshot() {
		req.Header.Set(key, value)
	}
}

// headerSnapshot captures the auth headers at enqueue time. The snapshot is
// replayed verbatim later; it is not refreshed.
func (c *Client) headerSnapshot() map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}
	if c.csrfToken != "" {
		headers["X-CSRFToken"] = c.csrfToken
	}
	if c.sessionCookie != "" {
		headers["Cookie"] = c.sessionCookie
	}
	return headers
}
