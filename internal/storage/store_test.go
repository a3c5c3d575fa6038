package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := New(dbPath, time.Second)
	if err := store.Open(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestStore_NotReady(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "test.db"), time.Second)

	err := store.Put(QuizSubmissions, "1", &QueuedSubmission{ID: "1"})
	if err != ErrNotReady {
		t.Errorf("expected ErrNotReady, got %v", err)
	}

	var sub QueuedSubmission
	if _, err := store.Get(QuizSubmissions, "1", &sub); err != ErrNotReady {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
	if _, err := store.GetAll(QuizSubmissions); err != ErrNotReady {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
	if err := store.Delete(QuizSubmissions, "1"); err != ErrNotReady {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
}

func TestStore_SaveAndGetSubmission(t *testing.T) {
	store := setupTestStore(t)

	payload, _ := json.Marshal(QuizPayload{QuizID: "Q1", Answer: "B"})
	sub := &QueuedSubmission{
		ID:        NewSubmissionID(time.Now()),
		Tag:       "quiz-submission",
		TargetURL: "http://example.com/quiz/Q1/submit/",
		Method:    "POST",
		Headers:   map[string]string{"X-CSRFToken": "abc123"},
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	if err := store.SaveSubmission(QuizSubmissions, sub); err != nil {
		t.Fatalf("failed to save submission: %v", err)
	}

	var got QueuedSubmission
	found, err := store.Get(QuizSubmissions, sub.ID, &got)
	if err != nil {
		t.Fatalf("failed to get submission: %v", err)
	}
	if !found {
		t.Fatal("expected submission to be found")
	}
	if got.TargetURL != sub.TargetURL {
		t.Errorf("expected TargetURL %s, got %s", sub.TargetURL, got.TargetURL)
	}
	if got.Headers["X-CSRFToken"] != "abc123" {
		t.Errorf("expected CSRF header to round-trip, got %v", got.Headers)
	}

	var gotPayload QuizPayload
	if err := json.Unmarshal(got.Payload, &gotPayload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if gotPayload.QuizID != "Q1" || gotPayload.Answer != "B" {
		t.Errorf("payload mismatch: %+v", gotPayload)
	}
}

func TestStore_GetMissingIsNotError(t *testing.T) {
	store := setupTestStore(t)

	var sub QueuedSubmission
	found, err := store.Get(QuizSubmissions, "non-existent", &sub)
	if err != nil {
		t.Fatalf("missing key must not be an error, got %v", err)
	}
	if found {
		t.Error("expected found=false for missing key")
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Delete(ProgressUpdates, "never-existed"); err != nil {
		t.Fatalf("deleting a missing id must not be an error, got %v", err)
	}

	sub := &QueuedSubmission{ID: "p1", Tag: "progress-update"}
	if err := store.SaveSubmission(ProgressUpdates, sub); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ProgressUpdates, "p1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ProgressUpdates, "p1"); err != nil {
		t.Fatalf("second delete must be idempotent, got %v", err)
	}
}

func TestStore_GetSubmissions(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 3; i++ {
		sub := &QueuedSubmission{
			ID:  fmt.Sprintf("sub-%d", i),
			Tag: "quiz-submission",
		}
		if err := store.SaveSubmission(QuizSubmissions, sub); err != nil {
			t.Fatal(err)
		}
	}

	subs, err := store.GetSubmissions(QuizSubmissions)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 3 {
		t.Errorf("expected 3 submissions, got %d", len(subs))
	}
}

func TestStore_UniqueSubmissionIDs(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewSubmissionID(now)
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestStore_CachedLessonOverwrite(t *testing.T) {
	store := setupTestStore(t)

	first := &CachedLesson{ID: "L7", Content: "v1", CachedAt: time.Now()}
	if err := store.SaveCachedLesson(first); err != nil {
		t.Fatal(err)
	}

	second := &CachedLesson{ID: "L7", Content: "v2", CachedAt: time.Now()}
	if err := store.SaveCachedLesson(second); err != nil {
		t.Fatal(err)
	}

	got, found, err := store.GetCachedLesson("L7")
	if err != nil || !found {
		t.Fatalf("expected cached lesson, found=%v err=%v", found, err)
	}
	if got.Content != "v2" {
		t.Errorf("expected overwrite to win, got content %q", got.Content)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store := New(dbPath, time.Second)
	if err := store.Open(); err != nil {
		t.Fatal(err)
	}
	sub := &QueuedSubmission{ID: "persist-1", Tag: "quiz-submission"}
	if err := store.SaveSubmission(QuizSubmissions, sub); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := New(dbPath, time.Second)
	if err := reopened.Open(); err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	subs, err := reopened.GetSubmissions(QuizSubmissions)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 || subs[0].ID != "persist-1" {
		t.Errorf("expected queued record to survive restart, got %v", subs)
	}
}

func TestStore_Collections(t *testing.T) {
	store := setupTestStore(t)

	if err := store.EnsureCollection("static-v2"); err != nil {
		t.Fatal(err)
	}
	names, err := store.CollectionNames()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, name := range names {
		if name == "static-v2" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected static-v2 in %v", names)
	}

	if err := store.DropCollection("static-v2"); err != nil {
		t.Fatal(err)
	}
	if err := store.DropCollection("static-v2"); err != nil {
		t.Fatalf("dropping a missing collection must not be an error, got %v", err)
	}
}

func TestStore_GetAllLessonsSorted(t *testing.T) {
	store := setupTestStore(t)

	lessons := []*Lesson{
		{ID: "3", Title: "Counting in Punjabi", Language: "pa", LessonType: "text"},
		{ID: "1", Title: "Alphabet Basics", Language: "en", LessonType: "video"},
		{ID: "2", Title: "Basic Hindi Grammar", Language: "hi", LessonType: "pdf"},
	}
	for _, lesson := range lessons {
		if err := store.SaveLesson(lesson); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.GetAllLessons()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 lessons, got %d", len(got))
	}
	if got[0].Title != "Alphabet Basics" || got[2].Title != "Counting in Punjabi" {
		t.Errorf("expected lessons sorted by title, got %v, %v, %v",
			got[0].Title, got[1].Title, got[2].Title)
	}
}
