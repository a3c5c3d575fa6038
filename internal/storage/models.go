package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Collection names. Collections are created lazily when the store opens.
const (
	QuizSubmissions = "quiz-submissions"
	ProgressUpdates = "progress-updates"
	CachedLessons   = "cached-lessons"
	Lessons         = "lessons"
)

// QueuedSubmission is a deferred write (quiz answer or progress update)
// awaiting network replay. Records are created and deleted, never mutated.
type QueuedSubmission struct {
	ID        string            `json:"id"`
	Tag       string            `json:"tag"`
	TargetURL string            `json:"target_url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Payload   json.RawMessage   `json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
}

// QuizPayload is the semantic body of a queued quiz submission.
type QuizPayload struct {
	QuizID string `json:"quizId"`
	Answer string `json:"answer"`
}

// ProgressPayload is the semantic body of a queued progress update.
type ProgressPayload struct {
	LessonID  string `json:"lessonId"`
	Completed bool   `json:"completed"`
}

// CachedLesson holds the full content of a lesson downloaded for offline use.
// Overwritten on re-download; never evicted.
type CachedLesson struct {
	ID       string    `json:"id"`
	Content  string    `json:"content"`
	CachedAt time.Time `json:"cached_at"`
}

// Lesson is catalog metadata for a lesson published by the server.
type Lesson struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	LessonType  string    `json:"lesson_type"` // video, pdf, text
	Language    string    `json:"language"`    // en, hi, pa
	ContentURL  string    `json:"content_url"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewSubmissionID derives a queue id from the creation timestamp. The short
// random suffix keeps ids unique when two submissions land in the same
// millisecond.
func NewSubmissionID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}
