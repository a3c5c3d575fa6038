package search

import "github.com/psodhi/vidyasetu/internal/storage"

// Result is a lesson matched by a query.
type Result struct {
	Lesson *storage.Lesson
	Score  float64
}

// Searcher defines the minimal search API used by the TUI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
	Close() error
}

// UpdateListener is implemented by engines that maintain an external index
// and want to hear about catalog or content changes.
type UpdateListener interface {
	OnCatalogUpdated(lessons []*storage.Lesson)
	OnLessonDownloaded(lessonID string)
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}
