package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/psodhi/vidyasetu/internal/download"
	"github.com/psodhi/vidyasetu/internal/search"
	"github.com/psodhi/vidyasetu/internal/storage"
)

func (a *App) loadLessons() tea.Cmd {
	return func() tea.Msg {
		lessons, err := a.catalog.Lessons()
		if err != nil {
			return errorMsg{err: err}
		}

		downloaded := make(map[string]bool, len(lessons))
		downloading := make(map[string]bool)
		for _, l := range lessons {
			if _, ok, err := a.store.GetCachedLesson(l.ID); err == nil && ok {
				downloaded[l.ID] = true
			}
			if a.downloads != nil {
				if state, ok := a.downloads.State(l.ID); ok && state.Status == download.StatusDownloading {
					downloading[l.ID] = true
				}
			}
		}

		return lessonsLoadedMsg{lessons: lessons, downloaded: downloaded, downloading: downloading}
	}
}

func (a *App) refreshCatalog() tea.Cmd {
	return func() tea.Msg {
		if err := a.catalog.Refresh(); err != nil {
			return catalogRefreshedMsg{err: err}
		}

		lessons, err := a.catalog.Lessons()
		if err != nil {
			return catalogRefreshedMsg{err: err}
		}

		if listener, ok := a.searcher.(search.UpdateListener); ok {
			listener.OnCatalogUpdated(lessons)
		}

		return catalogRefreshedMsg{count: len(lessons)}
	}
}

func (a *App) renderLesson(lesson *storage.Lesson) tea.Cmd {
	return func() tea.Msg {
		var content strings.Builder
		content.WriteString(fmt.Sprintf("# %s\n\n", lesson.Title))
		content.WriteString(fmt.Sprintf("*%s • %s*\n\n", lesson.LessonType, languageName(lesson.Language)))

		if lesson.ContentURL != "" {
			content.WriteString(fmt.Sprintf("[View Online](%s)\n\n", lesson.ContentURL))
		}

		content.WriteString("---\n\n")

		cached, ok, err := a.store.GetCachedLesson(lesson.ID)
		switch {
		case err == nil && ok && lesson.LessonType == "text":
			content.WriteString(cached.Content)
		case err == nil && ok:
			content.WriteString(lesson.Description)
			content.WriteString("\n\n")
			content.WriteString(fmt.Sprintf("*Downloaded %s. Press o to open.*\n", cached.CachedAt.Format("Jan 2, 15:04")))
		default:
			content.WriteString(lesson.Description)
			content.WriteString("\n\n")
			content.WriteString("*Not downloaded yet. Press d to save this lesson for offline use.*\n")
		}

		r, err := a.getRenderer()
		if err != nil {
			return lessonRenderedMsg{content: "Error initializing renderer: " + err.Error()}
		}

		rendered, err := r.Render(content.String())
		if err != nil {
			return lessonRenderedMsg{content: fmt.Sprintf("# Error\n\nFailed to render lesson: %s\n\nPress Escape to go back.", err.Error())}
		}

		return lessonRenderedMsg{content: rendered}
	}
}

func (a *App) startDownload(lesson *storage.Lesson) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.HTTPTimeout)
		defer cancel()

		// Completion is reported through the download notifier.
		if err := a.downloads.DownloadLesson(ctx, lesson.ID, lesson.ContentURL); err != nil {
			return errorMsg{err: wrapErr("download", err)}
		}
		return nil
	}
}

func (a *App) submitQuiz(lesson *storage.Lesson, answer string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.HTTPTimeout)
		defer cancel()

		outcome, err := a.client.SubmitQuiz(ctx, lesson.ID, answer)
		return quizSubmittedMsg{outcome: outcome, err: err}
	}
}

func (a *App) markComplete(lesson *storage.Lesson) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.HTTPTimeout)
		defer cancel()

		outcome, err := a.client.UpdateProgress(ctx, lesson.ID, true)
		return progressMarkedMsg{outcome: outcome, err: err}
	}
}

func (a *App) performSearch(query string) tea.Cmd {
	return func() tea.Msg {
		searchResults, err := a.searcher.Search(query, 20)
		if err != nil {
			return errorMsg{err: err}
		}

		var results []lessonResultItem
		for _, sr := range searchResults {
			_, downloaded, _ := a.store.GetCachedLesson(sr.Lesson.ID)
			results = append(results, lessonResultItem{
				lesson:     sr.Lesson,
				score:      sr.Score,
				downloaded: downloaded,
			})
		}

		return searchResultsMsg{results: results}
	}
}

// openLesson exports downloaded content to a temp file and hands it to the
// external player. Falls back to the content URL when nothing is downloaded
// and the network is up.
func (a *App) openLesson(lesson *storage.Lesson) tea.Cmd {
	return func() tea.Msg {
		cached, ok, err := a.store.GetCachedLesson(lesson.ID)
		if err != nil {
			return errorMsg{err: wrapErr("open lesson", err)}
		}

		if !ok {
			if !a.monitor.IsOnline() {
				return errorMsg{err: fmt.Errorf("lesson not downloaded and you are offline")}
			}
			if err := a.launcher.OpenLesson(lesson.LessonType, lesson.ContentURL); err != nil {
				return errorMsg{err: wrapErr("open lesson", err)}
			}
			return nil
		}

		path, err := exportCached(lesson, cached)
		if err != nil {
			return errorMsg{err: wrapErr("open lesson", err)}
		}
		if err := a.launcher.OpenLesson(lesson.LessonType, path); err != nil {
			return errorMsg{err: wrapErr("open lesson", err)}
		}
		return nil
	}
}

func exportCached(lesson *storage.Lesson, cached *storage.CachedLesson) (string, error) {
	ext := ".bin"
	switch lesson.LessonType {
	case "video":
		ext = ".mp4"
	case "pdf":
		ext = ".pdf"
	case "text":
		ext = ".md"
	}

	path := filepath.Join(os.TempDir(), "vidyasetu-"+lesson.ID+ext)
	if err := os.WriteFile(path, []byte(cached.Content), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}
