package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/psodhi/vidyasetu/internal/config"
	"github.com/psodhi/vidyasetu/internal/storage"
)

type KeyHandler struct {
	app      *App
	bindings config.KeyBindings
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	return &KeyHandler{app: app, bindings: cfg.Keys.Bindings}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewQuiz:
		return kh.app.quizInput.Focused()
	case ViewSearch:
		return kh.app.searchInput.Focused()
	default:
		return false
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "esc":
		return kh.navigateBack()
	case "ctrl+c":
		return kh.app, tea.Quit
	case "enter":
		return kh.handleTextInputEnter()
	case "tab", "down":
		if kh.app.view == ViewSearch {
			if len(kh.app.searchList.Items()) > 0 {
				kh.app.searchInput.Blur()
				kh.app.searchList.Select(0)
			}
			return kh.app, nil
		}
		return kh.delegateToTextInput(msg)
	default:
		return kh.delegateToTextInput(msg)
	}
}

func (kh *KeyHandler) handleTextInputEnter() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewQuiz:
		answer := strings.TrimSpace(kh.app.quizInput.Value())
		if answer == "" {
			return kh.app, nil
		}
		if kh.app.currentLesson == nil {
			return kh.app, func() tea.Msg { return errorMsg{err: fmt.Errorf("no lesson selected")} }
		}
		lesson := kh.app.currentLesson
		kh.app.view = kh.app.previousView
		cmd := kh.app.setStatus(MsgSubmitting, StatusInfo)
		return kh.app, tea.Batch(cmd, kh.app.submitQuiz(lesson, answer))

	case ViewSearch:
		if items := kh.app.searchList.Items(); len(items) > 0 {
			if i, ok := items[0].(lessonResultItem); ok {
				return kh.selectSearchResult(i)
			}
		}
		return kh.app, nil

	default:
		return kh.app, nil
	}
}

func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewQuiz:
		newInput, cmd := kh.app.quizInput.Update(msg)
		kh.app.quizInput = newInput
		return kh.app, cmd

	case ViewSearch:
		newSearchInput, cmd := kh.app.searchInput.Update(msg)
		kh.app.searchInput = newSearchInput

		query := kh.app.searchInput.Value()
		if len(query) > 1 {
			return kh.app, tea.Batch(cmd, kh.app.performSearch(query))
		}
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	b := kh.bindings

	switch key {
	case "ctrl+c", b.Quit:
		return kh.app, tea.Quit, true
	case b.Back:
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case b.Search:
		model, cmd := kh.enterSearchMode()
		return model, cmd, true
	case b.Refresh:
		cmd := kh.app.setStatus(MsgRefreshing, StatusInfo)
		return kh.app, tea.Batch(cmd, kh.app.refreshCatalog()), true
	}

	switch kh.app.view {
	case ViewLessons:
		return kh.handleLessonsCustomKeys(key)
	case ViewReader:
		return kh.handleReaderCustomKeys(key)
	case ViewSearch:
		return kh.handleSearchListKeys(key)
	default:
		return kh.app, nil, false
	}
}

func (kh *KeyHandler) handleLessonsCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	selected, ok := kh.app.lessonList.SelectedItem().(lessonItem)
	if !ok {
		return kh.app, nil, false
	}
	return kh.handleLessonActions(key, selected.lesson, func() (tea.Model, tea.Cmd) {
		return kh.openReader(selected.lesson)
	})
}

func (kh *KeyHandler) handleReaderCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	if kh.app.currentLesson == nil {
		return kh.app, nil, false
	}
	return kh.handleLessonActions(key, kh.app.currentLesson, nil)
}

// handleLessonActions covers the keys shared between list and reader views.
func (kh *KeyHandler) handleLessonActions(key string, lesson *storage.Lesson, open func() (tea.Model, tea.Cmd)) (tea.Model, tea.Cmd, bool) {
	b := kh.bindings

	switch key {
	case "enter":
		if open != nil {
			model, cmd := open()
			return model, cmd, true
		}
	case b.Download:
		cmd := kh.app.setStatus(MsgDownloading, StatusInfo)
		return kh.app, tea.Batch(cmd, kh.app.startDownload(lesson)), true
	case b.MarkComplete:
		cmd := kh.app.setStatus(MsgMarking, StatusInfo)
		return kh.app, tea.Batch(cmd, kh.app.markComplete(lesson)), true
	case b.SubmitQuiz:
		kh.app.currentLesson = lesson
		kh.app.previousView = kh.app.view
		kh.app.view = ViewQuiz
		kh.app.quizInput.Reset()
		kh.app.quizInput.Focus()
		return kh.app, nil, true
	case b.OpenMedia:
		return kh.app, kh.app.openLesson(lesson), true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleSearchListKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "enter":
		if i, ok := kh.app.searchList.SelectedItem().(lessonResultItem); ok {
			model, cmd := kh.selectSearchResult(i)
			return model, cmd, true
		}
	case "tab", "up":
		if kh.app.searchList.Index() == 0 {
			kh.app.searchInput.Focus()
			return kh.app, nil, true
		}
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) openReader(lesson *storage.Lesson) (tea.Model, tea.Cmd) {
	kh.app.currentLesson = lesson
	kh.app.previousView = kh.app.view
	kh.app.view = ViewReader
	return kh.app, kh.app.renderLesson(lesson)
}

func (kh *KeyHandler) selectSearchResult(item lessonResultItem) (tea.Model, tea.Cmd) {
	kh.app.searchInput.Blur()
	return kh.openReader(item.lesson)
}

func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd) {
	kh.app.previousView = kh.app.view
	kh.app.view = ViewSearch
	kh.app.searchInput.Reset()
	kh.app.searchInput.Focus()
	kh.app.searchList.SetItems(nil)
	kh.app.searchResults = nil
	return kh.app, nil
}

func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewReader, ViewSearch, ViewQuiz:
		kh.app.searchInput.Blur()
		kh.app.quizInput.Blur()
		kh.app.view = ViewLessons
		kh.app.currentLesson = nil
		kh.app.err = nil
		return kh.app, kh.app.loadLessons()
	default:
		return kh.app, nil
	}
}

func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewLessons:
		newListModel, cmd := kh.app.lessonList.Update(msg)
		kh.app.lessonList = newListModel
		return kh.app, cmd
	case ViewSearch:
		newListModel, cmd := kh.app.searchList.Update(msg)
		kh.app.searchList = newListModel
		return kh.app, cmd
	case ViewReader:
		newViewport, cmd := kh.app.viewport.Update(msg)
		kh.app.viewport = newViewport
		return kh.app, cmd
	default:
		return kh.app, nil
	}
}

// GetHelpForCurrentView returns only our custom help text (Charm handles the rest)
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	b := kh.bindings

	switch kh.app.view {
	case ViewLessons:
		return []string{
			"enter: read",
			b.Download + ": download",
			b.MarkComplete + ": complete",
			b.SubmitQuiz + ": quiz",
			b.Search + ": search",
			b.Refresh + ": refresh",
			b.Quit + ": quit",
		}
	case ViewReader:
		return []string{
			b.OpenMedia + ": open",
			b.Download + ": download",
			b.MarkComplete + ": complete",
			b.SubmitQuiz + ": quiz",
			b.Back + ": back",
		}
	case ViewSearch:
		return []string{"enter: open", b.Back + ": back"}
	case ViewQuiz:
		return []string{"enter: submit", b.Back + ": cancel"}
	default:
		return nil
	}
}
