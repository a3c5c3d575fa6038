package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	if s == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestQuitKey(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.keyHandler.HandleKey(keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}

func TestSearchKeyEntersSearchMode(t *testing.T) {
	app := newTestApp(t)

	app.keyHandler.HandleKey(keyMsg("s"))

	if app.view != ViewSearch {
		t.Errorf("expected search view, got %v", app.view)
	}
	if !app.searchInput.Focused() {
		t.Error("expected search input focused")
	}
}

func TestEscReturnsToLessons(t *testing.T) {
	app := newTestApp(t)
	app.view = ViewReader
	app.currentLesson = sampleLessons()[0]

	app.keyHandler.HandleKey(keyMsg("esc"))

	if app.view != ViewLessons {
		t.Errorf("expected lessons view, got %v", app.view)
	}
	if app.currentLesson != nil {
		t.Error("expected current lesson cleared")
	}
}

func TestQuizKeyOpensQuizInput(t *testing.T) {
	app := newTestApp(t)
	app.Update(lessonsLoadedMsg{lessons: sampleLessons(), downloaded: map[string]bool{}})

	app.keyHandler.HandleKey(keyMsg("a"))

	if app.view != ViewQuiz {
		t.Errorf("expected quiz view, got %v", app.view)
	}
	if app.currentLesson == nil {
		t.Fatal("expected a current lesson")
	}
	if !app.quizInput.Focused() {
		t.Error("expected quiz input focused")
	}
}

func TestQuizEmptyAnswerNotSubmitted(t *testing.T) {
	app := newTestApp(t)
	app.view = ViewQuiz
	app.currentLesson = sampleLessons()[0]
	app.quizInput.Focus()
	app.quizInput.SetValue("   ")

	_, cmd := app.keyHandler.HandleKey(keyMsg("enter"))

	if app.view != ViewQuiz {
		t.Error("expected to stay in quiz view")
	}
	if cmd != nil {
		t.Error("expected no submit command for empty answer")
	}
}

func TestEnterOpensReader(t *testing.T) {
	app := newTestApp(t)
	app.Update(lessonsLoadedMsg{lessons: sampleLessons(), downloaded: map[string]bool{}})

	app.keyHandler.HandleKey(keyMsg("enter"))

	if app.view != ViewReader {
		t.Errorf("expected reader view, got %v", app.view)
	}
	if app.currentLesson == nil {
		t.Error("expected current lesson set")
	}
}

func TestHelpTextPerView(t *testing.T) {
	app := newTestApp(t)

	for _, view := range []View{ViewLessons, ViewReader, ViewSearch, ViewQuiz} {
		app.view = view
		if len(app.keyHandler.GetHelpForCurrentView()) == 0 {
			t.Errorf("expected help text for view %v", view)
		}
	}
}

func TestSearchTypingIsCapturedByInput(t *testing.T) {
	app := newTestApp(t)
	app.keyHandler.HandleKey(keyMsg("s"))

	// Keys typed while the search input is focused should not trigger
	// lesson actions.
	app.keyHandler.HandleKey(keyMsg("d"))

	if app.view != ViewSearch {
		t.Errorf("expected to stay in search view, got %v", app.view)
	}
	if app.searchInput.Value() != "d" {
		t.Errorf("expected input to capture key, got %q", app.searchInput.Value())
	}
}
