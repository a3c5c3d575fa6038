package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/psodhi/vidyasetu/internal/catalog"
	"github.com/psodhi/vidyasetu/internal/client"
	"github.com/psodhi/vidyasetu/internal/config"
	"github.com/psodhi/vidyasetu/internal/download"
	"github.com/psodhi/vidyasetu/internal/media"
	"github.com/psodhi/vidyasetu/internal/netmon"
	"github.com/psodhi/vidyasetu/internal/search"
	"github.com/psodhi/vidyasetu/internal/storage"
	"github.com/psodhi/vidyasetu/internal/syncq"
)

// Deps bundles the services the TUI drives.
type Deps struct {
	Store     *storage.Store
	Catalog   *catalog.Manager
	Downloads *download.Manager
	Agent     *syncq.Agent
	Client    *client.Client
	Monitor   *netmon.Monitor
	Searcher  search.Searcher
	Launcher  *media.Launcher
}

type App struct {
	config    *config.Config
	store     *storage.Store
	catalog   *catalog.Manager
	downloads *download.Manager
	agent     *syncq.Agent
	client    *client.Client
	monitor   *netmon.Monitor
	searcher  search.Searcher
	launcher  *media.Launcher

	keyHandler *KeyHandler

	lessonList  list.Model
	searchList  list.Model
	searchInput textinput.Model
	quizInput   textinput.Model
	viewport    viewport.Model

	view         View
	previousView View

	lessons       []*storage.Lesson
	currentLesson *storage.Lesson
	searchResults []lessonResultItem

	online      bool
	queuedCount int

	statusText string
	statusKind StatusKind
	statusSeq  int

	width  int
	height int
	err    error

	glamourRenderer *glamour.TermRenderer
	rendererWidth   int

	// events carries notifications from background services into the
	// bubbletea loop.
	events chan tea.Msg
}

func NewApp(cfg *config.Config, deps Deps) *App {
	lessonList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	lessonList.Title = "› lessons"
	lessonList.SetShowStatusBar(false)
	lessonList.SetFilteringEnabled(true)
	lessonList.SetShowHelp(true)

	searchList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	searchList.Title = "› search results"
	searchList.SetShowStatusBar(false)
	searchList.SetShowHelp(false)
	searchList.SetFilteringEnabled(false)

	vp := viewport.New(0, 0)

	si := textinput.New()
	si.Placeholder = "Search lessons..."

	qi := textinput.New()
	qi.Placeholder = "Your answer..."

	app := &App{
		config:        cfg,
		store:         deps.Store,
		catalog:       deps.Catalog,
		downloads:     deps.Downloads,
		agent:         deps.Agent,
		client:        deps.Client,
		monitor:       deps.Monitor,
		searcher:      deps.Searcher,
		launcher:      deps.Launcher,
		lessonList:    lessonList,
		searchList:    searchList,
		searchInput:   si,
		quizInput:     qi,
		viewport:      vp,
		view:          ViewLessons,
		previousView:  ViewLessons,
		searchResults: []lessonResultItem{},
		online:        true,
		events:        make(chan tea.Msg, 32),
	}

	if deps.Monitor != nil {
		app.online = deps.Monitor.IsOnline()
		deps.Monitor.OnStatusChange(func(online bool) {
			app.post(networkStatusMsg{online: online})
		})
	}
	if deps.Downloads != nil {
		deps.Downloads.SetNotifier(func(ev download.Event) {
			app.post(downloadEventMsg{event: ev})
		})
	}
	if deps.Agent != nil {
		app.queuedCount = deps.Agent.QueuedCount()
		deps.Agent.SetNotifier(func(result syncq.FlushResult) {
			app.post(syncFlushedMsg{result: result})
		})
	}

	app.keyHandler = NewKeyHandler(app, cfg)

	return app
}

// post hands a message from a background goroutine to the update loop.
// Drops the message rather than blocking a service callback.
func (a *App) post(msg tea.Msg) {
	select {
	case a.events <- msg:
	default:
	}
}

func (a *App) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		return <-a.events
	}
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > 120 {
		wordWrapWidth = 120
	}
	if wordWrapWidth < 40 {
		wordWrapWidth = 40
	}
	if a.width < 50 {
		wordWrapWidth = a.width - 4
		if wordWrapWidth < 20 {
			wordWrapWidth = 20
		}
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.loadLessons(),
		a.listenForEvents(),
		tea.EnterAltScreen,
	)
}

// setStatus records a toast and returns the command that clears it.
func (a *App) setStatus(text string, kind StatusKind) tea.Cmd {
	a.statusText = text
	a.statusKind = kind
	a.statusSeq++
	seq := a.statusSeq
	duration := a.config.UI.ToastDuration
	if duration <= 0 {
		return nil
	}
	return tea.Tick(duration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.lessonList.SetSize(msg.Width, msg.Height-3)
		searchListHeight := msg.Height - 10
		if searchListHeight < 5 {
			searchListHeight = 5
		}
		a.searchList.SetSize(msg.Width, searchListHeight)
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 3

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case lessonsLoadedMsg:
		a.lessons = msg.lessons
		items := make([]list.Item, len(msg.lessons))
		for i, l := range msg.lessons {
			items[i] = lessonItem{
				lesson:      l,
				downloaded:  msg.downloaded[l.ID],
				downloading: msg.downloading[l.ID],
			}
		}
		a.lessonList.SetItems(items)

	case catalogRefreshedMsg:
		if msg.err != nil {
			if a.online {
				cmds = append(cmds, a.setStatus(fmt.Sprintf("Refresh failed: %v", msg.err), StatusError))
			} else {
				cmds = append(cmds, a.setStatus("Offline - showing saved catalog", StatusWarn))
			}
		} else {
			cmds = append(cmds, a.setStatus(MsgCatalogRefreshed(msg.count), StatusSuccess))
		}
		cmds = append(cmds, a.loadLessons())

	case lessonRenderedMsg:
		if a.view == ViewReader {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
		}

	case downloadEventMsg:
		cmds = append(cmds, a.listenForEvents())
		switch msg.event.Status {
		case download.StatusCompleted:
			title := msg.event.LessonID
			for _, l := range a.lessons {
				if l.ID == msg.event.LessonID {
					title = l.Title
					break
				}
			}
			if listener, ok := a.searcher.(search.UpdateListener); ok {
				listener.OnLessonDownloaded(msg.event.LessonID)
			}
			cmds = append(cmds, a.setStatus(MsgDownloadDone(title), StatusSuccess), a.loadLessons())
		case download.StatusFailed:
			cmds = append(cmds, a.setStatus(fmt.Sprintf("Download failed: %v", msg.event.Err), StatusError), a.loadLessons())
		default:
			cmds = append(cmds, a.loadLessons())
		}

	case syncFlushedMsg:
		cmds = append(cmds, a.listenForEvents())
		a.queuedCount = a.agent.QueuedCount()
		if msg.result.Delivered > 0 {
			cmds = append(cmds, a.setStatus(MsgSyncSummary(msg.result.Delivered, msg.result.Remaining), StatusSuccess))
		}

	case networkStatusMsg:
		cmds = append(cmds, a.listenForEvents())
		a.online = msg.online
		if msg.online {
			cmds = append(cmds, a.setStatus(MsgBackOnline, StatusSuccess))
		} else {
			cmds = append(cmds, a.setStatus(MsgWentOffline, StatusWarn))
		}

	case quizSubmittedMsg:
		a.queuedCount = a.agent.QueuedCount()
		switch {
		case msg.err != nil && msg.outcome == client.OutcomeSent:
			cmds = append(cmds, a.setStatus(fmt.Sprintf("Submission rejected: %v", msg.err), StatusError))
		case msg.outcome == client.OutcomeQueued:
			cmds = append(cmds, a.setStatus(MsgQueuedOffline, StatusWarn))
		default:
			cmds = append(cmds, a.setStatus("Answer submitted", StatusSuccess))
		}

	case progressMarkedMsg:
		a.queuedCount = a.agent.QueuedCount()
		switch {
		case msg.err != nil && msg.outcome == client.OutcomeSent:
			cmds = append(cmds, a.setStatus(fmt.Sprintf("Update rejected: %v", msg.err), StatusError))
		case msg.outcome == client.OutcomeQueued:
			cmds = append(cmds, a.setStatus(MsgQueuedOffline, StatusWarn))
		default:
			cmds = append(cmds, a.setStatus("Lesson marked complete", StatusSuccess))
		}

	case searchResultsMsg:
		if a.view == ViewSearch {
			a.searchResults = msg.results
			items := make([]list.Item, len(msg.results))
			for i, result := range msg.results {
				items[i] = result
			}
			a.searchList.SetItems(items)
		}

	case toastExpiredMsg:
		if msg.seq == a.statusSeq {
			a.statusText = ""
		}

	case errorMsg:
		a.err = msg.err
	}

	switch a.view {
	case ViewLessons:
		newListModel, cmd := a.lessonList.Update(msg)
		a.lessonList = newListModel
		cmds = append(cmds, cmd)
	case ViewReader:
		switch msg.(type) {
		case tea.KeyMsg, tea.WindowSizeMsg, tea.MouseMsg:
			newViewport, cmd := a.viewport.Update(msg)
			a.viewport = newViewport
			cmds = append(cmds, cmd)
		}
	case ViewQuiz:
		newQuizInput, cmd := a.quizInput.Update(msg)
		a.quizInput = newQuizInput
		cmds = append(cmds, cmd)
	case ViewSearch:
		newSearchInput, cmd := a.searchInput.Update(msg)
		a.searchInput = newSearchInput
		cmds = append(cmds, cmd)

		newSearchList, listCmd := a.searchList.Update(msg)
		a.searchList = newSearchList
		cmds = append(cmds, listCmd)

		searchQuery := a.searchInput.Value()
		if len(searchQuery) > 1 {
			cmds = append(cmds, a.performSearch(searchQuery))
		}
	}

	return a, tea.Batch(cmds...)
}

func (a *App) View() string {
	var content string

	switch a.view {
	case ViewLessons:
		if len(a.lessons) == 0 {
			content = renderCentered(a.width, a.height-3, GetWelcomeMessage())
		} else {
			content = a.lessonList.View()
		}
	case ViewReader:
		content = a.viewport.View()
	case ViewQuiz:
		title := "› quiz"
		if a.currentLesson != nil {
			title = "› quiz: " + truncateEnd(a.currentLesson.Title, a.width-10)
		}
		content = renderCentered(a.width, a.height-3,
			lipgloss.JoinVertical(
				lipgloss.Center,
				TitleStyle.Render(title),
				"",
				renderInputFrame(a.quizInput.View(), a.quizInput.Focused(), a.width-12),
				"",
				renderHelp("Press Enter to submit, Esc to cancel"),
			),
		)
	case ViewSearch:
		searchInputWidth := a.width - 8
		if searchInputWidth < 10 {
			searchInputWidth = a.width - 4
		}
		a.searchInput.Width = searchInputWidth

		helpText := ""
		if a.searchInput.Focused() {
			helpText = "Type to search • Tab/↓: results • Esc: back"
		} else if len(a.searchList.Items()) > 0 {
			helpText = "↑↓: navigate • Enter: open • Tab/↑: search box • Esc: back"
		} else {
			helpText = "No results found • Tab/↑: search box • Esc: back"
		}

		searchContent := lipgloss.JoinVertical(
			lipgloss.Top,
			renderHeader("› search", "", a.width),
			"",
			renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), searchInputWidth),
			renderMuted(helpText),
			"",
			a.searchList.View(),
		)

		content = lipgloss.NewStyle().
			Width(a.width).
			Height(a.height - 3).
			MaxHeight(a.height - 3).
			Render(searchContent)
	}

	statusBar := a.renderStatusBar()
	separatorWidth := a.width - 1
	if separatorWidth < 0 {
		separatorWidth = 0
	}
	separator := SeparatorStyle.Render(strings.Repeat("─", separatorWidth+1))

	return lipgloss.JoinVertical(lipgloss.Top, content, separator, statusBar)
}

func (a *App) renderStatusBar() string {
	var indicator string
	if a.online {
		indicator = OnlineStyle.Render("● online")
	} else {
		indicator = OfflineStyle.Render("○ offline")
	}

	parts := []string{indicator}
	if a.queuedCount > 0 {
		parts = append(parts, StatusWarnStyle.Render(fmt.Sprintf("%d queued", a.queuedCount)))
	}

	if a.err != nil {
		parts = append(parts, StatusErrorStyle.Render(fmt.Sprintf("✗ %v", a.err)))
	} else if a.statusText != "" {
		parts = append(parts, styleForKind(a.statusKind).Render(a.statusText))
	} else if commands := a.keyHandler.GetHelpForCurrentView(); len(commands) > 0 {
		parts = append(parts, renderMuted(strings.Join(commands, " • ")))
	}

	return StatusBarStyle.Width(a.width).Render(strings.Join(parts, "  "))
}

type lessonItem struct {
	lesson      *storage.Lesson
	downloaded  bool
	downloading bool
}

func (i lessonItem) Title() string {
	switch {
	case i.downloading:
		return PendingItemStyle.Render("⇣ " + i.lesson.Title)
	case i.downloaded:
		return DownloadedItemStyle.Render("✓ " + i.lesson.Title)
	default:
		return i.lesson.Title
	}
}

func (i lessonItem) Description() string {
	desc := truncateEnd(i.lesson.Description, 60)
	meta := i.lesson.LessonType
	if i.lesson.Language != "" {
		meta += " • " + languageName(i.lesson.Language)
	}
	return renderMuted(desc) + TimeStyle.Render(" • "+meta)
}

func (i lessonItem) FilterValue() string { return i.lesson.Title }

func languageName(code string) string {
	switch code {
	case "en":
		return "English"
	case "hi":
		return "हिंदी"
	case "pa":
		return "ਪੰਜਾਬੀ"
	default:
		return code
	}
}

type lessonResultItem struct {
	lesson     *storage.Lesson
	score      float64
	downloaded bool
}

func (i lessonResultItem) Title() string {
	if i.downloaded {
		return DownloadedItemStyle.Render("✓ " + i.lesson.Title)
	}
	return i.lesson.Title
}

func (i lessonResultItem) Description() string {
	desc := truncateEnd(i.lesson.Description, 50)
	return renderMuted(desc + " • " + i.lesson.LessonType)
}

func (i lessonResultItem) FilterValue() string {
	return i.lesson.Title + " " + i.lesson.Description
}

type lessonsLoadedMsg struct {
	lessons     []*storage.Lesson
	downloaded  map[string]bool
	downloading map[string]bool
}

type catalogRefreshedMsg struct {
	count int
	err   error
}

type lessonRenderedMsg struct {
	content string
}

type downloadEventMsg struct {
	event download.Event
}

type syncFlushedMsg struct {
	result syncq.FlushResult
}

type networkStatusMsg struct {
	online bool
}

type quizSubmittedMsg struct {
	outcome client.Outcome
	err     error
}

type progressMarkedMsg struct {
	outcome client.Outcome
	err     error
}

type searchResultsMsg struct {
	results []lessonResultItem
}

type toastExpiredMsg struct {
	seq int
}

type errorMsg struct {
	err error
}
