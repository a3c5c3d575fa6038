package media

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/psodhi/vidyasetu/internal/config"
)

type Type int

const (
	TypeVideo Type = iota
	TypePDF
	TypeText
	TypeUnknown
)

var videoExtensions = []string{"mp4", "mkv", "webm", "avi", "mov", "m4v", "3gp"}

type Launcher struct {
	videoPlayer   string
	pdfViewer     string
	defaultOpener string
	registry      *PlayerRegistry
}

func NewLauncher(cfg *config.Config) *Launcher {
	registry, err := NewPlayerRegistry()
	if err != nil {
		// Continue with basic functionality if player definitions can't be loaded
		registry = &PlayerRegistry{players: make(map[string]PlayerDefinition)}
	}

	defaultOpener := cfg.Media.DefaultOpener
	if defaultOpener == "" {
		defaultOpener = fallbackOpener()
	}

	l := &Launcher{
		defaultOpener: defaultOpener,
		registry:      registry,
	}

	var players config.MediaPlayers
	switch runtime.GOOS {
	case "darwin":
		players = cfg.Media.Darwin
	case "linux":
		players = cfg.Media.Linux
	case "windows":
		players = cfg.Media.Windows
	default:
		players = cfg.Media.Linux
	}

	if len(players.Video) > 0 {
		l.videoPlayer = registry.FindAvailablePlayer(players.Video)
	}
	if len(players.PDF) > 0 {
		l.pdfViewer = registry.FindAvailablePlayer(players.PDF)
	}

	if l.videoPlayer == "" {
		l.videoPlayer = l.defaultOpener
	}
	if l.pdfViewer == "" {
		l.pdfViewer = l.defaultOpener
	}

	return l
}

// OpenLesson launches the appropriate external viewer for a downloaded
// lesson. Text lessons are rendered inline and never reach the launcher.
func (l *Launcher) OpenLesson(lessonType, path string) error {
	mediaType := DetectType(lessonType, path)

	var playerName string
	switch mediaType {
	case TypeVideo:
		playerName = l.videoPlayer
	case TypePDF:
		playerName = l.pdfViewer
	case TypeText:
		return fmt.Errorf("text lessons are rendered inline")
	default:
		playerName = l.defaultOpener
	}

	if playerName == "" {
		return fmt.Errorf("no application found to open %s", path)
	}

	cmd, err := l.registry.GetCommand(playerName, mediaType, path)
	if err != nil {
		cmd = exec.Command(playerName, path)
	}

	// Start GUI applications detached
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", playerName, err)
	}

	go func() {
		_ = cmd.Wait()
	}()

	return nil
}

// DetectType maps a lesson type to a media type, falling back to the
// file extension when the lesson type is unrecognized.
func DetectType(lessonType, path string) Type {
	switch strings.ToLower(lessonType) {
	case "video":
		return TypeVideo
	case "pdf":
		return TypePDF
	case "text":
		return TypeText
	}

	lower := strings.ToLower(path)
	if idx := strings.LastIndex(lower, "."); idx != -1 {
		ext := lower[idx+1:]
		if qIdx := strings.Index(ext, "?"); qIdx != -1 {
			ext = ext[:qIdx]
		}
		for _, e := range videoExtensions {
			if ext == e {
				return TypeVideo
			}
		}
		if ext == "pdf" {
			return TypePDF
		}
		if ext == "txt" || ext == "md" || ext == "html" {
			return TypeText
		}
	}

	return TypeUnknown
}

func fallbackOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}
