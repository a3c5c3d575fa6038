package media

import (
	"runtime"
	"strings"
	"testing"
)

func TestNewPlayerRegistry(t *testing.T) {
	registry, err := NewPlayerRegistry()
	if err != nil {
		t.Fatalf("NewPlayerRegistry() error = %v", err)
	}

	if len(registry.players) == 0 {
		t.Error("NewPlayerRegistry() loaded no players from embedded config")
	}

	if _, ok := registry.players["mpv"]; !ok {
		t.Error("expected mpv in embedded player definitions")
	}
}

func TestGetCommandKnownPlayer(t *testing.T) {
	registry, err := NewPlayerRegistry()
	if err != nil {
		t.Fatal(err)
	}

	cmd, err := registry.GetCommand("mpv", TypeVideo, "/tmp/lesson.mp4")
	if err != nil {
		t.Fatalf("GetCommand(mpv) error = %v", err)
	}

	if !strings.Contains(cmd.Path, "mpv") && cmd.Args[0] != "mpv" {
		t.Errorf("expected mpv command, got %v", cmd.Args)
	}
	last := cmd.Args[len(cmd.Args)-1]
	if last != "/tmp/lesson.mp4" {
		t.Errorf("expected path as final arg, got %q", last)
	}
}

func TestGetCommandUnknownPlayer(t *testing.T) {
	registry, err := NewPlayerRegistry()
	if err != nil {
		t.Fatal(err)
	}

	// Unknown players get a plain invocation with no special args.
	cmd, err := registry.GetCommand("some-player", TypeVideo, "/tmp/x.mp4")
	if err != nil {
		t.Fatalf("GetCommand(some-player) error = %v", err)
	}
	if len(cmd.Args) != 2 {
		t.Errorf("expected bare invocation, got %v", cmd.Args)
	}
}

func TestGetCommandUnsupportedMediaType(t *testing.T) {
	registry, err := NewPlayerRegistry()
	if err != nil {
		t.Fatal(err)
	}

	// mpv has no pdf section in the embedded config.
	if _, err := registry.GetCommand("mpv", TypePDF, "/tmp/x.pdf"); err == nil {
		t.Error("expected error for unsupported media type")
	}
}

func TestGetCommandUnsupportedPlatform(t *testing.T) {
	registry, err := NewPlayerRegistry()
	if err != nil {
		t.Fatal(err)
	}

	var player string
	switch runtime.GOOS {
	case "darwin":
		player = "zathura"
	default:
		player = "iina"
	}

	if _, err := registry.GetCommand(player, TypeVideo, "/tmp/x.mp4"); err == nil {
		t.Errorf("expected platform error for %s on %s", player, runtime.GOOS)
	}
}

func TestFindAvailablePlayer(t *testing.T) {
	registry, err := NewPlayerRegistry()
	if err != nil {
		t.Fatal(err)
	}

	if got := registry.FindAvailablePlayer([]string{"definitely-not-installed-player"}); got != "" {
		t.Errorf("expected empty string for missing players, got %q", got)
	}

	// sh exists on unix systems.
	if runtime.GOOS != "windows" {
		if got := registry.FindAvailablePlayer([]string{"definitely-not-installed-player", "sh"}); got != "sh" {
			t.Errorf("expected sh, got %q", got)
		}
	}
}
