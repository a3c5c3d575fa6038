package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/psodhi/vidyasetu/internal/catalog"
	"github.com/psodhi/vidyasetu/internal/client"
	"github.com/psodhi/vidyasetu/internal/config"
	"github.com/psodhi/vidyasetu/internal/debuglog"
	"github.com/psodhi/vidyasetu/internal/download"
	"github.com/psodhi/vidyasetu/internal/media"
	"github.com/psodhi/vidyasetu/internal/netmon"
	"github.com/psodhi/vidyasetu/internal/search"
	"github.com/psodhi/vidyasetu/internal/storage"
	"github.com/psodhi/vidyasetu/internal/syncq"
	"github.com/psodhi/vidyasetu/internal/tui"
	"github.com/psodhi/vidyasetu/internal/validation"
	"github.com/psodhi/vidyasetu/internal/webcache"
)

// Version is the version of the application, set at build time
var Version = "dev"

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "vidyasetu %s\n", Version)
	fmt.Fprintln(w, "Offline learning companion")
	fmt.Fprintln(w, "github.com/psodhi/vidyasetu")
}

func writeDefaultConfig() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configFile := filepath.Join(home, ".config", "vidyasetu", "config.toml")
	if err := config.GenerateDefaultConfig(configFile); err != nil {
		return "", err
	}
	return configFile, nil
}

func main() {
	var (
		dbPath         = flag.String("db", "", "Path to database file (overrides config)")
		configPath     = flag.String("config", "", "Path to configuration file")
		serverURL      = flag.String("server", "", "School server URL (overrides config)")
		generateConfig = flag.Bool("generate-config", false, "Generate default config file")
		version        = flag.Bool("version", false, "Show version information")
		quiet          = flag.Bool("quiet", false, "Skip startup banner")
		debug          = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if *version {
		printVersion(os.Stdout)
		return
	}

	if *generateConfig {
		configFile, err := writeDefaultConfig()
		if err != nil {
			log.Fatalf("Failed to generate config: %v", err)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
		return
	}

	if !*quiet {
		tui.ShowBanner(Version)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *serverURL != "" {
		cfg.Server.BaseURL = *serverURL
	}

	debuglog.SetupWithBool(*debug)
	defer debuglog.Close()

	urlValidator := validation.NewPermissiveServerURLValidator()
	baseURL, err := urlValidator.ValidateAndNormalize(cfg.Server.BaseURL)
	if err != nil {
		log.Fatalf("Invalid server URL %q: %v", cfg.Server.BaseURL, err)
	}

	paths := validation.NewSecurePathHandler()
	securePath, err := paths.GetSecureDBPath(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Invalid database path: %v", err)
	}
	indexPath, err := paths.GetSecureIndexPath(cfg.Database.SearchIndex)
	if err != nil {
		log.Fatalf("Invalid search index path: %v", err)
	}

	store := storage.New(securePath, cfg.Database.Timeout)
	if err := store.Open(); err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Plain client for submissions and sync replay; responses from these
	// endpoints must never be served stale.
	plainClient := &http.Client{Timeout: cfg.Server.HTTPTimeout}

	// Page and asset traffic goes through the caching interceptor so
	// previously seen responses survive outages.
	interceptor, err := webcache.NewInterceptor(store, http.DefaultTransport, baseURL, cfg.Cache.Version)
	if err != nil {
		log.Fatalf("Failed to build cache interceptor: %v", err)
	}
	if err := interceptor.Activate(); err != nil {
		log.Fatalf("Failed to activate cache: %v", err)
	}
	cachingClient := &http.Client{
		Timeout:   cfg.Server.HTTPTimeout,
		Transport: interceptor,
	}
	go interceptor.Precache(ctx)

	monitor := netmon.NewMonitor(baseURL+"/manifest.json", cfg.Network.ProbeInterval, cfg.Network.ProbeTimeout)
	monitor.Start(ctx)
	defer monitor.Stop()

	agent := syncq.NewAgent(store, plainClient, cfg.Sync.MaxRecordAge)
	agent.Attach(monitor)

	apiClient, err := client.New(baseURL, plainClient, store, agent, monitor, cfg.Server.CSRFToken, cfg.Server.SessionCookie)
	if err != nil {
		log.Fatalf("Failed to build client: %v", err)
	}

	catalogMgr, err := catalog.NewManager(store, cachingClient, baseURL, cfg.Catalog.UserAgent, cfg.Catalog.RefreshInterval)
	if err != nil {
		log.Fatalf("Failed to build catalog manager: %v", err)
	}

	downloads := download.NewManager(cachingClient, store)

	searcher, err := search.NewBleveEngine(store, indexPath)
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	defer searcher.Close()

	launcher := media.NewLauncher(cfg)

	app := tui.NewApp(cfg, tui.Deps{
		Store:     store,
		Catalog:   catalogMgr,
		Downloads: downloads,
		Agent:     agent,
		Client:    apiClient,
		Monitor:   monitor,
		Searcher:  searcher,
		Launcher:  launcher,
	})

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
