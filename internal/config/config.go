package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Network  NetworkConfig  `mapstructure:"network"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	UI       UIConfig       `mapstructure:"ui"`
	Media    MediaConfig    `mapstructure:"media"`
	Keys     KeyConfig      `mapstructure:"keys"`
}

type ServerConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	CSRFToken     string        `mapstructure:"csrf_token"`
	SessionCookie string        `mapstructure:"session_cookie"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

type SyncConfig struct {
	// MaxRecordAge evicts queued submissions older than this at flush time.
	// Zero keeps the queue unbounded.
	MaxRecordAge time.Duration `mapstructure:"max_record_age"`
}

type CacheConfig struct {
	// Version suffixes the cache tier names; bumping it discards every
	// previously cached response on the next activation.
	Version string `mapstructure:"version"`
}

type NetworkConfig struct {
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
}

type CatalogConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	UserAgent       string        `mapstructure:"user_agent"`
}

type UIConfig struct {
	Colors        UIColors      `mapstructure:"colors"`
	ToastDuration time.Duration `mapstructure:"toast_duration"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type MediaConfig struct {
	Darwin        MediaPlayers `mapstructure:"darwin"`
	Linux         MediaPlayers `mapstructure:"linux"`
	Windows       MediaPlayers `mapstructure:"windows"`
	DefaultOpener string       `mapstructure:"default_opener"`
}

type MediaPlayers struct {
	Video []string `mapstructure:"video"`
	PDF   []string `mapstructure:"pdf"`
}

type KeyConfig struct {
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit         string `mapstructure:"quit"`
	Search       string `mapstructure:"search"`
	Download     string `mapstructure:"download"`
	MarkComplete string `mapstructure:"mark_complete"`
	SubmitQuiz   string `mapstructure:"submit_quiz"`
	Refresh      string `mapstructure:"refresh"`
	OpenMedia    string `mapstructure:"open_media"`
	Back         string `mapstructure:"back"`
	Help         string `mapstructure:"help"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".vidyasetu", "vidyasetu.db")
	searchIndexPath := filepath.Join(homeDir, ".vidyasetu", "index.bleve")

	return &Config{
		Server: ServerConfig{
			BaseURL:     "http://localhost:8000",
			HTTPTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:        dbPath,
			Timeout:     1 * time.Second,
			SearchIndex: searchIndexPath,
		},
		Sync: SyncConfig{
			MaxRecordAge: 30 * 24 * time.Hour,
		},
		Cache: CacheConfig{
			Version: "v2",
		},
		Network: NetworkConfig{
			ProbeInterval: 15 * time.Second,
			ProbeTimeout:  5 * time.Second,
		},
		Catalog: CatalogConfig{
			RefreshInterval: 5 * time.Minute,
			UserAgent:       "vidyasetu/1.0 (https://github.com/psodhi/vidyasetu)",
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#FF6B6B",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			ToastDuration: 5 * time.Second,
		},
		Media: MediaConfig{
			Darwin: MediaPlayers{
				Video: []string{"iina", "mpv", "vlc"},
				PDF:   []string{"preview", "open"},
			},
			Linux: MediaPlayers{
				Video: []string{"mpv", "vlc", "mplayer"},
				PDF:   []string{"zathura", "evince", "xdg-open"},
			},
			Windows: MediaPlayers{
				Video: []string{"mpv", "vlc"},
				PDF:   []string{"start"},
			},
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Bindings: KeyBindings{
				Quit:         "q",
				Search:       "s",
				Download:     "d",
				MarkComplete: "m",
				SubmitQuiz:   "a",
				Refresh:      "r",
				OpenMedia:    "o",
				Back:         "esc",
				Help:         "?",
			},
		},
	}
}

func getDefaultOpener() string {
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

func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	v.SetDefault("server", cfg.Server)
	v.SetDefault("database", cfg.Database)
	v.SetDefault("sync", cfg.Sync)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("network", cfg.Network)
	v.SetDefault("catalog", cfg.Catalog)
	v.SetDefault("ui", cfg.UI)
	v.SetDefault("media", cfg.Media)
	v.SetDefault("keys", cfg.Keys)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "vidyasetu")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VIDYASETU")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	return &config, nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Convert durations to strings for TOML readability
	serverCfg := map[string]interface{}{
		"base_url":       config.Server.BaseURL,
		"csrf_token":     config.Server.CSRFToken,
		"session_cookie": config.Server.SessionCookie,
		"http_timeout":   config.Server.HTTPTimeout.String(),
	}

	dbCfg := map[string]interface{}{
		"path":         config.Database.Path,
		"timeout":      config.Database.Timeout.String(),
		"search_index": config.Database.SearchIndex,
	}

	syncCfg := map[string]interface{}{
		"max_record_age": config.Sync.MaxRecordAge.String(),
	}

	networkCfg := map[string]interface{}{
		"probe_interval": config.Network.ProbeInterval.String(),
		"probe_timeout":  config.Network.ProbeTimeout.String(),
	}

	catalogCfg := map[string]interface{}{
		"refresh_interval": config.Catalog.RefreshInterval.String(),
		"user_agent":       config.Catalog.UserAgent,
	}

	uiCfg := map[string]interface{}{
		"colors":         config.UI.Colors,
		"toast_duration": config.UI.ToastDuration.String(),
	}

	v.Set("server", serverCfg)
	v.Set("database", dbCfg)
	v.Set("sync", syncCfg)
	v.Set("cache", config.Cache)
	v.Set("network", networkCfg)
	v.Set("catalog", catalogCfg)
	v.Set("ui", uiCfg)
	v.Set("media", config.Media)
	v.Set("keys", config.Keys)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
