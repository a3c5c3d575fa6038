package config

import "time"

// TestConfig returns a config suitable for tests: short timeouts,
// temp-friendly defaults, no real home-directory paths.
func TestConfig() *Config {
	cfg := defaultConfig()

	cfg.Server.BaseURL = "http://localhost:8000"
	cfg.Server.HTTPTimeout = 2 * time.Second

	cfg.Database.Path = "test.db"
	cfg.Database.Timeout = 100 * time.Millisecond
	cfg.Database.SearchIndex = "test.bleve"

	cfg.Sync.MaxRecordAge = time.Hour

	cfg.Network.ProbeInterval = 50 * time.Millisecond
	cfg.Network.ProbeTimeout = 50 * time.Millisecond

	cfg.Catalog.RefreshInterval = time.Minute
	cfg.Catalog.UserAgent = "vidyasetu-test/1.0"

	cfg.UI.ToastDuration = 100 * time.Millisecond

	return cfg
}
