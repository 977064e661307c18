package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imdbratings/internal/config"
)

func TestLoadDefaultConfigUsesEnvFallbacksAndExpandsPaths(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "test-key")
	t.Setenv("RATINGS_API_URL", "http://ratings.local:3001/")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "imdbratings")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Store.DatabasePath != filepath.Join(wantData, "ratings.db") {
		t.Fatalf("unexpected database path: %q", cfg.Store.DatabasePath)
	}
	if cfg.Store.RatingsAPIURL != "http://ratings.local:3001" {
		t.Fatalf("expected ratings api url from env with trailing slash trimmed, got %q", cfg.Store.RatingsAPIURL)
	}
	if cfg.TMDB.APIKey != "test-key" || !cfg.TMDBEnabled() {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if cfg.Search.BatchSize != 5 {
		t.Fatalf("expected default batch size 5, got %d", cfg.Search.BatchSize)
	}
	if cfg.Episodes.NominalPerSeason != 25 {
		t.Fatalf("expected nominal episodes per season 25, got %d", cfg.Episodes.NominalPerSeason)
	}
	if cfg.Scoring.MinScoreCleaned >= cfg.Scoring.MinScore {
		t.Fatalf("expected cleaned threshold below original threshold, got %.1f >= %.1f",
			cfg.Scoring.MinScoreCleaned, cfg.Scoring.MinScore)
	}
}

func TestLoadWithoutTMDBKeyIsAllowed(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TMDB_API_KEY", "")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TMDBEnabled() {
		t.Fatal("expected TMDB to be disabled without an api key")
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[store]
backend = "HTTP"
ratings_api_url = "http://127.0.0.1:9000"

[search]
cache_ttl_seconds = 60
batch_size = 2
batch_delay_ms = 0

[episodes]
nominal_per_season = 12

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected custom path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Store.Backend != config.BackendHTTP {
		t.Fatalf("expected http backend, got %q", cfg.Store.Backend)
	}
	if cfg.CacheTTL().Seconds() != 60 {
		t.Fatalf("unexpected cache ttl: %v", cfg.CacheTTL())
	}
	if cfg.Search.BatchSize != 2 || cfg.BatchDelay() != 0 {
		t.Fatalf("unexpected batching: size=%d delay=%v", cfg.Search.BatchSize, cfg.BatchDelay())
	}
	if cfg.Episodes.NominalPerSeason != 12 {
		t.Fatalf("unexpected nominal episodes: %d", cfg.Episodes.NominalPerSeason)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging values, got %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown backend", func(c *config.Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"http without url", func(c *config.Config) { c.Store.Backend = config.BackendHTTP; c.Store.RatingsAPIURL = "" }, "ratings_api_url"},
		{"zero batch", func(c *config.Config) { c.Search.BatchSize = 0 }, "batch_size"},
		{"cleaned above original", func(c *config.Config) { c.Scoring.MinScoreCleaned = c.Scoring.MinScore + 1 }, "min_score_cleaned"},
		{"zero nominal", func(c *config.Config) { c.Episodes.NominalPerSeason = 0 }, "nominal_per_season"},
		{"bad cron", func(c *config.Config) { c.Dataset.RefreshSchedule = "every day" }, "refresh_schedule"},
		{"bad format", func(c *config.Config) { c.Addon.Format = "fancy" }, "addon.format"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store.DatabasePath = filepath.Join(t.TempDir(), "ratings.db")
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Addon.StreamName != "IMDb Rating" {
		t.Fatalf("unexpected stream name: %q", cfg.Addon.StreamName)
	}
}
