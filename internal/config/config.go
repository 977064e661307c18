package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	LogDir        string `toml:"log_dir"`
	APIBind       string `toml:"api_bind"`
	OverridesPath string `toml:"overrides_path"`
}

// Store selects where ratings and mappings are read from and written to.
type Store struct {
	Backend       string `toml:"backend"` // sqlite or http
	DatabasePath  string `toml:"database_path"`
	RatingsAPIURL string `toml:"ratings_api_url"`
	// RequestTimeout applies to the http backend only, in seconds.
	RequestTimeout int `toml:"request_timeout"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Language string `toml:"language"`
}

// Kitsu contains configuration for the Kitsu anime metadata API.
type Kitsu struct {
	BaseURL string `toml:"base_url"`
}

// IMDbSuggest contains configuration for the IMDb suggestion endpoint.
type IMDbSuggest struct {
	BaseURL string `toml:"base_url"`
}

// Search controls response caching and outbound pacing for external lookups.
type Search struct {
	CacheTTLSeconds       int `toml:"cache_ttl_seconds"`
	CacheMaxEntries       int `toml:"cache_max_entries"`
	BatchSize             int `toml:"batch_size"`
	BatchDelayMillis      int `toml:"batch_delay_ms"`
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
	// PersistentCache mirrors responses into the store's api_cache table.
	PersistentCache bool `toml:"persistent_cache"`
}

// Scoring contains candidate acceptance thresholds.
type Scoring struct {
	MinScore             float64 `toml:"min_score"`
	MinScoreCleaned      float64 `toml:"min_score_cleaned"`
	MinLegacyScore       float64 `toml:"min_legacy_score"`
	YearTolerance        int     `toml:"year_tolerance"`
	YearToleranceCleaned int     `toml:"year_tolerance_cleaned"`
	MaxTitleVariants     int     `toml:"max_title_variants"`
}

// Episodes configures the numeric estimation fallback.
type Episodes struct {
	NominalPerSeason int `toml:"nominal_per_season"`
	EstimateWindow   int `toml:"estimate_window"`
}

// Dataset contains configuration for the IMDb dataset ingest.
type Dataset struct {
	RatingsURL           string `toml:"ratings_url"`
	EpisodesURL          string `toml:"episodes_url"`
	RefreshSchedule      string `toml:"refresh_schedule"`
	CacheCleanupSchedule string `toml:"cache_cleanup_schedule"`
	BatchSize            int    `toml:"batch_size"`
	DownloadTimeout      int    `toml:"download_timeout"`
}

// Addon contains the default display options for addon streams.
type Addon struct {
	StreamName string `toml:"stream_name"`
	ShowVotes  bool   `toml:"show_votes"`
	Format     string `toml:"format"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for imdbratings.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories, API bind address, manual overrides file
//   - Store: rating store backend (local sqlite or remote ratings API)
//   - TMDB, Kitsu, IMDbSuggest: external search capabilities
//   - Search: response cache and outbound batching
//   - Scoring: candidate acceptance thresholds
//   - Episodes: episode estimation fallback
//   - Dataset: IMDb dataset ingest and schedules
//   - Addon: stream display defaults
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Store       Store       `toml:"store"`
	TMDB        TMDB        `toml:"tmdb"`
	Kitsu       Kitsu       `toml:"kitsu"`
	IMDbSuggest IMDbSuggest `toml:"imdb_suggest"`
	Search      Search      `toml:"search"`
	Scoring     Scoring     `toml:"scoring"`
	Episodes    Episodes    `toml:"episodes"`
	Dataset     Dataset     `toml:"dataset"`
	Addon       Addon       `toml:"addon"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("imdbratings.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Store.Backend == BackendSQLite {
		if err := os.MkdirAll(filepath.Dir(c.Store.DatabasePath), 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	return nil
}

// CacheTTL returns the response cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Search.CacheTTLSeconds) * time.Second
}

// BatchDelay returns the pause enforced between outbound request batches.
func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.Search.BatchDelayMillis) * time.Millisecond
}

// RequestTimeout returns the per-request timeout for external search calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Search.RequestTimeoutSeconds) * time.Second
}

// TMDBEnabled reports whether TMDB credentials are available.
func (c *Config) TMDBEnabled() bool {
	return strings.TrimSpace(c.TMDB.APIKey) != ""
}

// LockPath returns the daemon and ingest lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "imdbratings.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
