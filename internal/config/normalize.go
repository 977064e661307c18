package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeEndpoints()
	c.normalizeAddon()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OverridesPath, err = expandPath(strings.TrimSpace(c.Paths.OverridesPath)); err != nil {
		return fmt.Errorf("paths.overrides_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = BackendSQLite
	}
	if strings.TrimSpace(c.Store.DatabasePath) == "" {
		c.Store.DatabasePath = filepath.Join(c.Paths.DataDir, defaultDatabaseName)
	}
	var err error
	if c.Store.DatabasePath, err = expandPath(c.Store.DatabasePath); err != nil {
		return fmt.Errorf("store.database_path: %w", err)
	}
	if c.Store.RatingsAPIURL == "" {
		if value, ok := os.LookupEnv("RATINGS_API_URL"); ok {
			c.Store.RatingsAPIURL = value
		}
	}
	c.Store.RatingsAPIURL = strings.TrimRight(strings.TrimSpace(c.Store.RatingsAPIURL), "/")
	if c.Store.RequestTimeout <= 0 {
		c.Store.RequestTimeout = defaultStoreRequestTimeout
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
}

func (c *Config) normalizeEndpoints() {
	c.Kitsu.BaseURL = strings.TrimRight(strings.TrimSpace(c.Kitsu.BaseURL), "/")
	if c.Kitsu.BaseURL == "" {
		c.Kitsu.BaseURL = defaultKitsuBaseURL
	}
	c.IMDbSuggest.BaseURL = strings.TrimRight(strings.TrimSpace(c.IMDbSuggest.BaseURL), "/")
	if c.IMDbSuggest.BaseURL == "" {
		c.IMDbSuggest.BaseURL = defaultIMDbSuggestBaseURL
	}
	c.Dataset.RatingsURL = strings.TrimSpace(c.Dataset.RatingsURL)
	if c.Dataset.RatingsURL == "" {
		c.Dataset.RatingsURL = defaultRatingsURL
	}
	c.Dataset.EpisodesURL = strings.TrimSpace(c.Dataset.EpisodesURL)
	if c.Dataset.EpisodesURL == "" {
		c.Dataset.EpisodesURL = defaultEpisodesURL
	}
	c.Dataset.RefreshSchedule = strings.TrimSpace(c.Dataset.RefreshSchedule)
	c.Dataset.CacheCleanupSchedule = strings.TrimSpace(c.Dataset.CacheCleanupSchedule)
	if c.Dataset.BatchSize <= 0 {
		c.Dataset.BatchSize = defaultIngestBatchSize
	}
	if c.Dataset.DownloadTimeout <= 0 {
		c.Dataset.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Search.RequestTimeoutSeconds <= 0 {
		c.Search.RequestTimeoutSeconds = defaultRequestTimeout
	}
}

func (c *Config) normalizeAddon() {
	c.Addon.StreamName = strings.TrimSpace(c.Addon.StreamName)
	if c.Addon.StreamName == "" {
		c.Addon.StreamName = defaultStreamName
	}
	c.Addon.Format = strings.ToLower(strings.TrimSpace(c.Addon.Format))
	if c.Addon.Format == "" {
		c.Addon.Format = FormatMultiline
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
