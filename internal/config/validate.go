package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateEpisodes(); err != nil {
		return err
	}
	if err := c.validateDataset(); err != nil {
		return err
	}
	if err := c.validateAddon(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.DatabasePath == "" {
			return errors.New("store.database_path must be set for the sqlite backend")
		}
	case BackendHTTP:
		if c.Store.RatingsAPIURL == "" {
			return errors.New("store.ratings_api_url must be set for the http backend (or set RATINGS_API_URL)")
		}
	default:
		return fmt.Errorf("store.backend: unsupported value %q (want sqlite or http)", c.Store.Backend)
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.CacheTTLSeconds <= 0 {
		return errors.New("search.cache_ttl_seconds must be positive")
	}
	if c.Search.CacheMaxEntries <= 0 {
		return errors.New("search.cache_max_entries must be positive")
	}
	if c.Search.BatchSize <= 0 {
		return errors.New("search.batch_size must be positive")
	}
	if c.Search.BatchDelayMillis < 0 {
		return errors.New("search.batch_delay_ms must be zero or positive")
	}
	return nil
}

func (c *Config) validateScoring() error {
	if c.Scoring.MinScoreCleaned > c.Scoring.MinScore {
		return fmt.Errorf("scoring.min_score_cleaned (%.1f) must not exceed scoring.min_score (%.1f)",
			c.Scoring.MinScoreCleaned, c.Scoring.MinScore)
	}
	if c.Scoring.YearTolerance < 0 || c.Scoring.YearToleranceCleaned < 0 {
		return errors.New("scoring year tolerances must be zero or positive")
	}
	if c.Scoring.YearToleranceCleaned < c.Scoring.YearTolerance {
		return errors.New("scoring.year_tolerance_cleaned must be at least scoring.year_tolerance")
	}
	if c.Scoring.MaxTitleVariants <= 0 {
		return errors.New("scoring.max_title_variants must be positive")
	}
	return nil
}

func (c *Config) validateEpisodes() error {
	if c.Episodes.NominalPerSeason <= 0 {
		return errors.New("episodes.nominal_per_season must be positive")
	}
	if c.Episodes.EstimateWindow < 0 {
		return errors.New("episodes.estimate_window must be zero or positive")
	}
	return nil
}

func (c *Config) validateDataset() error {
	for key, expr := range map[string]string{
		"dataset.refresh_schedule":       c.Dataset.RefreshSchedule,
		"dataset.cache_cleanup_schedule": c.Dataset.CacheCleanupSchedule,
	} {
		if expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("%s: invalid cron expression %q: %w", key, expr, err)
		}
	}
	return nil
}

func (c *Config) validateAddon() error {
	switch c.Addon.Format {
	case FormatMultiline, FormatSingleline:
		return nil
	default:
		return fmt.Errorf("addon.format: unsupported value %q", c.Addon.Format)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
