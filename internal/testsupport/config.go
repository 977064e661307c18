package testsupport

import (
	"path/filepath"
	"testing"

	"imdbratings/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// External endpoints point nowhere until a test overrides them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.OverridesPath = filepath.Join(base, "overrides.json")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Store.Backend = config.BackendSQLite
	cfgVal.Store.DatabasePath = filepath.Join(base, "data", "ratings.db")
	cfgVal.TMDB.APIKey = ""
	cfgVal.TMDB.BaseURL = "http://127.0.0.1:0"
	cfgVal.Kitsu.BaseURL = "http://127.0.0.1:0"
	cfgVal.IMDbSuggest.BaseURL = "http://127.0.0.1:0"
	cfgVal.Search.BatchDelayMillis = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTMDB enables the TMDB capability against baseURL.
func WithTMDB(baseURL, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.BaseURL = baseURL
		b.cfg.TMDB.APIKey = key
	}
}

// WithKitsu points the Kitsu capability at baseURL.
func WithKitsu(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Kitsu.BaseURL = baseURL
	}
}

// WithIMDbSuggest points the suggestion capability at baseURL.
func WithIMDbSuggest(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.IMDbSuggest.BaseURL = baseURL
	}
}

// WithDataset points dataset downloads at the given URLs.
func WithDataset(ratingsURL, episodesURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dataset.RatingsURL = ratingsURL
		b.cfg.Dataset.EpisodesURL = episodesURL
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
