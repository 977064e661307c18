// Package app assembles the resolution pipeline from configuration: the
// rating store backend, the outbound fetch layer, the search capabilities,
// the scorer, the mapping and episode resolvers and the end-to-end
// resolver. Both binaries build their runtime through it.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"imdbratings/internal/api"
	"imdbratings/internal/config"
	"imdbratings/internal/daemon"
	"imdbratings/internal/dataset"
	"imdbratings/internal/fetch"
	"imdbratings/internal/logging"
	"imdbratings/internal/mapping"
	"imdbratings/internal/ratings"
	"imdbratings/internal/ratingsapi"
	"imdbratings/internal/resolver"
	"imdbratings/internal/scoring"
	"imdbratings/internal/search"
	"imdbratings/internal/search/imdbsuggest"
	"imdbratings/internal/search/kitsu"
	"imdbratings/internal/search/tmdb"
	"imdbratings/internal/store"
)

// Backend is a rating store that can also hold the shared response cache.
type Backend interface {
	ratings.Catalog
	fetch.PersistentCache
}

// App holds the wired components.
type App struct {
	Config   *config.Config
	Backend  Backend
	Search   *search.Client
	Manual   *mapping.ManualTable
	Mapper   *mapping.Resolver
	Episodes *ratings.EpisodeResolver
	Resolver *resolver.Resolver

	// Local and Ingester are nil when ratings come from a remote ratings
	// API.
	Local    *store.Store
	Ingester *dataset.Ingester

	logger *slog.Logger
}

// New builds the pipeline described by cfg.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &App{Config: cfg, logger: logger}

	switch cfg.Store.Backend {
	case config.BackendHTTP:
		timeout := time.Duration(cfg.Store.RequestTimeout) * time.Second
		a.Backend = ratingsapi.New(cfg.Store.RatingsAPIURL, timeout, logger)
	default:
		st, err := store.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open rating store: %w", err)
		}
		a.Local = st
		a.Backend = st
		a.Ingester = dataset.NewIngester(cfg.Dataset, cfg.Paths.DataDir, st, logger)
	}

	client, err := newSearchClient(cfg, a.Backend, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Search = client

	a.Manual = mapping.NewManualTable(mapping.DefaultManualEntries(), cfg.Paths.OverridesPath, logger)
	scorer := scoring.New(cfg.Scoring, client, logger)
	a.Mapper = mapping.NewResolver(a.Manual, a.Backend, client, scorer, cfg.Scoring, logger)
	a.Episodes = ratings.NewEpisodeResolver(a.Backend, client, nil, cfg.Episodes, logger)
	a.Resolver = resolver.New(a.Backend, a.Mapper, a.Episodes, client, logger)

	logger.Info("pipeline ready",
		logging.String(logging.FieldEventType, "pipeline_ready"),
		logging.String("store_backend", cfg.Store.Backend),
		logging.Bool("tmdb_available", client.TMDBAvailable()),
		logging.Bool("persistent_cache", cfg.Search.PersistentCache),
		logging.Int("manual_mappings", len(a.Manual.Entries())))
	return a, nil
}

// newSearchClient builds one shared fetcher so every capability draws from
// the same response cache and request queue.
func newSearchClient(cfg *config.Config, backend Backend, logger *slog.Logger) (*search.Client, error) {
	opts := fetch.Options{
		HTTPClient:    &http.Client{Timeout: cfg.RequestTimeout()},
		Cache:         fetch.NewMemoryCache(cfg.CacheTTL(), cfg.Search.CacheMaxEntries, nil),
		PersistentTTL: cfg.CacheTTL(),
		Queue:         fetch.NewQueue(cfg.Search.BatchSize, cfg.BatchDelay(), logger),
		Logger:        logger,
	}
	if cfg.Search.PersistentCache {
		opts.Persistent = backend
	}
	fetcher := fetch.New(opts)

	anime, err := kitsu.New(cfg.Kitsu.BaseURL, fetcher.WithHeader("Accept", "application/vnd.api+json"))
	if err != nil {
		return nil, fmt.Errorf("kitsu client: %w", err)
	}
	suggest, err := imdbsuggest.New(cfg.IMDbSuggest.BaseURL, fetcher)
	if err != nil {
		return nil, fmt.Errorf("imdb suggestion client: %w", err)
	}

	var structured tmdb.Searcher
	if cfg.TMDBEnabled() {
		tmdbClient, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language, tmdb.WithGetter(fetcher))
		if err != nil {
			return nil, fmt.Errorf("tmdb client: %w", err)
		}
		structured = tmdbClient
	} else {
		logging.WarnWithContext(logger, "tmdb api key not configured", "tmdb_unavailable",
			logging.String(logging.FieldErrorHint, "set tmdb.api_key or TMDB_API_KEY"),
			logging.String(logging.FieldImpact, "foreign ids are mapped through the suggestion search only"))
	}
	return search.NewClient(structured, anime, suggest, logger), nil
}

// Handler returns the HTTP handler serving this pipeline.
func (a *App) Handler() http.Handler {
	return api.NewServer(a.Config, api.Deps{
		Catalog:  a.Backend,
		Cache:    a.Backend,
		Resolver: a.Resolver,
	}, a.logger).Handler()
}

// Daemon builds the long-running server around this pipeline.
func (a *App) Daemon() (*daemon.Daemon, error) {
	opts := daemon.Options{}
	if a.Local != nil {
		opts.Store = a.Local
		opts.Ingester = a.Ingester
	}
	return daemon.New(a.Config, a.Handler(), opts, a.logger)
}

// Close releases the local store.
func (a *App) Close() error {
	if a == nil || a.Local == nil {
		return nil
	}
	return a.Local.Close()
}
