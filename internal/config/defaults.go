package config

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendHTTP   = "http"
)

// Addon stream formats.
const (
	FormatMultiline  = "multiline"
	FormatSingleline = "singleline"
)

const (
	defaultConfigPath           = "~/.config/imdbratings/config.toml"
	defaultDataDir              = "~/.local/share/imdbratings"
	defaultLogDir               = "~/.local/share/imdbratings/logs"
	defaultOverridesPath        = "~/.config/imdbratings/overrides.json"
	defaultAPIBind              = "127.0.0.1:3001"
	defaultDatabaseName         = "ratings.db"
	defaultStoreRequestTimeout  = 10
	defaultTMDBBaseURL          = "https://api.themoviedb.org/3"
	defaultTMDBLanguage         = "en-US"
	defaultKitsuBaseURL         = "https://kitsu.io/api/edge"
	defaultIMDbSuggestBaseURL   = "https://v2.sg.media-imdb.com/suggestion"
	defaultCacheTTLSeconds      = 3600
	defaultCacheMaxEntries      = 500
	defaultBatchSize            = 5
	defaultBatchDelayMillis     = 250
	defaultRequestTimeout       = 10
	defaultMinScore             = 60
	defaultMinScoreCleaned      = 45
	defaultMinLegacyScore       = 30
	defaultYearTolerance        = 1
	defaultYearToleranceCleaned = 5
	defaultMaxTitleVariants     = 3
	defaultNominalPerSeason     = 25
	defaultEstimateWindow       = 2
	defaultRatingsURL           = "https://datasets.imdbws.com/title.ratings.tsv.gz"
	defaultEpisodesURL          = "https://datasets.imdbws.com/title.episode.tsv.gz"
	defaultRefreshSchedule      = "0 2 * * *"
	defaultCleanupSchedule      = "0 */6 * * *"
	defaultIngestBatchSize      = 1000
	defaultDownloadTimeout      = 1800
	defaultStreamName           = "IMDb Rating"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:       defaultDataDir,
			LogDir:        defaultLogDir,
			APIBind:       defaultAPIBind,
			OverridesPath: defaultOverridesPath,
		},
		Store: Store{
			Backend:        BackendSQLite,
			RequestTimeout: defaultStoreRequestTimeout,
		},
		TMDB: TMDB{
			BaseURL:  defaultTMDBBaseURL,
			Language: defaultTMDBLanguage,
		},
		Kitsu: Kitsu{
			BaseURL: defaultKitsuBaseURL,
		},
		IMDbSuggest: IMDbSuggest{
			BaseURL: defaultIMDbSuggestBaseURL,
		},
		Search: Search{
			CacheTTLSeconds:       defaultCacheTTLSeconds,
			CacheMaxEntries:       defaultCacheMaxEntries,
			BatchSize:             defaultBatchSize,
			BatchDelayMillis:      defaultBatchDelayMillis,
			RequestTimeoutSeconds: defaultRequestTimeout,
			PersistentCache:       true,
		},
		Scoring: Scoring{
			MinScore:             defaultMinScore,
			MinScoreCleaned:      defaultMinScoreCleaned,
			MinLegacyScore:       defaultMinLegacyScore,
			YearTolerance:        defaultYearTolerance,
			YearToleranceCleaned: defaultYearToleranceCleaned,
			MaxTitleVariants:     defaultMaxTitleVariants,
		},
		Episodes: Episodes{
			NominalPerSeason: defaultNominalPerSeason,
			EstimateWindow:   defaultEstimateWindow,
		},
		Dataset: Dataset{
			RatingsURL:           defaultRatingsURL,
			EpisodesURL:          defaultEpisodesURL,
			RefreshSchedule:      defaultRefreshSchedule,
			CacheCleanupSchedule: defaultCleanupSchedule,
			BatchSize:            defaultIngestBatchSize,
			DownloadTimeout:      defaultDownloadTimeout,
		},
		Addon: Addon{
			StreamName: defaultStreamName,
			ShowVotes:  true,
			Format:     FormatMultiline,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
