package mapping

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"imdbratings/internal/config"
	"imdbratings/internal/contentid"
	"imdbratings/internal/logging"
	"imdbratings/internal/ratings"
	"imdbratings/internal/scoring"
	"imdbratings/internal/search"
	"imdbratings/internal/titles"
)

// Searcher is the search capability surface the resolver needs.
type Searcher interface {
	TMDBAvailable() bool
	AnimeMetadata(ctx context.Context, id string) *search.Metadata
	TMDBMetadata(ctx context.Context, mediaType search.MediaType, id string) *search.Metadata
	SearchTitles(ctx context.Context, query string, year int, mediaType search.MediaType) []search.RawCandidate
	ExternalIMDbID(ctx context.Context, mediaType search.MediaType, id string) string
	LegacySuggest(ctx context.Context, query string) []search.RawCandidate
}

// Hints carry what the caller already knows about the foreign title.
type Hints struct {
	ContentType contentid.ContentType
}

func (h Hints) mediaType() search.MediaType {
	switch h.ContentType {
	case contentid.TypeMovie:
		return search.MediaMovie
	case contentid.TypeSeries:
		return search.MediaTV
	default:
		return ""
	}
}

// Resolution is a successful mapping.
type Resolution struct {
	IMDbID     string
	Source     ratings.Source
	Confidence int
	// Season is set when a manual entry pins the IMDb season.
	Season        int
	EpisodeOffset int
	// Title is the foreign catalog's primary title when it was seen during
	// resolution.
	Title string
}

// Resolver runs the mapping strategy chain.
type Resolver struct {
	manual   *ManualTable
	store    ratings.Store
	searcher Searcher
	scorer   *scoring.Scorer
	maxTitle int
	logger   *slog.Logger
}

// NewResolver wires a resolver. manual, store and searcher may be nil, which
// skips the strategies that need them.
func NewResolver(manual *ManualTable, store ratings.Store, searcher Searcher, scorer *scoring.Scorer, cfg config.Scoring, logger *slog.Logger) *Resolver {
	maxTitle := cfg.MaxTitleVariants
	if maxTitle <= 0 {
		maxTitle = 1
	}
	return &Resolver{
		manual:   manual,
		store:    store,
		searcher: searcher,
		scorer:   scorer,
		maxTitle: maxTitle,
		logger:   logging.NewComponentLogger(logger, "mapping"),
	}
}

// Resolve maps platform:nativeID to an IMDb id. It never returns an error;
// false means every strategy was exhausted.
func (r *Resolver) Resolve(ctx context.Context, platform contentid.Platform, nativeID string, hints Hints) (Resolution, bool) {
	foreignID := string(platform) + ":" + nativeID
	logger := logging.WithContext(ctx, r.logger).With(logging.String("foreign_id", foreignID))

	if entry, ok := r.manual.Lookup(foreignID); ok {
		logger.Debug("manual mapping hit", logging.String(logging.FieldIMDbID, entry.IMDbID))
		return Resolution{
			IMDbID:        entry.IMDbID,
			Source:        ratings.SourceManual,
			Confidence:    100,
			Season:        entry.Season,
			EpisodeOffset: entry.EpisodeOffset,
			Title:         entry.Title,
		}, true
	}

	if res, ok := r.fromStore(ctx, logger, foreignID); ok {
		return res, true
	}

	if r.searcher == nil {
		logger.Info("mapping not found", logging.String(logging.FieldDecisionType, "no_search_capability"))
		return Resolution{}, false
	}

	res, ok := r.discover(ctx, logger, platform, nativeID, hints)
	if !ok {
		logger.Info("mapping not found", logging.String(logging.FieldDecisionType, "strategies_exhausted"))
		return Resolution{}, false
	}
	logger.Info("mapping discovered",
		logging.String(logging.FieldIMDbID, res.IMDbID),
		logging.String(logging.FieldStrategy, string(res.Source)),
		logging.Int("confidence", res.Confidence),
	)
	r.persist(ctx, logger, foreignID, res)
	return res, true
}

func (r *Resolver) fromStore(ctx context.Context, logger *slog.Logger, foreignID string) (Resolution, bool) {
	if r.store == nil {
		return Resolution{}, false
	}
	mapping, err := r.store.GetMapping(ctx, foreignID)
	if err != nil {
		if !errors.Is(err, ratings.ErrNotFound) {
			logging.WarnWithContext(logger, "mapping store lookup failed", "mapping_lookup_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the rating store"),
				logging.String(logging.FieldImpact, "falling back to discovery"))
		}
		return Resolution{}, false
	}
	logger.Debug("persistent mapping hit", logging.String(logging.FieldIMDbID, mapping.IMDbID))
	return Resolution{
		IMDbID:     mapping.IMDbID,
		Source:     ratings.SourcePersistentStore,
		Confidence: mapping.Confidence,
	}, true
}

func (r *Resolver) persist(ctx context.Context, logger *slog.Logger, foreignID string, res Resolution) {
	if r.store == nil {
		return
	}
	err := r.store.PutMapping(ctx, ratings.Mapping{
		ForeignID:  foreignID,
		IMDbID:     res.IMDbID,
		Source:     res.Source,
		Confidence: res.Confidence,
	})
	if err != nil {
		logging.WarnWithContext(logger, "failed to persist mapping", "mapping_persist_failed",
			logging.String(logging.FieldIMDbID, res.IMDbID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the rating store"),
			logging.String(logging.FieldImpact, "mapping will be rediscovered next time"))
	}
}

func (r *Resolver) discover(ctx context.Context, logger *slog.Logger, platform contentid.Platform, nativeID string, hints Hints) (Resolution, bool) {
	var meta *search.Metadata
	switch platform {
	case contentid.PlatformKitsu:
		meta = r.searcher.AnimeMetadata(ctx, nativeID)
	case contentid.PlatformTMDB:
		mediaType := hints.mediaType()
		if mediaType == "" {
			mediaType = search.MediaTV
		}
		if imdbID := r.searcher.ExternalIMDbID(ctx, mediaType, nativeID); imdbID != "" {
			return Resolution{IMDbID: imdbID, Source: ratings.SourceDiscoveryTMDB, Confidence: 100}, true
		}
		meta = r.searcher.TMDBMetadata(ctx, mediaType, nativeID)
	}
	if meta == nil || len(meta.Titles) == 0 {
		logger.Debug("no metadata for foreign id")
		return Resolution{}, false
	}

	primary := meta.Titles[0]
	sc := scoring.ContextFromMetadata(*meta, platform == contentid.PlatformKitsu)
	if sc.MediaType == "" {
		sc.MediaType = hints.mediaType()
	}
	queries := titles.Prioritize(meta.Titles)
	if len(queries) > r.maxTitle {
		queries = queries[:r.maxTitle]
	}
	logger.Debug("searching title variants",
		logging.Strings("queries", queries),
		logging.Int("year", meta.Year),
		logging.String("media_type", string(sc.MediaType)))

	if r.searcher.TMDBAvailable() {
		for _, title := range queries {
			if res, ok := r.searchTMDB(ctx, logger, sc, title, meta.Year, false); ok {
				res.Title = primary
				return res, true
			}
			for _, cleaned := range titles.CleanVariants(title)[1:] {
				if res, ok := r.searchTMDB(ctx, logger, sc, cleaned, 0, true); ok {
					res.Title = primary
					return res, true
				}
			}
		}
	}

	for _, title := range queries {
		variants := titles.CleanVariants(title)
		for i, query := range variants {
			if res, ok := r.searchLegacy(ctx, logger, sc, query, i > 0); ok {
				res.Title = primary
				return res, true
			}
		}
	}
	return Resolution{}, false
}

// searchTMDB scores one query and returns the best accepted candidate that
// has an IMDb id.
func (r *Resolver) searchTMDB(ctx context.Context, logger *slog.Logger, sc scoring.Context, query string, year int, cleaned bool) (Resolution, bool) {
	candidates := r.searcher.SearchTitles(ctx, query, year, sc.MediaType)
	if len(candidates) == 0 {
		return Resolution{}, false
	}
	scored := r.scorer.Score(ctx, candidates, sc, query, cleaned)
	for i := range scored {
		best, ok := r.scorer.Accept(scored[i:], cleaned)
		if !ok {
			break
		}
		imdbID := r.searcher.ExternalIMDbID(ctx, best.Candidate.MediaType, best.Candidate.ID)
		if imdbID == "" {
			logger.Debug("accepted candidate has no imdb id",
				logging.String("tmdb_id", best.Candidate.ID),
				logging.String("query", query))
			continue
		}
		return Resolution{
			IMDbID:     imdbID,
			Source:     ratings.SourceDiscoveryTMDB,
			Confidence: confidence(best.Score),
		}, true
	}
	logger.Debug("no candidate cleared threshold",
		logging.String("query", query),
		logging.Bool("cleaned", cleaned),
		logging.Int("candidates", len(candidates)))
	return Resolution{}, false
}

func (r *Resolver) searchLegacy(ctx context.Context, logger *slog.Logger, sc scoring.Context, query string, cleaned bool) (Resolution, bool) {
	candidates := r.searcher.LegacySuggest(ctx, query)
	if len(candidates) == 0 {
		return Resolution{}, false
	}
	best, ok := r.scorer.AcceptLegacy(r.scorer.ScoreLegacy(candidates, sc, query, cleaned))
	if !ok {
		logger.Debug("no suggestion cleared threshold", logging.String("query", query))
		return Resolution{}, false
	}
	return Resolution{
		IMDbID:     best.Candidate.ID,
		Source:     ratings.SourceDiscoveryIMDb,
		Confidence: confidence(best.Score),
	}, true
}

func confidence(score float64) int {
	return int(math.Max(0, math.Min(100, math.Round(score))))
}
