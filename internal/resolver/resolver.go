package resolver

import (
	"context"
	"errors"
	"log/slog"

	"imdbratings/internal/contentid"
	"imdbratings/internal/logging"
	"imdbratings/internal/mapping"
	"imdbratings/internal/ratings"
	"imdbratings/internal/search"
	"imdbratings/internal/services"
	"imdbratings/internal/titles"
)

// Not-found reasons.
const (
	ReasonInvalidID       = "invalid_id"
	ReasonNoMapping       = "no_imdb_mapping"
	ReasonNoRating        = "no_rating"
	ReasonNoEpisodeRating = "no_episode_or_series_rating"
)

// Result is the outcome of one resolution.
type Result struct {
	OriginalID string `json:"originalId"`
	IMDbID     string `json:"imdbId,omitempty"`
	// Season and Episode are IMDb-relative after mapping and alignment.
	Season     int                `json:"season,omitempty"`
	Episode    int                `json:"episode,omitempty"`
	EpisodeID  string             `json:"episodeId,omitempty"`
	Rating     float64            `json:"rating,omitempty"`
	Votes      int64              `json:"votes,omitempty"`
	Confidence ratings.Confidence `json:"confidence,omitempty"`
	Strategy   ratings.Strategy   `json:"strategy,omitempty"`
	// Source is how the IMDb id was obtained.
	Source            ratings.Source `json:"source,omitempty"`
	MappingConfidence int            `json:"mappingConfidence,omitempty"`
	NotFound          bool           `json:"notFound,omitempty"`
	Reason            string         `json:"reason,omitempty"`
}

// IsEpisode reports whether the result carries an episode rating rather
// than a title or series substitute.
func (r Result) IsEpisode() bool {
	return r.EpisodeID != "" && r.Confidence == ratings.ConfidenceExact
}

// Mapper resolves foreign ids.
type Mapper interface {
	Resolve(ctx context.Context, platform contentid.Platform, nativeID string, hints mapping.Hints) (mapping.Resolution, bool)
}

// EpisodeRatings walks the episode fallback chain.
type EpisodeRatings interface {
	Resolve(ctx context.Context, imdbID string, season, episode int) (ratings.EpisodeResult, bool)
}

// AnimeTitles supplies the Kitsu title used for season inference when the
// mapping did not carry one.
type AnimeTitles interface {
	AnimeMetadata(ctx context.Context, id string) *search.Metadata
}

// Resolver composes parsing, mapping and rating lookup.
type Resolver struct {
	store    ratings.Store
	mapper   Mapper
	episodes EpisodeRatings
	anime    AnimeTitles
	seasons  titles.SeasonRules
	logger   *slog.Logger
}

// New wires a resolver. anime may be nil, in which case Kitsu episodes
// without a known title are treated as season 1.
func New(store ratings.Store, mapper Mapper, episodes EpisodeRatings, anime AnimeTitles, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:    store,
		mapper:   mapper,
		episodes: episodes,
		anime:    anime,
		seasons:  titles.DefaultSeasonRules(),
		logger:   logging.NewComponentLogger(logger, "resolver"),
	}
}

// WithSeasonRules replaces the season inference rules.
func (r *Resolver) WithSeasonRules(rules titles.SeasonRules) *Resolver {
	clone := *r
	clone.seasons = rules
	return &clone
}

// Resolve looks up the rating for rawID. contentType, when set, overrides
// the type implied by the id for ids that do not address an episode. The
// error is non-nil only when rawID cannot be parsed.
func (r *Resolver) Resolve(ctx context.Context, rawID string, contentType contentid.ContentType) (Result, error) {
	ref, err := contentid.Parse(rawID)
	if err != nil {
		r.logger.Debug("unparseable content id", logging.String(logging.FieldContentID, rawID), logging.Error(err))
		return Result{OriginalID: rawID, NotFound: true, Reason: ReasonInvalidID}, err
	}
	if contentType != "" && !ref.HasEpisode() {
		ref.ContentType = contentType
	}

	ctx = services.WithContentID(ctx, ref.OriginalID)
	ctx = services.WithPlatform(ctx, string(ref.Platform))
	logger := logging.WithContext(ctx, r.logger)

	result := Result{OriginalID: ref.OriginalID, Season: ref.Season, Episode: ref.Episode}

	var res mapping.Resolution
	if ref.NeedsMapping() {
		var ok bool
		res, ok = r.mapper.Resolve(ctx, ref.Platform, ref.NativeID, mapping.Hints{ContentType: ref.ContentType})
		if !ok {
			return notFound(logger, result, ReasonNoMapping), nil
		}
		result.IMDbID = res.IMDbID
		result.Source = res.Source
		result.MappingConfidence = res.Confidence
	} else {
		result.IMDbID = ref.IMDbID()
		result.Source = ratings.SourceDirect
		result.MappingConfidence = 100
	}

	if !ref.HasEpisode() {
		rec, err := r.store.GetRating(ctx, result.IMDbID)
		if err != nil {
			if !errors.Is(err, ratings.ErrNotFound) {
				logging.WarnWithContext(logger, "rating lookup failed", "rating_lookup_failed",
					logging.String(logging.FieldIMDbID, result.IMDbID),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the rating store"),
					logging.String(logging.FieldImpact, "reporting no rating"))
			}
			return notFound(logger, result, ReasonNoRating), nil
		}
		result.Rating, result.Votes = rec.Rating, rec.Votes
		result.Confidence = ratings.ConfidenceExact
		result.Strategy = ratings.StrategyDirect
		return result, nil
	}

	if ref.Platform == contentid.PlatformKitsu {
		result.Season = r.kitsuSeason(ctx, ref.NativeID, res)
		result.Episode = ref.Episode + res.EpisodeOffset
		logger.Debug("aligned kitsu episode",
			logging.Int("season", result.Season),
			logging.Int("episode", result.Episode),
			logging.Int("offset", res.EpisodeOffset))
	}

	episode, ok := r.episodes.Resolve(ctx, result.IMDbID, result.Season, result.Episode)
	if !ok {
		return notFound(logger, result, ReasonNoEpisodeRating), nil
	}
	result.Rating, result.Votes = episode.Record.Rating, episode.Record.Votes
	result.EpisodeID = episode.Record.EpisodeID
	result.Confidence = episode.Confidence
	result.Strategy = episode.Strategy
	return result, nil
}

// kitsuSeason prefers a pinned season, then infers one from the title.
func (r *Resolver) kitsuSeason(ctx context.Context, nativeID string, res mapping.Resolution) int {
	if res.Season > 0 {
		return res.Season
	}
	title := res.Title
	if title == "" && r.anime != nil {
		if meta := r.anime.AnimeMetadata(ctx, nativeID); meta != nil && len(meta.Titles) > 0 {
			title = meta.Titles[0]
		}
	}
	if title == "" {
		return 1
	}
	return r.seasons.Infer(title)
}

func notFound(logger *slog.Logger, result Result, reason string) Result {
	result.NotFound = true
	result.Reason = reason
	logger.Info("no rating available",
		logging.String(logging.FieldDecisionType, "resolution"),
		logging.String("reason", reason),
		logging.String(logging.FieldIMDbID, result.IMDbID))
	return result
}
