package ratings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"imdbratings/internal/config"
	"imdbratings/internal/logging"
	"imdbratings/internal/search"
	"imdbratings/internal/titles"
)

// Confidence distinguishes a true episode rating from a series substitute.
type Confidence string

const (
	ConfidenceExact          Confidence = "exact"
	ConfidenceSeriesFallback Confidence = "series_fallback"
)

// Strategy names the chain step that produced a result.
type Strategy string

const (
	StrategyDirect         Strategy = "direct"
	StrategyAlignment      Strategy = "alignment"
	StrategyEstimate       Strategy = "estimate"
	StrategyTitleSearch    Strategy = "title_search"
	StrategySeriesFallback Strategy = "series_fallback"
)

// EpisodeResult is the outcome of the fallback chain.
type EpisodeResult struct {
	Record     Record
	Confidence Confidence
	Strategy   Strategy
	// Season and Episode are the IMDb-relative numbers that matched, zero
	// for title search and series fallback.
	Season  int
	Episode int
}

// TitleSearcher finds episode ids by text.
type TitleSearcher interface {
	SeriesDisplayTitle(ctx context.Context, imdbID string) string
	LegacySuggest(ctx context.Context, query string) []search.RawCandidate
}

// EpisodeResolver walks the episode fallback chain against a Store.
type EpisodeResolver struct {
	store     Store
	searcher  TitleSearcher
	alignment titles.AlignmentTable
	nominal   int
	window    int
	logger    *slog.Logger
}

// NewEpisodeResolver builds a resolver. searcher may be nil, which skips the
// title search step.
func NewEpisodeResolver(store Store, searcher TitleSearcher, alignment titles.AlignmentTable, cfg config.Episodes, logger *slog.Logger) *EpisodeResolver {
	if alignment == nil {
		alignment = titles.DefaultAlignment()
	}
	return &EpisodeResolver{
		store:     store,
		searcher:  searcher,
		alignment: alignment,
		nominal:   cfg.NominalPerSeason,
		window:    cfg.EstimateWindow,
		logger:    logging.NewComponentLogger(logger, "episode_resolver"),
	}
}

// Resolve returns the best available rating for an episode. ok is false only
// when neither the episode nor the series has a rating.
func (r *EpisodeResolver) Resolve(ctx context.Context, imdbID string, season, episode int) (EpisodeResult, bool) {
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldIMDbID, imdbID),
		logging.Int("season", season),
		logging.Int("episode", episode))

	if rec, ok := r.lookup(ctx, logger, imdbID, season, episode); ok {
		return r.found(logger, rec, StrategyDirect, season, episode), true
	}

	if season > 1 {
		if alignedSeason, alignedEpisode, ok := r.alignment.Align(imdbID, season, episode); ok {
			if rec, ok := r.lookup(ctx, logger, imdbID, alignedSeason, alignedEpisode); ok {
				return r.found(logger, rec, StrategyAlignment, alignedSeason, alignedEpisode), true
			}
		}

		for _, estimate := range r.EstimateCandidates(season, episode) {
			if rec, ok := r.lookup(ctx, logger, imdbID, 1, estimate); ok {
				return r.found(logger, rec, StrategyEstimate, 1, estimate), true
			}
		}
	}

	if rec, ok := r.searchEpisode(ctx, logger, imdbID, season, episode); ok {
		return r.found(logger, rec, StrategyTitleSearch, 0, 0), true
	}

	rec, err := r.store.GetRating(ctx, imdbID)
	if err != nil {
		r.logMiss(logger, "series rating lookup failed", err)
		logger.Info("no rating available", logging.String(logging.FieldDecisionType, "episode_rating"))
		return EpisodeResult{}, false
	}
	logger.Info("using series rating as fallback",
		logging.String(logging.FieldDecisionType, "episode_rating"),
		logging.String(logging.FieldStrategy, string(StrategySeriesFallback)))
	return EpisodeResult{Record: rec, Confidence: ConfidenceSeriesFallback, Strategy: StrategySeriesFallback}, true
}

// EstimateCandidates lists the absolute episode numbers probed in season 1,
// nearest offsets first: estimate, -1, +1, -2, +2 and so on up to the
// window. Values below 1 are skipped.
func (r *EpisodeResolver) EstimateCandidates(season, episode int) []int {
	if season <= 1 || r.nominal <= 0 {
		return nil
	}
	estimate := (season-1)*r.nominal + episode
	out := []int{estimate}
	for offset := 1; offset <= r.window; offset++ {
		for _, v := range []int{estimate - offset, estimate + offset} {
			if v >= 1 {
				out = append(out, v)
			}
		}
	}
	return out
}

// EpisodeQueries builds the text queries used to find an episode id.
func EpisodeQueries(title string, season, episode int) []string {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s season %d episode %d", title, season, episode),
		fmt.Sprintf("%s S%02dE%02d", title, season, episode),
		fmt.Sprintf("%s %dx%d", title, season, episode),
	}
}

// searchEpisode takes the first suggestion that is a rated episode of
// imdbID. Other series, movies and unrated ids are skipped.
func (r *EpisodeResolver) searchEpisode(ctx context.Context, logger *slog.Logger, imdbID string, season, episode int) (Record, bool) {
	if r.searcher == nil {
		return Record{}, false
	}
	title := r.searcher.SeriesDisplayTitle(ctx, imdbID)
	for _, query := range EpisodeQueries(title, season, episode) {
		for _, candidate := range r.searcher.LegacySuggest(ctx, query) {
			if candidate.ID == imdbID || !strings.HasPrefix(candidate.ID, "tt") {
				continue
			}
			rec, err := r.store.GetEpisodeRatingByID(ctx, candidate.ID)
			if err != nil {
				r.logMiss(logger, "episode id lookup failed", err)
				continue
			}
			if rec.IMDbID != imdbID {
				logger.Debug("suggestion belongs to another series",
					logging.String("episode_id", candidate.ID),
					logging.String("series_id", rec.IMDbID))
				continue
			}
			logger.Debug("episode found by title search",
				logging.String("query", query),
				logging.String("episode_id", candidate.ID))
			if rec.EpisodeID == "" {
				rec.EpisodeID = candidate.ID
			}
			return rec, true
		}
	}
	return Record{}, false
}

func (r *EpisodeResolver) lookup(ctx context.Context, logger *slog.Logger, imdbID string, season, episode int) (Record, bool) {
	rec, err := r.store.GetEpisodeRating(ctx, imdbID, season, episode)
	if err != nil {
		r.logMiss(logger, "episode lookup failed", err)
		return Record{}, false
	}
	return rec, true
}

func (r *EpisodeResolver) found(logger *slog.Logger, rec Record, strategy Strategy, season, episode int) EpisodeResult {
	logger.Info("episode rating resolved",
		logging.String(logging.FieldDecisionType, "episode_rating"),
		logging.String(logging.FieldStrategy, string(strategy)),
		logging.Int("imdb_season", season),
		logging.Int("imdb_episode", episode),
		logging.String("episode_id", rec.EpisodeID))
	return EpisodeResult{Record: rec, Confidence: ConfidenceExact, Strategy: strategy, Season: season, Episode: episode}
}

func (r *EpisodeResolver) logMiss(logger *slog.Logger, msg string, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	logging.WarnWithContext(logger, msg, "rating_store_error",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check rating store availability"))
}
