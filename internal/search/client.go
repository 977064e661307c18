package search

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"imdbratings/internal/fetch"
	"imdbratings/internal/logging"
	"imdbratings/internal/search/imdbsuggest"
	"imdbratings/internal/search/kitsu"
	"imdbratings/internal/search/tmdb"
)

// AnimeSource fetches anime metadata by native id.
type AnimeSource interface {
	Anime(ctx context.Context, id string) (*kitsu.Anime, error)
}

// Suggester runs the legacy IMDb suggestion search.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]imdbsuggest.Suggestion, error)
}

// Client fans out to the configured capabilities. A nil TMDB searcher marks
// the structured search capability unavailable.
type Client struct {
	tmdb    tmdb.Searcher
	anime   AnimeSource
	suggest Suggester
	logger  *slog.Logger
}

// NewClient wires the capabilities together. Any of them may be nil.
func NewClient(tmdbSearcher tmdb.Searcher, anime AnimeSource, suggest Suggester, logger *slog.Logger) *Client {
	return &Client{
		tmdb:    tmdbSearcher,
		anime:   anime,
		suggest: suggest,
		logger:  logging.NewComponentLogger(logger, "search"),
	}
}

// TMDBAvailable reports whether structured title search is configured.
func (c *Client) TMDBAvailable() bool {
	return c.tmdb != nil
}

// AnimeMetadata returns Kitsu metadata for id, or nil.
func (c *Client) AnimeMetadata(ctx context.Context, id string) *Metadata {
	if c.anime == nil {
		return nil
	}
	anime, err := c.anime.Anime(ctx, id)
	if err != nil {
		c.failed(ctx, "anime metadata lookup failed", "kitsu_lookup_failed", err, logging.String("kitsu_id", id))
		return nil
	}
	titles := anime.AllTitles()
	if len(titles) == 0 {
		c.logger.Debug("anime has no titles", logging.String("kitsu_id", id))
		return nil
	}
	return &Metadata{
		Titles:       titles,
		Year:         anime.Year(),
		Subtype:      anime.Subtype,
		EpisodeCount: anime.EpisodeCount,
	}
}

// TMDBMetadata returns titles and counts for a TMDB entry, or nil.
func (c *Client) TMDBMetadata(ctx context.Context, mediaType MediaType, id string) *Metadata {
	if c.tmdb == nil {
		return nil
	}
	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil
	}
	var result *tmdb.Result
	if mediaType == MediaMovie {
		result, err = c.tmdb.GetMovieDetails(ctx, numericID)
	} else {
		result, err = c.tmdb.GetTVDetails(ctx, numericID)
	}
	if err != nil {
		c.failed(ctx, "tmdb details lookup failed", "tmdb_details_failed", err, logging.String("tmdb_id", id))
		return nil
	}
	meta := &Metadata{Year: result.Year(), EpisodeCount: result.NumberOfEpisodes, Subtype: "TV"}
	if mediaType == MediaMovie {
		meta.Subtype = "movie"
	}
	for _, title := range []string{result.DisplayTitle(), result.OriginalDisplayTitle()} {
		if strings.TrimSpace(title) != "" {
			meta.Titles = append(meta.Titles, title)
		}
	}
	if len(meta.Titles) == 0 {
		return nil
	}
	return meta
}

// SearchTitles runs the structured title search. Episodic queries use the
// TV endpoint and widen to the multi search when it finds nothing; other
// queries go straight to the multi search. Only movie and TV results are
// returned.
func (c *Client) SearchTitles(ctx context.Context, query string, year int, mediaType MediaType) []RawCandidate {
	if c.tmdb == nil || strings.TrimSpace(query) == "" {
		return nil
	}
	opts := tmdb.SearchOptions{Year: year}
	if mediaType == MediaTV {
		resp, err := c.tmdb.SearchTV(ctx, query, opts)
		if err != nil {
			c.failed(ctx, "tv search failed", "tmdb_search_failed", err, logging.String("query", query))
			return nil
		}
		if candidates := c.candidates(query, year, "tv", resp); len(candidates) > 0 {
			return candidates
		}
	}
	resp, err := c.tmdb.SearchMulti(ctx, query, opts)
	if err != nil {
		c.failed(ctx, "title search failed", "tmdb_search_failed", err, logging.String("query", query))
		return nil
	}
	return c.candidates(query, year, "multi", resp)
}

func (c *Client) candidates(query string, year int, endpoint string, resp *tmdb.Response) []RawCandidate {
	candidates := make([]RawCandidate, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result.MediaType != string(MediaMovie) && result.MediaType != string(MediaTV) {
			continue
		}
		candidates = append(candidates, fromTMDB(result))
	}
	c.logger.Debug("title search results",
		logging.String("query", query),
		logging.String("endpoint", endpoint),
		logging.Int("year", year),
		logging.Int("candidates", len(candidates)))
	return candidates
}

// ExternalIMDbID bridges a TMDB id to its IMDb id, or "" when unknown.
func (c *Client) ExternalIMDbID(ctx context.Context, mediaType MediaType, id string) string {
	if c.tmdb == nil {
		return ""
	}
	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return ""
	}
	ids, err := c.tmdb.ExternalIDs(ctx, string(mediaType), numericID)
	if err != nil {
		c.failed(ctx, "external id lookup failed", "tmdb_external_ids_failed", err,
			logging.String("tmdb_id", id), logging.String("media_type", string(mediaType)))
		return ""
	}
	if !strings.HasPrefix(ids.IMDbID, "tt") {
		return ""
	}
	return ids.IMDbID
}

// EpisodeCount reports the episode total of a TMDB TV candidate.
func (c *Client) EpisodeCount(ctx context.Context, candidate RawCandidate) (int, bool) {
	if c.tmdb == nil || candidate.Source != SourceTMDB || candidate.MediaType != MediaTV {
		return 0, false
	}
	numericID, err := strconv.ParseInt(candidate.ID, 10, 64)
	if err != nil {
		return 0, false
	}
	details, err := c.tmdb.GetTVDetails(ctx, numericID)
	if err != nil {
		c.failed(ctx, "episode count lookup failed", "tmdb_details_failed", err, logging.String("tmdb_id", candidate.ID))
		return 0, false
	}
	if details.NumberOfEpisodes <= 0 {
		return 0, false
	}
	return details.NumberOfEpisodes, true
}

// LegacySuggest runs the suggestion search. Candidates carry IMDb ids.
func (c *Client) LegacySuggest(ctx context.Context, query string) []RawCandidate {
	if c.suggest == nil || strings.TrimSpace(query) == "" {
		return nil
	}
	suggestions, err := c.suggest.Suggest(ctx, query)
	if err != nil {
		c.failed(ctx, "suggestion search failed", "imdb_suggest_failed", err, logging.String("query", query))
		return nil
	}
	candidates := make([]RawCandidate, 0, len(suggestions))
	for _, s := range suggestions {
		candidates = append(candidates, RawCandidate{
			ID:        s.ID,
			Source:    SourceIMDbSuggest,
			Title:     s.Label,
			MediaType: suggestionMediaType(s.Kind),
			Year:      s.Year,
			Kind:      s.Kind,
		})
	}
	return candidates
}

// SeriesDisplayTitle returns a display title for an IMDb id, preferring
// TMDB and falling back to the suggestion endpoint. Returns "" when neither
// knows the id.
func (c *Client) SeriesDisplayTitle(ctx context.Context, imdbID string) string {
	if c.tmdb != nil {
		found, err := c.tmdb.FindByIMDb(ctx, imdbID)
		if err != nil {
			c.failed(ctx, "find by imdb id failed", "tmdb_find_failed", err, logging.String(logging.FieldIMDbID, imdbID))
		} else {
			for _, group := range [][]tmdb.Result{found.TVResults, found.MovieResults} {
				for _, result := range group {
					if title := strings.TrimSpace(result.DisplayTitle()); title != "" {
						return title
					}
				}
			}
		}
	}
	for _, candidate := range c.LegacySuggest(ctx, imdbID) {
		if candidate.ID == imdbID && strings.TrimSpace(candidate.Title) != "" {
			return candidate.Title
		}
	}
	return ""
}

func (c *Client) failed(ctx context.Context, msg, eventType string, err error, attrs ...logging.Attr) {
	logger := logging.WithContext(ctx, c.logger)
	if errors.Is(err, fetch.ErrNotFound) || errors.Is(err, kitsu.ErrNoMetadata) {
		logger.Debug(msg, logging.Args(append(attrs, logging.Error(err))...)...)
		return
	}
	attrs = append(attrs,
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "remote service unavailable or returned an unexpected payload"))
	logging.WarnWithContext(logger, msg, eventType, attrs...)
}

func fromTMDB(result tmdb.Result) RawCandidate {
	candidate := RawCandidate{
		ID:            strconv.FormatInt(result.ID, 10),
		Source:        SourceTMDB,
		Title:         result.DisplayTitle(),
		OriginalTitle: result.OriginalDisplayTitle(),
		MediaType:     MediaType(result.MediaType),
		Year:          result.Year(),
		Origin:        result.OriginCountry,
		Language:      result.OriginalLanguage,
		Popularity:    result.Popularity,
		Kind:          result.MediaType,
	}
	ids := slices.Clone(result.GenreIDs)
	for _, g := range result.Genres {
		ids = append(ids, g.ID)
	}
	for _, id := range ids {
		if name, ok := tmdbGenreNames[id]; ok {
			candidate.Genres = append(candidate.Genres, name)
		}
	}
	if result.IsAnimation() {
		candidate.Genres = append(candidate.Genres, GenreAnimation)
	}
	return candidate
}
