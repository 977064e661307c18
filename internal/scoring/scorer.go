package scoring

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"imdbratings/internal/config"
	"imdbratings/internal/logging"
	"imdbratings/internal/search"
)

// Point values for each scoring factor.
const (
	pointsExactTitle     = 50
	pointsPrefixTitle    = 30
	pointsContainsTitle  = 20
	pointsFuzzyMax       = 20
	pointsBaseTitle      = 15
	pointsYearMatch      = 20
	pointsYearStep       = 5
	pointsYearMiss       = -15
	pointsAnimation      = 15
	pointsJapanese       = 15
	pointsTypeMatch      = 10
	pointsEpisodesClose  = 15
	pointsEpisodesNear   = 5
	pointsEpisodesFar    = -10
	pointsPopularityMax  = 1
	fuzzyFloor           = 0.75
	episodeCloseAbsolute = 2
	episodeNearRatio     = 0.25
	episodeFarRatio      = 0.5
)

// EpisodeCounter looks up a candidate's episode total. It is the only
// factor that costs an external call.
type EpisodeCounter interface {
	EpisodeCount(ctx context.Context, candidate search.RawCandidate) (int, bool)
}

// Context is what is known about the foreign title being matched.
type Context struct {
	Year         int
	MediaType    search.MediaType
	EpisodeCount int
	Anime        bool
}

// ContextFromMetadata derives a scoring context from catalog metadata.
func ContextFromMetadata(meta search.Metadata, anime bool) Context {
	return Context{
		Year:         meta.Year,
		MediaType:    meta.MediaType(),
		EpisodeCount: meta.EpisodeCount,
		Anime:        anime,
	}
}

// Scored pairs a candidate with its score.
type Scored struct {
	Candidate search.RawCandidate
	Score     float64
	// Exact reports an exact normalized title match.
	Exact bool
}

// Scorer ranks candidates.
type Scorer struct {
	cfg      config.Scoring
	variants map[string]string
	counter  EpisodeCounter
	logger   *slog.Logger
}

// New creates a scorer. counter may be nil, which disables the episode
// count factor.
func New(cfg config.Scoring, counter EpisodeCounter, logger *slog.Logger) *Scorer {
	return &Scorer{
		cfg:      cfg,
		variants: variantTable(DefaultTitleVariants),
		counter:  counter,
		logger:   logging.NewComponentLogger(logger, "scoring"),
	}
}

// WithVariants replaces the base-title variant table.
func (s *Scorer) WithVariants(variants []TitleVariant) *Scorer {
	clone := *s
	clone.variants = variantTable(variants)
	return &clone
}

// Score rates each candidate for query and returns them best first.
// Rejected candidates are omitted. Ties keep input order.
func (s *Scorer) Score(ctx context.Context, candidates []search.RawCandidate, sc Context, query string, cleaned bool) []Scored {
	queryNorm := normalizeTitle(query)
	queryBase := baseTitle(query, s.variants)
	scored := make([]Scored, 0, len(candidates))
	for _, candidate := range candidates {
		points, exact := s.titlePoints(queryNorm, queryBase, candidate)

		if sc.MediaType == search.MediaTV && candidate.MediaType == search.MediaMovie &&
			!(exact && candidate.HasGenre(search.GenreAnimation)) {
			s.logger.Debug("candidate rejected",
				logging.String("candidate_id", candidate.ID),
				logging.String("title", candidate.Title),
				logging.String("reason", "movie candidate for episodic title"))
			continue
		}

		points += s.yearPoints(sc.Year, candidate.Year, cleaned)
		if sc.Anime {
			if candidate.HasGenre(search.GenreAnimation) {
				points += pointsAnimation
			}
			if candidate.FromOrigin("JP") || strings.EqualFold(candidate.Language, "ja") {
				points += pointsJapanese
			}
		}
		if sc.MediaType != "" && candidate.MediaType == sc.MediaType {
			points += pointsTypeMatch
		}
		if sc.EpisodeCount > 0 && candidate.MediaType == search.MediaTV && s.counter != nil {
			if count, ok := s.counter.EpisodeCount(ctx, candidate); ok {
				points += episodePoints(sc.EpisodeCount, count)
			}
		}
		points += math.Min(math.Max(candidate.Popularity, 0), 100) / 100 * pointsPopularityMax

		s.logger.Debug("candidate scored",
			logging.String("query", query),
			logging.String("candidate_id", candidate.ID),
			logging.String("title", candidate.Title),
			logging.Int("year", candidate.Year),
			logging.Float64("score", points),
			logging.Bool("exact_title_match", exact),
			logging.Bool("cleaned_query", cleaned))
		scored = append(scored, Scored{Candidate: candidate, Score: points, Exact: exact})
	}
	sortScored(scored)
	return scored
}

// Accept returns the best candidate when it clears the threshold for the
// query kind.
func (s *Scorer) Accept(scored []Scored, cleaned bool) (Scored, bool) {
	if len(scored) == 0 {
		return Scored{}, false
	}
	threshold := s.cfg.MinScore
	if cleaned {
		threshold = s.cfg.MinScoreCleaned
	}
	best := scored[0]
	return best, best.Score >= threshold
}

func (s *Scorer) titlePoints(queryNorm, queryBase string, candidate search.RawCandidate) (float64, bool) {
	best := 0.0
	exact := false
	baseMatch := false
	for _, title := range []string{candidate.Title, candidate.OriginalTitle} {
		if strings.TrimSpace(title) == "" {
			continue
		}
		titleNorm := normalizeTitle(title)
		points := matchPoints(queryNorm, titleNorm)
		if points == pointsExactTitle {
			exact = true
		}
		best = math.Max(best, points)
		if queryBase != "" && baseTitle(title, s.variants) == queryBase {
			baseMatch = true
		}
	}
	if baseMatch && !exact {
		best += pointsBaseTitle
	}
	return best, exact
}

func matchPoints(query, title string) float64 {
	switch {
	case query == "" || title == "":
		return 0
	case query == title:
		return pointsExactTitle
	case strings.HasPrefix(title, query) || strings.HasPrefix(query, title):
		return pointsPrefixTitle
	case strings.Contains(title, query) || strings.Contains(query, title):
		return pointsContainsTitle
	}
	similarity := float64(edlib.JaroWinklerSimilarity(query, title))
	if similarity < fuzzyFloor {
		return 0
	}
	return math.Round((similarity-fuzzyFloor)/(1-fuzzyFloor)*pointsFuzzyMax*10) / 10
}

func (s *Scorer) yearPoints(want, got int, cleaned bool) float64 {
	if want <= 0 || got <= 0 {
		return 0
	}
	tolerance := s.cfg.YearTolerance
	if cleaned {
		tolerance = s.cfg.YearToleranceCleaned
	}
	diff := absInt(want - got)
	if diff > tolerance {
		return pointsYearMiss
	}
	return math.Max(0, float64(pointsYearMatch-pointsYearStep*diff))
}

func episodePoints(want, got int) float64 {
	diff := absInt(want - got)
	switch {
	case diff <= episodeCloseAbsolute:
		return pointsEpisodesClose
	case float64(diff) <= float64(want)*episodeNearRatio:
		return pointsEpisodesNear
	case float64(diff) > float64(want)*episodeFarRatio:
		return pointsEpisodesFar
	default:
		return 0
	}
}

func sortScored(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
