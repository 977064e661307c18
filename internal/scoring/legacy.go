package scoring

import (
	"regexp"

	"imdbratings/internal/search"
)

const (
	pointsLegacyType    = 10
	pointsLegacyEpisode = -40
	pointsLegacyOddity  = -25
)

var specialPattern = regexp.MustCompile(`(?i)\b(?:special|specials|ova|oad|episode|recap|picture drama)\b`)

// ScoreLegacy rates suggestion-style candidates with the lighter rules of
// the fallback path: title, year and type, with penalties for episode and
// special-looking entries.
func (s *Scorer) ScoreLegacy(candidates []search.RawCandidate, sc Context, query string, cleaned bool) []Scored {
	queryNorm := normalizeTitle(query)
	queryBase := baseTitle(query, s.variants)
	scored := make([]Scored, 0, len(candidates))
	for _, candidate := range candidates {
		points, exact := s.titlePoints(queryNorm, queryBase, candidate)
		points += s.yearPoints(sc.Year, candidate.Year, cleaned)
		if sc.MediaType != "" && candidate.MediaType == sc.MediaType {
			points += pointsLegacyType
		}
		if specialPattern.MatchString(candidate.Kind) {
			points += pointsLegacyEpisode
		} else if specialPattern.MatchString(candidate.Title) {
			points += pointsLegacyOddity
		}
		scored = append(scored, Scored{Candidate: candidate, Score: points, Exact: exact})
	}
	sortScored(scored)
	return scored
}

// AcceptLegacy applies the legacy threshold.
func (s *Scorer) AcceptLegacy(scored []Scored) (Scored, bool) {
	if len(scored) == 0 {
		return Scored{}, false
	}
	return scored[0], scored[0].Score >= s.cfg.MinLegacyScore
}
