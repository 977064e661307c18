package contentid

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"imdbratings/internal/services"
)

// ErrParse marks identifiers that match none of the known shapes.
var ErrParse = errors.New("unrecognized content id")

type shape struct {
	pattern *regexp.Regexp
	build   func(match []string) (Reference, error)
}

// Ordered by priority; the first matching shape wins.
var shapes = []shape{
	{
		pattern: regexp.MustCompile(`^kitsu:(anime|movie|manga)?(\d+)(?::(\d+))?$`),
		build: func(m []string) (Reference, error) {
			ref := Reference{Platform: PlatformKitsu, NativeID: m[2], ContentType: TypeMovie, kitsuPrefix: m[1]}
			if m[3] == "" {
				return ref, nil
			}
			episode, err := number(m[3])
			if err != nil {
				return Reference{}, err
			}
			// Kitsu has no seasons; 1 is provisional until season inference runs.
			ref.Season, ref.Episode, ref.ContentType = 1, episode, TypeSeries
			ref.episodic, ref.episodeText = true, m[3]
			return ref, nil
		},
	},
	{
		pattern: regexp.MustCompile(`^tmdb:(\d+)(?::(\d+):(\d+))?$`),
		build: func(m []string) (Reference, error) {
			return withSeasonEpisode(Reference{Platform: PlatformTMDB, NativeID: m[1]}, m[2], m[3])
		},
	},
	{
		pattern: regexp.MustCompile(`^tt(\d+)(?::(\d+):(\d+))?$`),
		build: func(m []string) (Reference, error) {
			return withSeasonEpisode(Reference{Platform: PlatformIMDb, NativeID: m[1]}, m[2], m[3])
		},
	},
}

// Parse classifies rawID. Percent-encoded input is decoded first. The error
// wraps both ErrParse and services.ErrValidation.
func Parse(rawID string) (Reference, error) {
	decoded := strings.TrimSpace(rawID)
	if unescaped, err := url.PathUnescape(decoded); err == nil {
		decoded = unescaped
	}
	decoded = strings.TrimSuffix(decoded, ".json")

	for _, s := range shapes {
		match := s.pattern.FindStringSubmatch(decoded)
		if match == nil {
			continue
		}
		ref, err := s.build(match)
		if err != nil {
			return Reference{}, parseError(decoded, err)
		}
		ref.OriginalID = decoded
		return ref, nil
	}
	return Reference{}, parseError(decoded, nil)
}

func parseError(id string, cause error) error {
	if cause == nil {
		cause = ErrParse
	} else {
		cause = fmt.Errorf("%w: %w", ErrParse, cause)
	}
	return services.Wrap(services.ErrValidation, "contentid", "parse", fmt.Sprintf("id %q", id), cause)
}

func withSeasonEpisode(ref Reference, seasonText, episodeText string) (Reference, error) {
	ref.ContentType = TypeMovie
	if seasonText == "" {
		return ref, nil
	}
	season, err := number(seasonText)
	if err != nil {
		return Reference{}, err
	}
	episode, err := number(episodeText)
	if err != nil {
		return Reference{}, err
	}
	ref.Season, ref.Episode, ref.ContentType = season, episode, TypeSeries
	ref.episodic, ref.seasonText, ref.episodeText = true, seasonText, episodeText
	return ref, nil
}

// number converts a matched digit run. Zero is valid: season 0 holds specials.
func number(text string) (int, error) {
	value, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("number %q out of range: %w", text, err)
	}
	return value, nil
}
