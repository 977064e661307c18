package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"imdbratings/internal/config"
	"imdbratings/internal/ratings"
	"imdbratings/internal/resolver"
	"imdbratings/internal/services"
)

const (
	descriptionSeparator = "───────────────"
	notAvailableLine     = "⭐ IMDb Rating: Not Available"
)

// DisplayOptions control how a rating stream is rendered.
type DisplayOptions struct {
	StreamName string `json:"streamName"`
	ShowVotes  bool   `json:"showVotes"`
	Format     string `json:"format"`
}

// DefaultDisplayOptions converts the configured addon defaults.
func DefaultDisplayOptions(cfg config.Addon) DisplayOptions {
	return DisplayOptions{StreamName: cfg.StreamName, ShowVotes: cfg.ShowVotes, Format: cfg.Format}
}

// ParseDisplayOptions merges a JSON object over defaults. Keys that are
// absent keep their default. On a decode error the defaults are returned
// together with the error.
func ParseDisplayOptions(raw string, defaults DisplayOptions) (DisplayOptions, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaults, nil
	}
	var overrides struct {
		StreamName *string `json:"streamName"`
		ShowVotes  *bool   `json:"showVotes"`
		Format     *string `json:"format"`
	}
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		return defaults, services.Wrap(services.ErrValidation, "api", "parse display options", "config is not a JSON object", err)
	}
	opts := defaults
	if overrides.StreamName != nil && strings.TrimSpace(*overrides.StreamName) != "" {
		opts.StreamName = strings.TrimSpace(*overrides.StreamName)
	}
	if overrides.ShowVotes != nil {
		opts.ShowVotes = *overrides.ShowVotes
	}
	if overrides.Format != nil {
		switch format := strings.ToLower(strings.TrimSpace(*overrides.Format)); format {
		case config.FormatSingleline, config.FormatMultiline:
			opts.Format = format
		}
	}
	return opts, nil
}

// NewManifest returns the addon manifest.
func NewManifest() Manifest {
	return Manifest{
		ID:          "imdb.ratings.local",
		Version:     AddonVersion,
		Name:        "IMDb Ratings",
		Description: "Shows IMDb ratings for movies and individual TV episodes",
		Resources:   []string{"stream"},
		Types:       []string{"movie", "series"},
		Catalogs:    []any{},
		IDPrefixes:  []string{"tt", "kitsu"},
		BehaviorHints: ManifestBehaviors{
			Configurable:          true,
			ConfigurationRequired: false,
		},
	}
}

// FormatStream renders a resolution result as a rating stream.
func FormatStream(result resolver.Result, opts DisplayOptions) Stream {
	stream := Stream{
		Name:        opts.StreamName,
		Description: describe(result, opts),
		BehaviorHints: StreamBehaviors{
			NotWebReady: true,
			BingeGroup:  "ratings-" + result.OriginalID,
		},
		Type: "other",
	}
	if target := linkTarget(result); target != "" {
		stream.ExternalURL = fmt.Sprintf("https://www.imdb.com/title/%s/", target)
	}
	return stream
}

func describe(result resolver.Result, opts DisplayOptions) string {
	if result.NotFound {
		if opts.Format == config.FormatSingleline {
			return notAvailableLine
		}
		return strings.Join([]string{descriptionSeparator, notAvailableLine, descriptionSeparator}, "\n")
	}

	rating := ratings.FormatRating(result.Rating)
	votes := ""
	if opts.ShowVotes && result.Votes > 0 {
		votes = fmt.Sprintf(" (%s votes)", humanize.Comma(result.Votes))
	}
	if opts.Format == config.FormatSingleline {
		return fmt.Sprintf("⭐ IMDb: %s/10%s", rating, votes)
	}

	lines := []string{descriptionSeparator, fmt.Sprintf("⭐ IMDb        : %s/10", rating)}
	if indicator := ratingIndicator(result); indicator != "" {
		lines = append(lines, indicator)
	}
	lines = append(lines, votes, descriptionSeparator)
	return strings.Join(lines, "\n")
}

func ratingIndicator(result resolver.Result) string {
	switch {
	case result.Confidence == ratings.ConfidenceSeriesFallback && result.Episode > 0:
		return "(Series Rating)"
	case result.IsEpisode():
		return "(Episode Rating)"
	default:
		return ""
	}
}

func linkTarget(result resolver.Result) string {
	if result.IsEpisode() {
		return result.EpisodeID
	}
	return result.IMDbID
}
