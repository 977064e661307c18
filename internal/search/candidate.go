package search

import "strings"

// Source names the capability that produced a candidate.
type Source string

const (
	SourceTMDB        Source = "tmdb"
	SourceIMDbSuggest Source = "imdb_suggest"
)

// MediaType is the normalized candidate type.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
	MediaOther MediaType = "other"
)

// GenreAnimation is the normalized animation genre tag.
const GenreAnimation = "animation"

// RawCandidate is one search result before scoring. ID is native to Source:
// a numeric TMDB id or an IMDb title id.
type RawCandidate struct {
	ID            string
	Source        Source
	Title         string
	OriginalTitle string
	MediaType     MediaType
	Year          int
	Genres        []string
	Origin        []string
	Language      string
	Popularity    float64
	// Kind is the capability's own type label, such as "TV series" or
	// "TV episode".
	Kind string
}

// HasGenre reports whether the candidate carries the genre tag.
func (c RawCandidate) HasGenre(genre string) bool {
	for _, g := range c.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// FromOrigin reports whether the candidate lists the country code.
func (c RawCandidate) FromOrigin(country string) bool {
	for _, o := range c.Origin {
		if strings.EqualFold(o, country) {
			return true
		}
	}
	return false
}

// Metadata is native catalog metadata for a foreign title.
type Metadata struct {
	Titles       []string
	Year         int
	Subtype      string
	EpisodeCount int
}

// MediaType maps the catalog subtype onto a candidate media type. Kitsu
// subtypes other than movie are episodic.
func (m Metadata) MediaType() MediaType {
	switch strings.ToLower(strings.TrimSpace(m.Subtype)) {
	case "movie":
		return MediaMovie
	case "":
		return ""
	default:
		return MediaTV
	}
}

// suggestionMediaType classifies IMDb suggestion kinds.
func suggestionMediaType(kind string) MediaType {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "tv series", "tv mini-series", "tv miniseries":
		return MediaTV
	case "feature", "movie", "tv movie", "video", "tv special":
		return MediaMovie
	default:
		return MediaOther
	}
}

// tmdbGenreNames covers the genres scoring can see besides animation, which
// tmdb.Result.IsAnimation detects.
var tmdbGenreNames = map[int]string{
	12:    "adventure",
	14:    "fantasy",
	18:    "drama",
	28:    "action",
	35:    "comedy",
	878:   "science fiction",
	10751: "family",
	10759: "action & adventure",
	10762: "kids",
	10765: "sci-fi & fantasy",
}
