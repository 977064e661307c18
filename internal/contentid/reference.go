package contentid

import (
	"strconv"
	"strings"
)

// Platform names the catalog an identifier belongs to.
type Platform string

const (
	PlatformIMDb  Platform = "imdb"
	PlatformKitsu Platform = "kitsu"
	PlatformTMDB  Platform = "tmdb"
)

// ContentType distinguishes single titles from episodic content.
type ContentType string

const (
	TypeMovie  ContentType = "movie"
	TypeSeries ContentType = "series"
)

// ParseContentType accepts the addon's type path segment.
func ParseContentType(value string) (ContentType, bool) {
	switch ContentType(strings.ToLower(strings.TrimSpace(value))) {
	case TypeMovie:
		return TypeMovie, true
	case TypeSeries:
		return TypeSeries, true
	default:
		return "", false
	}
}

// Reference is a parsed content identifier.
type Reference struct {
	Platform Platform
	// NativeID is the catalog-specific id. For IMDb it is the digit sequence
	// without the "tt" prefix.
	NativeID    string
	ContentType ContentType
	// Season and Episode are set when the id addresses a single episode and
	// are numbered as the source catalog numbers them. Season 0 holds specials,
	// so use HasEpisode rather than testing for zero.
	Season  int
	Episode int
	// OriginalID is the decoded, un-decomposed input.
	OriginalID string

	kitsuPrefix string
	episodic    bool
	// Digit text as written, so leading zeros survive String.
	seasonText  string
	episodeText string
}

// HasEpisode reports whether the reference addresses a single episode.
func (r Reference) HasEpisode() bool {
	return r.episodic
}

// NeedsMapping reports whether the native id must be mapped to an IMDb id.
func (r Reference) NeedsMapping() bool {
	return r.Platform != PlatformIMDb
}

// IMDbID returns the IMDb tconst for IMDb references and "" otherwise.
func (r Reference) IMDbID() string {
	if r.Platform != PlatformIMDb {
		return ""
	}
	return "tt" + r.NativeID
}

// ForeignID returns the "platform:id" key used by the mapping store.
func (r Reference) ForeignID() string {
	return string(r.Platform) + ":" + r.NativeID
}

// String reconstructs the canonical identifier.
func (r Reference) String() string {
	var b strings.Builder
	switch r.Platform {
	case PlatformIMDb:
		b.WriteString("tt")
		b.WriteString(r.NativeID)
		if r.episodic {
			writeNumber(&b, r.seasonText, r.Season)
			writeNumber(&b, r.episodeText, r.Episode)
		}
	case PlatformKitsu:
		b.WriteString("kitsu:")
		b.WriteString(r.kitsuPrefix)
		b.WriteString(r.NativeID)
		if r.episodic {
			writeNumber(&b, r.episodeText, r.Episode)
		}
	case PlatformTMDB:
		b.WriteString("tmdb:")
		b.WriteString(r.NativeID)
		if r.episodic {
			writeNumber(&b, r.seasonText, r.Season)
			writeNumber(&b, r.episodeText, r.Episode)
		}
	}
	return b.String()
}

func writeNumber(b *strings.Builder, text string, value int) {
	b.WriteByte(':')
	if text != "" {
		b.WriteString(text)
		return
	}
	b.WriteString(strconv.Itoa(value))
}
