package ratings

import (
	"context"
	"fmt"
	"time"

	"imdbratings/internal/services"
)

// ErrNotFound reports a missing rating, episode or mapping.
var ErrNotFound = fmt.Errorf("%w: no matching record", services.ErrNotFound)

// Record is a rating as stored. EpisodeID is set for episode lookups.
type Record struct {
	IMDbID    string  `json:"id"`
	Rating    float64 `json:"rating"`
	Votes     int64   `json:"votes"`
	EpisodeID string  `json:"episodeId,omitempty"`
}

// Source tags the strategy that produced a mapping or rating.
type Source string

const (
	SourceManual          Source = "manual"
	SourcePersistentStore Source = "persistent_store"
	SourceDiscoveryTMDB   Source = "discovery_tmdb"
	SourceDiscoveryIMDb   Source = "discovery_imdb_fallback"
	SourceDirect          Source = "direct"
)

// Mapping is a resolved foreign id to IMDb id correspondence.
type Mapping struct {
	ForeignID    string    `json:"foreignId"`
	IMDbID       string    `json:"imdbId"`
	Source       Source    `json:"source"`
	Confidence   int       `json:"confidence"`
	CreatedAt    time.Time `json:"createdAt"`
	LastVerified time.Time `json:"lastVerified"`
}

// Stats summarizes store contents.
type Stats struct {
	Ratings            int64 `json:"ratings"`
	Episodes           int64 `json:"episodes"`
	Mappings           int64 `json:"mappings"`
	CacheEntries       int64 `json:"cacheEntries"`
	ActiveCacheEntries int64 `json:"activeCacheEntries"`
}

// Store is the rating store contract consumed by resolution. Lookups return
// ErrNotFound when nothing matches. GetEpisodeRatingByID only matches ids of
// known episodes and reports the owning series as the record's IMDbID.
type Store interface {
	GetRating(ctx context.Context, imdbID string) (Record, error)
	GetEpisodeRating(ctx context.Context, seriesID string, season, episode int) (Record, error)
	GetEpisodeRatingByID(ctx context.Context, episodeID string) (Record, error)
	GetMapping(ctx context.Context, foreignID string) (Mapping, error)
	PutMapping(ctx context.Context, mapping Mapping) error
}

// Catalog adds the listing and summary operations served over HTTP.
type Catalog interface {
	Store
	ListMappings(ctx context.Context) ([]Mapping, error)
	Stats(ctx context.Context) (Stats, error)
}

// FormatRating renders a rating with one decimal place.
func FormatRating(rating float64) string {
	return fmt.Sprintf("%.1f", rating)
}
