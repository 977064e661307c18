package ratingsapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"imdbratings/internal/ratings"
)

// Response type tags.
const (
	TypeDirect  = "direct"
	TypeEpisode = "episode"
)

// RatingResponse is the body of the rating endpoints. Rating and votes are
// rendered as strings, the rating with one decimal place.
type RatingResponse struct {
	ID        string `json:"id,omitempty"`
	SeriesID  string `json:"seriesId,omitempty"`
	Season    *int   `json:"season,omitempty"`
	Episode   *int   `json:"episode,omitempty"`
	EpisodeID string `json:"episodeId,omitempty"`
	Rating    string `json:"rating"`
	Votes     string `json:"votes"`
	Type      string `json:"type"`
}

// NewRatingResponse renders a title record.
func NewRatingResponse(rec ratings.Record) RatingResponse {
	return RatingResponse{
		ID:     rec.IMDbID,
		Rating: ratings.FormatRating(rec.Rating),
		Votes:  strconv.FormatInt(rec.Votes, 10),
		Type:   TypeDirect,
	}
}

// NewEpisodeResponse renders an episode found by series position. Season 0
// (specials) is kept on the wire.
func NewEpisodeResponse(rec ratings.Record, season, episode int) RatingResponse {
	resp := NewEpisodeIDResponse(rec)
	resp.Season = &season
	resp.Episode = &episode
	return resp
}

// NewEpisodeIDResponse renders an episode found by its own id.
func NewEpisodeIDResponse(rec ratings.Record) RatingResponse {
	return RatingResponse{
		SeriesID:  rec.IMDbID,
		EpisodeID: rec.EpisodeID,
		Rating:    ratings.FormatRating(rec.Rating),
		Votes:     strconv.FormatInt(rec.Votes, 10),
		Type:      TypeEpisode,
	}
}

// Record converts the wire form back into a record.
func (r RatingResponse) Record() (ratings.Record, error) {
	rating, err := strconv.ParseFloat(strings.TrimSpace(r.Rating), 64)
	if err != nil {
		return ratings.Record{}, fmt.Errorf("parse rating %q: %w", r.Rating, err)
	}
	var votes int64
	if v := strings.TrimSpace(r.Votes); v != "" {
		votes, err = strconv.ParseInt(strings.ReplaceAll(v, ",", ""), 10, 64)
		if err != nil {
			return ratings.Record{}, fmt.Errorf("parse votes %q: %w", r.Votes, err)
		}
	}
	rec := ratings.Record{Rating: rating, Votes: votes, EpisodeID: r.EpisodeID}
	switch {
	case r.ID != "":
		rec.IMDbID = r.ID
	case r.SeriesID != "":
		rec.IMDbID = r.SeriesID
	default:
		rec.IMDbID = r.EpisodeID
	}
	return rec, nil
}

// MappingPayload is the body of the mapping endpoints. KitsuID is accepted
// on writes from older clients and means "kitsu:<KitsuID>".
type MappingPayload struct {
	ForeignID    string    `json:"foreignId"`
	KitsuID      string    `json:"kitsuId,omitempty"`
	IMDbID       string    `json:"imdbId"`
	Source       string    `json:"source,omitempty"`
	Confidence   int       `json:"confidence"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	LastVerified time.Time `json:"lastVerified,omitzero"`
}

// NewMappingPayload renders a stored mapping.
func NewMappingPayload(m ratings.Mapping) MappingPayload {
	return MappingPayload{
		ForeignID:    m.ForeignID,
		IMDbID:       m.IMDbID,
		Source:       string(m.Source),
		Confidence:   m.Confidence,
		CreatedAt:    m.CreatedAt,
		LastVerified: m.LastVerified,
	}
}

// Mapping converts the payload into a mapping.
func (p MappingPayload) Mapping() ratings.Mapping {
	foreignID := strings.TrimSpace(p.ForeignID)
	if foreignID == "" && strings.TrimSpace(p.KitsuID) != "" {
		foreignID = "kitsu:" + strings.TrimPrefix(strings.TrimSpace(p.KitsuID), "kitsu:")
	}
	return ratings.Mapping{
		ForeignID:    foreignID,
		IMDbID:       strings.TrimSpace(p.IMDbID),
		Source:       ratings.Source(p.Source),
		Confidence:   p.Confidence,
		CreatedAt:    p.CreatedAt,
		LastVerified: p.LastVerified,
	}
}

// MappingList is the body of the mapping listing endpoint.
type MappingList struct {
	Mappings []MappingPayload `json:"mappings"`
}

// CacheEntry is the body of the cache endpoints. Data must be JSON.
type CacheEntry struct {
	Key        string          `json:"key,omitempty"`
	Data       json.RawMessage `json:"data"`
	TTLSeconds int             `json:"ttlSeconds,omitempty"`
	Cached     bool            `json:"cached,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
