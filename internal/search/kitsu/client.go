// Package kitsu fetches anime metadata from the Kitsu JSON:API.
package kitsu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"imdbratings/internal/fetch"
)

// Anime is the subset of Kitsu anime attributes used for discovery.
type Anime struct {
	ID             string
	CanonicalTitle string
	Titles         map[string]string
	StartDate      string
	Subtype        string
	EpisodeCount   int
}

// AllTitles returns the canonical title followed by the localized titles in
// a fixed order, skipping blanks.
func (a Anime) AllTitles() []string {
	out := make([]string, 0, 5)
	if t := strings.TrimSpace(a.CanonicalTitle); t != "" {
		out = append(out, t)
	}
	for _, key := range []string{"en", "en_jp", "en_us", "ja_jp"} {
		if t := strings.TrimSpace(a.Titles[key]); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Year returns the start year, or 0 when unknown.
func (a Anime) Year() int {
	if len(a.StartDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(a.StartDate[:4])
	if err != nil {
		return 0
	}
	return year
}

type animeDocument struct {
	Data *struct {
		ID         string `json:"id"`
		Attributes *struct {
			CanonicalTitle string            `json:"canonicalTitle"`
			Titles         map[string]string `json:"titles"`
			StartDate      string            `json:"startDate"`
			Subtype        string            `json:"subtype"`
			EpisodeCount   *int              `json:"episodeCount"`
		} `json:"attributes"`
	} `json:"data"`
}

// ErrNoMetadata reports a Kitsu response without anime attributes.
var ErrNoMetadata = errors.New("kitsu returned no metadata")

// Client queries Kitsu.
type Client struct {
	baseURL string
	getter  fetch.Getter
}

// New creates a Kitsu client. The getter should send the JSON:API accept
// header.
func New(baseURL string, getter fetch.Getter) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("kitsu base url required")
	}
	if getter == nil {
		getter = fetch.New(fetch.Options{}).WithHeader("Accept", "application/vnd.api+json")
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), getter: getter}, nil
}

// Anime fetches one anime by numeric id.
func (c *Client) Anime(ctx context.Context, id string) (*Anime, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("kitsu id must not be empty")
	}
	body, err := c.getter.Get(ctx, c.baseURL+"/anime/"+id)
	if err != nil {
		return nil, fmt.Errorf("kitsu anime %s: %w", id, err)
	}
	var doc animeDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode kitsu response: %w", err)
	}
	if doc.Data == nil || doc.Data.Attributes == nil {
		return nil, ErrNoMetadata
	}
	attrs := doc.Data.Attributes
	anime := &Anime{
		ID:             doc.Data.ID,
		CanonicalTitle: attrs.CanonicalTitle,
		Titles:         attrs.Titles,
		StartDate:      attrs.StartDate,
		Subtype:        attrs.Subtype,
	}
	if attrs.EpisodeCount != nil {
		anime.EpisodeCount = *attrs.EpisodeCount
	}
	return anime, nil
}
