package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"imdbratings/internal/fetch"
)

// AnimationGenreID is TMDB's genre id for animation.
const AnimationGenreID = 16

// Genre is a TMDB genre as returned by detail endpoints.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Result represents a single TMDB search match or detail payload.
type Result struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	Name             string   `json:"name"`
	OriginalTitle    string   `json:"original_title"`
	OriginalName     string   `json:"original_name"`
	ReleaseDate      string   `json:"release_date"`
	FirstAirDate     string   `json:"first_air_date"`
	MediaType        string   `json:"media_type"`
	Popularity       float64  `json:"popularity"`
	VoteAverage      float64  `json:"vote_average"`
	VoteCount        int64    `json:"vote_count"`
	GenreIDs         []int    `json:"genre_ids"`
	Genres           []Genre  `json:"genres"`
	OriginCountry    []string `json:"origin_country"`
	OriginalLanguage string   `json:"original_language"`
	NumberOfEpisodes int      `json:"number_of_episodes"`
}

// DisplayTitle returns the movie title or TV name, whichever is set.
func (r Result) DisplayTitle() string {
	if strings.TrimSpace(r.Title) != "" {
		return r.Title
	}
	return r.Name
}

// OriginalDisplayTitle returns the original-language title or name.
func (r Result) OriginalDisplayTitle() string {
	if strings.TrimSpace(r.OriginalTitle) != "" {
		return r.OriginalTitle
	}
	return r.OriginalName
}

// Year extracts the release or first-air year, or 0 when unknown.
func (r Result) Year() int {
	date := r.ReleaseDate
	if date == "" {
		date = r.FirstAirDate
	}
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// IsAnimation reports whether the genre list includes animation.
func (r Result) IsAnimation() bool {
	for _, id := range r.GenreIDs {
		if id == AnimationGenreID {
			return true
		}
	}
	for _, genre := range r.Genres {
		if genre.ID == AnimationGenreID {
			return true
		}
	}
	return false
}

// Response models the TMDB paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// ExternalIDs holds the cross-catalog identifiers of a TMDB entry.
type ExternalIDs struct {
	ID     int64  `json:"id"`
	IMDbID string `json:"imdb_id"`
	TVDBID int64  `json:"tvdb_id"`
}

// FindResponse is the payload of /find/{external_id}.
type FindResponse struct {
	MovieResults []Result `json:"movie_results"`
	TVResults    []Result `json:"tv_results"`
}

// SearchOptions contains optional search parameters.
type SearchOptions struct {
	Year int
}

// Searcher defines the TMDB operations used by candidate discovery.
type Searcher interface {
	SearchMulti(ctx context.Context, query string, opts SearchOptions) (*Response, error)
	SearchTV(ctx context.Context, query string, opts SearchOptions) (*Response, error)
	ExternalIDs(ctx context.Context, mediaType string, id int64) (*ExternalIDs, error)
	GetTVDetails(ctx context.Context, showID int64) (*Result, error)
	GetMovieDetails(ctx context.Context, movieID int64) (*Result, error)
	FindByIMDb(ctx context.Context, imdbID string) (*FindResponse, error)
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey   string
	baseURL  string
	language string
	getter   fetch.Getter
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithGetter overrides the default fetcher.
func WithGetter(getter fetch.Getter) Option {
	return func(c *Client) {
		if getter != nil {
			c.getter = getter
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: strings.TrimSpace(language),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.getter == nil {
		client.getter = fetch.New(fetch.Options{})
	}
	return client, nil
}

// SearchMulti performs a TMDB multi search across movies and TV.
func (c *Client) SearchMulti(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	if opts.Year > 0 {
		params.Set("year", strconv.Itoa(opts.Year))
	}
	var payload Response
	if err := c.get(ctx, "/search/multi", params, &payload); err != nil {
		return nil, fmt.Errorf("tmdb multi search: %w", err)
	}
	return &payload, nil
}

// SearchTV performs a TMDB TV search.
func (c *Client) SearchTV(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	if opts.Year > 0 {
		params.Set("first_air_date_year", strconv.Itoa(opts.Year))
	}
	var payload Response
	if err := c.get(ctx, "/search/tv", params, &payload); err != nil {
		return nil, fmt.Errorf("tmdb tv search: %w", err)
	}
	for i := range payload.Results {
		payload.Results[i].MediaType = "tv"
	}
	return &payload, nil
}

// ExternalIDs fetches the external identifiers for a movie or TV entry.
func (c *Client) ExternalIDs(ctx context.Context, mediaType string, id int64) (*ExternalIDs, error) {
	if id <= 0 {
		return nil, errors.New("tmdb id must be positive")
	}
	if mediaType != "movie" && mediaType != "tv" {
		return nil, fmt.Errorf("unsupported media type %q", mediaType)
	}
	var payload ExternalIDs
	if err := c.get(ctx, fmt.Sprintf("/%s/%d/external_ids", mediaType, id), url.Values{}, &payload); err != nil {
		return nil, fmt.Errorf("tmdb external ids: %w", err)
	}
	return &payload, nil
}

// GetTVDetails fetches TV show details by TMDB ID.
func (c *Client) GetTVDetails(ctx context.Context, showID int64) (*Result, error) {
	if showID <= 0 {
		return nil, errors.New("show id must be positive")
	}
	var payload Result
	if err := c.get(ctx, fmt.Sprintf("/tv/%d", showID), url.Values{}, &payload); err != nil {
		return nil, fmt.Errorf("tmdb tv details: %w", err)
	}
	payload.MediaType = "tv"
	return &payload, nil
}

// GetMovieDetails fetches movie details by TMDB ID.
func (c *Client) GetMovieDetails(ctx context.Context, movieID int64) (*Result, error) {
	if movieID <= 0 {
		return nil, errors.New("movie id must be positive")
	}
	var payload Result
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", movieID), url.Values{}, &payload); err != nil {
		return nil, fmt.Errorf("tmdb movie details: %w", err)
	}
	payload.MediaType = "movie"
	return &payload, nil
}

// FindByIMDb looks up TMDB entries by IMDb id.
func (c *Client) FindByIMDb(ctx context.Context, imdbID string) (*FindResponse, error) {
	imdbID = strings.TrimSpace(imdbID)
	if !strings.HasPrefix(imdbID, "tt") {
		return nil, fmt.Errorf("invalid imdb id %q", imdbID)
	}
	params := url.Values{}
	params.Set("external_source", "imdb_id")
	var payload FindResponse
	if err := c.get(ctx, "/find/"+url.PathEscape(imdbID), params, &payload); err != nil {
		return nil, fmt.Errorf("tmdb find: %w", err)
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	body, err := c.getter.Get(ctx, endpoint.String())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode tmdb response: %w", err)
	}
	return nil
}
