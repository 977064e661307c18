package ratingsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"imdbratings/internal/logging"
	"imdbratings/internal/ratings"
	"imdbratings/internal/services"
)

const (
	maxResponseBytes = 4 << 20
	// readAttempts bounds tries for idempotent requests that fail with a
	// retriable error.
	readAttempts = 2
	retryBackoff = 200 * time.Millisecond
)

// Client is a rating store backed by a remote ratings API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// New builds a client for baseURL ("http://localhost:3001").
func New(baseURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logging.NewComponentLogger(logger, "ratings_api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRating fetches a title rating.
func (c *Client) GetRating(ctx context.Context, imdbID string) (ratings.Record, error) {
	return c.getRecord(ctx, "/api/rating/"+url.PathEscape(imdbID))
}

// GetEpisodeRating fetches an episode rating by position.
func (c *Client) GetEpisodeRating(ctx context.Context, seriesID string, season, episode int) (ratings.Record, error) {
	path := fmt.Sprintf("/api/episode/%s/%d/%d", url.PathEscape(seriesID), season, episode)
	rec, err := c.getRecord(ctx, path)
	if err != nil {
		return ratings.Record{}, err
	}
	if rec.IMDbID == "" || rec.IMDbID == rec.EpisodeID {
		rec.IMDbID = seriesID
	}
	return rec, nil
}

// GetEpisodeRatingByID fetches an episode rating by episode id.
func (c *Client) GetEpisodeRatingByID(ctx context.Context, episodeID string) (ratings.Record, error) {
	rec, err := c.getRecord(ctx, "/api/episode/id/"+url.PathEscape(episodeID))
	if err != nil {
		return ratings.Record{}, err
	}
	if rec.EpisodeID == "" {
		rec.EpisodeID = episodeID
	}
	return rec, nil
}

// GetMapping fetches a stored mapping.
func (c *Client) GetMapping(ctx context.Context, foreignID string) (ratings.Mapping, error) {
	var payload MappingPayload
	if err := c.do(ctx, http.MethodGet, "/api/kitsu-mapping/"+url.PathEscape(foreignID), nil, &payload); err != nil {
		return ratings.Mapping{}, err
	}
	mapping := payload.Mapping()
	if mapping.ForeignID == "" {
		mapping.ForeignID = foreignID
	}
	return mapping, nil
}

// PutMapping stores a mapping.
func (c *Client) PutMapping(ctx context.Context, mapping ratings.Mapping) error {
	return c.do(ctx, http.MethodPost, "/api/kitsu-mapping", NewMappingPayload(mapping), nil)
}

// ListMappings lists stored mappings.
func (c *Client) ListMappings(ctx context.Context) ([]ratings.Mapping, error) {
	var list MappingList
	if err := c.do(ctx, http.MethodGet, "/api/kitsu-mapping", nil, &list); err != nil {
		return nil, err
	}
	out := make([]ratings.Mapping, 0, len(list.Mappings))
	for _, payload := range list.Mappings {
		out = append(out, payload.Mapping())
	}
	return out, nil
}

// Stats fetches store counters.
func (c *Client) Stats(ctx context.Context) (ratings.Stats, error) {
	var stats ratings.Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats)
	return stats, err
}

// CacheGet reads the remote response cache.
func (c *Client) CacheGet(ctx context.Context, key string) ([]byte, bool, error) {
	var entry CacheEntry
	err := c.do(ctx, http.MethodGet, "/api/cache/"+url.PathEscape(key), nil, &entry)
	if errors.Is(err, ratings.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Data, true, nil
}

// CachePut writes the remote response cache. Payloads that are not JSON are
// not cached.
func (c *Client) CachePut(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if !json.Valid(data) {
		return nil
	}
	entry := CacheEntry{Key: key, Data: data, TTLSeconds: int(ttl / time.Second)}
	return c.do(ctx, http.MethodPost, "/api/cache", entry, nil)
}

func (c *Client) getRecord(ctx context.Context, path string) (ratings.Record, error) {
	var resp RatingResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return ratings.Record{}, err
	}
	rec, err := resp.Record()
	if err != nil {
		return ratings.Record{}, services.Wrap(services.ErrExternalTool, "ratings_api", "decode", path, err)
	}
	return rec, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	attempts := 1
	if method == http.MethodGet {
		attempts = readAttempts
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = c.doOnce(ctx, method, path, body, dest)
		if err == nil || attempt == attempts || !services.IsRetriable(err) {
			return err
		}
		c.logger.Debug("retrying ratings api call",
			logging.String("path", path),
			logging.Int("attempt", attempt),
			logging.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "ratings_api", strings.ToLower(method), path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "ratings_api", "read body", path, err)
	}
	c.logger.Debug("ratings api call",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ratings.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		return services.Wrap(services.ErrValidation, "ratings_api", strings.ToLower(method), errorMessage(data), nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return services.Wrap(services.ErrExternalTool, "ratings_api", strings.ToLower(method),
			path+" returned "+strconv.Itoa(resp.StatusCode)+": "+errorMessage(data), nil)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return services.Wrap(services.ErrExternalTool, "ratings_api", "decode", path, err)
	}
	return nil
}

func errorMessage(data []byte) string {
	var body ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}
