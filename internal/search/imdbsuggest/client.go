// Package imdbsuggest queries IMDb's public title suggestion endpoint, the
// fallback used when no structured search capability finds a match.
package imdbsuggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"imdbratings/internal/fetch"
)

// Suggestion is one entry of the suggestion payload.
type Suggestion struct {
	ID    string `json:"id"`
	Label string `json:"l"`
	Kind  string `json:"q"`
	Year  int    `json:"y"`
	Cast  string `json:"s"`
}

type payload struct {
	D []Suggestion `json:"d"`
}

// Client queries the suggestion endpoint.
type Client struct {
	baseURL string
	getter  fetch.Getter
}

// New creates a suggestion client.
func New(baseURL string, getter fetch.Getter) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("imdb suggestion base url required")
	}
	if getter == nil {
		getter = fetch.New(fetch.Options{})
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), getter: getter}, nil
}

// Suggest returns the title suggestions for query. Only title ids (tt...)
// are returned.
func (c *Client) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	endpoint := fmt.Sprintf("%s/%s/%s.json", c.baseURL, bucket(query), url.PathEscape(query))
	body, err := c.getter.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("imdb suggest %q: %w", query, err)
	}
	var decoded payload
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode imdb suggestions: %w", err)
	}
	out := decoded.D[:0]
	for _, s := range decoded.D {
		if strings.HasPrefix(s.ID, "tt") {
			out = append(out, s)
		}
	}
	return out, nil
}

// bucket is the first character of the query lowercased, or "x" when it is
// not an ASCII letter or digit.
func bucket(query string) string {
	r := unicode.ToLower([]rune(query)[0])
	if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
		return "x"
	}
	return string(r)
}
