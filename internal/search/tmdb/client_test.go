package tmdb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"imdbratings/internal/fetch"
	"imdbratings/internal/logging"
	"imdbratings/internal/search/tmdb"
)

func newClient(t *testing.T, handler http.HandlerFunc) *tmdb.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	getter := fetch.New(fetch.Options{HTTPClient: server.Client(), Logger: logging.NewNop()})
	client, err := tmdb.New("key", server.URL, "en-US", tmdb.WithGetter(getter))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "en-US"); err == nil {
		t.Fatal("expected error when api key missing")
	}
	if _, err := tmdb.New("key", " ", "en-US"); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestSearchMultiSuccess(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/multi" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "key" {
			t.Errorf("expected api_key query parameter, got %q", r.URL.RawQuery)
		}
		if r.URL.Query().Get("year") != "2013" {
			t.Errorf("expected year filter, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":1429,"name":"Attack on Titan","media_type":"tv","first_air_date":"2013-04-07","genre_ids":[16,10759],"origin_country":["JP"]}]}`))
	})

	resp, err := client.SearchMulti(context.Background(), "Attack on Titan", tmdb.SearchOptions{Year: 2013})
	if err != nil {
		t.Fatalf("SearchMulti returned error: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("unexpected response: %#v", resp)
	}
	result := resp.Results[0]
	if result.DisplayTitle() != "Attack on Titan" || result.Year() != 2013 || !result.IsAnimation() {
		t.Fatalf("unexpected result fields: %#v", result)
	}
}

func TestSearchHTTPError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status_code":500}`))
	})
	if _, err := client.SearchMulti(context.Background(), "fail", tmdb.SearchOptions{}); err == nil {
		t.Fatal("expected error when TMDB returns non-200")
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	client, err := tmdb.New("key", "https://example.com", "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.SearchMulti(context.Background(), "  ", tmdb.SearchOptions{}); err == nil {
		t.Fatal("expected error for empty query")
	}
	if _, err := client.SearchTV(context.Background(), "", tmdb.SearchOptions{}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestSearchTVTagsMediaType(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("first_air_date_year") != "2019" {
			t.Errorf("expected first_air_date_year, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"results":[{"id":85937,"name":"Demon Slayer"}]}`))
	})
	resp, err := client.SearchTV(context.Background(), "Demon Slayer", tmdb.SearchOptions{Year: 2019})
	if err != nil {
		t.Fatalf("SearchTV returned error: %v", err)
	}
	if resp.Results[0].MediaType != "tv" {
		t.Fatalf("media type = %q", resp.Results[0].MediaType)
	}
}

func TestExternalIDs(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tv/1429/external_ids" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":1429,"imdb_id":"tt2560140","tvdb_id":267440}`))
	})
	ids, err := client.ExternalIDs(context.Background(), "tv", 1429)
	if err != nil {
		t.Fatalf("ExternalIDs returned error: %v", err)
	}
	if ids.IMDbID != "tt2560140" {
		t.Fatalf("imdb id = %q", ids.IMDbID)
	}
	if _, err := client.ExternalIDs(context.Background(), "person", 1); err == nil {
		t.Fatal("expected error for unsupported media type")
	}
}

func TestGetTVDetailsAndFind(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tv/1429":
			_, _ = w.Write([]byte(`{"id":1429,"name":"Attack on Titan","number_of_episodes":94,"genres":[{"id":16,"name":"Animation"}]}`))
		case "/find/tt2560140":
			if r.URL.Query().Get("external_source") != "imdb_id" {
				t.Errorf("missing external_source: %q", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"movie_results":[],"tv_results":[{"id":1429,"name":"Attack on Titan"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	details, err := client.GetTVDetails(context.Background(), 1429)
	if err != nil {
		t.Fatalf("GetTVDetails returned error: %v", err)
	}
	if details.NumberOfEpisodes != 94 || !details.IsAnimation() || details.MediaType != "tv" {
		t.Fatalf("unexpected details: %#v", details)
	}

	found, err := client.FindByIMDb(context.Background(), "tt2560140")
	if err != nil {
		t.Fatalf("FindByIMDb returned error: %v", err)
	}
	if len(found.TVResults) != 1 || found.TVResults[0].Name != "Attack on Titan" {
		t.Fatalf("unexpected find response: %#v", found)
	}
	if _, err := client.FindByIMDb(context.Background(), "2560140"); err == nil {
		t.Fatal("expected error for malformed imdb id")
	}
}
