package ratingsapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"imdbratings/internal/logging"
	"imdbratings/internal/ratings"
	"imdbratings/internal/ratingsapi"
	"imdbratings/internal/services"
)

type recorder struct {
	mu     sync.Mutex
	posted []ratingsapi.MappingPayload
}

func (r *recorder) snapshot() []ratingsapi.MappingPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ratingsapi.MappingPayload(nil), r.posted...)
}

func newServer(t *testing.T) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/rating/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "tt0111161":
			_, _ = w.Write([]byte(`{"id":"tt0111161","rating":"9.3","votes":"2900000","type":"direct"}`))
		case "bad":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Invalid ID. Must start with \"tt\""}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Rating not found for the specified ID"}`))
		}
	})
	mux.HandleFunc("GET /api/episode/{series}/{season}/{episode}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"seriesId":"tt0388629","season":1,"episode":5,"episodeId":"tt0000105","rating":"8.0","votes":"1200","type":"episode"}`))
	})
	mux.HandleFunc("GET /api/episode/id/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"episodeId":"tt0000105","rating":"8.0","votes":"1200","type":"episode"}`))
	})
	mux.HandleFunc("GET /api/kitsu-mapping/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "kitsu:1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"foreignId":"kitsu:1","imdbId":"tt0213338","source":"discovery_tmdb","confidence":88}`))
	})
	mux.HandleFunc("POST /api/kitsu-mapping", func(w http.ResponseWriter, r *http.Request) {
		var payload ratingsapi.MappingPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		rec.mu.Lock()
		rec.posted = append(rec.posted, payload)
		rec.mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("GET /api/cache/{key}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("key") != "k1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"hello":"world"},"cached":true}`))
	})
	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Stats failed"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, rec
}

func TestClientRatings(t *testing.T) {
	server, _ := newServer(t)
	client := ratingsapi.New(server.URL, time.Second, logging.NewNop())
	ctx := context.Background()

	rec, err := client.GetRating(ctx, "tt0111161")
	if err != nil {
		t.Fatalf("GetRating failed: %v", err)
	}
	if rec.IMDbID != "tt0111161" || rec.Rating != 9.3 || rec.Votes != 2900000 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if _, err := client.GetRating(ctx, "tt404"); !errors.Is(err, ratings.ErrNotFound) {
		t.Fatalf("missing rating error = %v", err)
	}
	if _, err := client.GetRating(ctx, "bad"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad request error = %v", err)
	}

	ep, err := client.GetEpisodeRating(ctx, "tt0388629", 1, 5)
	if err != nil {
		t.Fatalf("GetEpisodeRating failed: %v", err)
	}
	if ep.IMDbID != "tt0388629" || ep.EpisodeID != "tt0000105" || ep.Votes != 1200 {
		t.Fatalf("unexpected episode record: %+v", ep)
	}

	byID, err := client.GetEpisodeRatingByID(ctx, "tt0000105")
	if err != nil || byID.EpisodeID != "tt0000105" || byID.Rating != 8.0 {
		t.Fatalf("GetEpisodeRatingByID = %+v, %v", byID, err)
	}
}

func TestClientMappings(t *testing.T) {
	server, posted := newServer(t)
	client := ratingsapi.New(server.URL, time.Second, logging.NewNop())
	ctx := context.Background()

	mapping, err := client.GetMapping(ctx, "kitsu:1")
	if err != nil {
		t.Fatalf("GetMapping failed: %v", err)
	}
	if mapping.IMDbID != "tt0213338" || mapping.Source != ratings.SourceDiscoveryTMDB || mapping.Confidence != 88 {
		t.Fatalf("unexpected mapping: %+v", mapping)
	}
	if _, err := client.GetMapping(ctx, "kitsu:2"); !errors.Is(err, ratings.ErrNotFound) {
		t.Fatalf("missing mapping error = %v", err)
	}

	err = client.PutMapping(ctx, ratings.Mapping{ForeignID: "kitsu:3", IMDbID: "tt3", Source: ratings.SourceDiscoveryIMDb, Confidence: 40})
	if err != nil {
		t.Fatalf("PutMapping failed: %v", err)
	}
	got := posted.snapshot()
	if len(got) != 1 || got[0].ForeignID != "kitsu:3" || got[0].Source != "discovery_imdb_fallback" {
		t.Fatalf("unexpected posted payloads: %+v", got)
	}
}

func TestClientCacheAndErrors(t *testing.T) {
	server, _ := newServer(t)
	client := ratingsapi.New(server.URL, time.Second, logging.NewNop())
	ctx := context.Background()

	data, ok, err := client.CacheGet(ctx, "k1")
	if err != nil || !ok || string(data) != `{"hello":"world"}` {
		t.Fatalf("CacheGet = %q, %v, %v", data, ok, err)
	}
	if _, ok, err := client.CacheGet(ctx, "k2"); ok || err != nil {
		t.Fatalf("cache miss = %v, %v", ok, err)
	}

	if _, err := client.Stats(ctx); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("server error = %v, want external tool error", err)
	}
}

func TestEpisodeResponseKeepsSpecials(t *testing.T) {
	rec := ratings.Record{IMDbID: "tt0903747", EpisodeID: "tt1232244", Rating: 7.7, Votes: 3000}
	data, err := json.Marshal(ratingsapi.NewEpisodeResponse(rec, 0, 1))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["seriesId"] != "tt0903747" || body["season"] != float64(0) || body["episode"] != float64(1) {
		t.Fatalf("special rendered as %s", data)
	}

	var resp ratingsapi.RatingResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	back, err := resp.Record()
	if err != nil || back.IMDbID != "tt0903747" || back.EpisodeID != "tt1232244" {
		t.Fatalf("Record() = %+v, %v", back, err)
	}
}

func TestMappingPayloadAcceptsKitsuID(t *testing.T) {
	var payload ratingsapi.MappingPayload
	if err := json.Unmarshal([]byte(`{"kitsuId":"7936","imdbId":"tt0417299"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := payload.Mapping().ForeignID; got != "kitsu:7936" {
		t.Fatalf("ForeignID = %q, want kitsu:7936", got)
	}
}

func TestClientRetriesUnavailableReads(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls[r.Method]++
		n := calls[r.Method]
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id":"tt0111161","rating":"9.3","votes":"10","type":"direct"}`))
	}))
	t.Cleanup(server.Close)
	client := ratingsapi.New(server.URL, time.Second, logging.NewNop())

	rec, err := client.GetRating(context.Background(), "tt0111161")
	if err != nil || rec.Rating != 9.3 {
		t.Fatalf("GetRating after retry = %+v, %v", rec, err)
	}

	err = client.PutMapping(context.Background(), ratings.Mapping{ForeignID: "kitsu:1", IMDbID: "tt1"})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("writes must not be retried, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls[http.MethodGet] != 2 || calls[http.MethodPost] != 1 {
		t.Fatalf("unexpected call counts: %v", calls)
	}
}
