package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"imdbratings/internal/fetch"
	"imdbratings/internal/logging"
	"imdbratings/internal/search/imdbsuggest"
	"imdbratings/internal/search/kitsu"
	"imdbratings/internal/search/tmdb"
)

type fakeTMDB struct {
	multi     *tmdb.Response
	tv        *tmdb.Response
	endpoints []string
	external  map[int64]string
	details   map[int64]*tmdb.Result
	find      *tmdb.FindResponse
	err       error
	calls     int
}

func (f *fakeTMDB) SearchMulti(context.Context, string, tmdb.SearchOptions) (*tmdb.Response, error) {
	f.calls++
	f.endpoints = append(f.endpoints, "multi")
	if f.err != nil {
		return nil, f.err
	}
	return f.multi, nil
}

func (f *fakeTMDB) SearchTV(context.Context, string, tmdb.SearchOptions) (*tmdb.Response, error) {
	f.calls++
	f.endpoints = append(f.endpoints, "tv")
	if f.err != nil {
		return nil, f.err
	}
	if f.tv == nil {
		return &tmdb.Response{}, nil
	}
	return f.tv, nil
}

func (f *fakeTMDB) ExternalIDs(_ context.Context, _ string, id int64) (*tmdb.ExternalIDs, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &tmdb.ExternalIDs{ID: id, IMDbID: f.external[id]}, nil
}

func (f *fakeTMDB) GetTVDetails(_ context.Context, id int64) (*tmdb.Result, error) {
	f.calls++
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return nil, fetch.ErrNotFound
}

func (f *fakeTMDB) GetMovieDetails(ctx context.Context, id int64) (*tmdb.Result, error) {
	return f.GetTVDetails(ctx, id)
}

func (f *fakeTMDB) FindByIMDb(context.Context, string) (*tmdb.FindResponse, error) {
	f.calls++
	if f.find == nil {
		return &tmdb.FindResponse{}, nil
	}
	return f.find, nil
}

type fakeAnime struct {
	anime *kitsu.Anime
	err   error
}

func (f fakeAnime) Anime(context.Context, string) (*kitsu.Anime, error) {
	return f.anime, f.err
}

type fakeSuggest struct {
	results []imdbsuggest.Suggestion
	err     error
}

func (f fakeSuggest) Suggest(context.Context, string) ([]imdbsuggest.Suggestion, error) {
	return f.results, f.err
}

func TestSearchTitlesNormalizesCandidates(t *testing.T) {
	fake := &fakeTMDB{multi: &tmdb.Response{Results: []tmdb.Result{
		{ID: 1429, Name: "Attack on Titan", OriginalName: "進撃の巨人", MediaType: "tv", FirstAirDate: "2013-04-07",
			GenreIDs: []int{16, 10759}, OriginCountry: []string{"JP"}, OriginalLanguage: "ja", Popularity: 80},
		{ID: 7, Name: "Someone", MediaType: "person"},
	}}}
	client := NewClient(fake, nil, nil, logging.NewNop())

	got := client.SearchTitles(context.Background(), "Attack on Titan", 2013, "")
	if len(got) != 1 {
		t.Fatalf("expected person results to be dropped, got %#v", got)
	}
	c := got[0]
	if c.ID != "1429" || c.Source != SourceTMDB || c.MediaType != MediaTV || c.Year != 2013 {
		t.Fatalf("unexpected candidate %#v", c)
	}
	if !c.HasGenre(GenreAnimation) || !c.FromOrigin("jp") || c.Language != "ja" || c.OriginalTitle != "進撃の巨人" {
		t.Fatalf("unexpected candidate attributes %#v", c)
	}
}

func TestSearchTitlesRoutesEpisodicQueriesToTV(t *testing.T) {
	fake := &fakeTMDB{
		tv: &tmdb.Response{Results: []tmdb.Result{
			{ID: 85937, Name: "Demon Slayer", MediaType: "tv", FirstAirDate: "2019-04-06", GenreIDs: []int{16}},
		}},
		multi: &tmdb.Response{Results: []tmdb.Result{
			{ID: 635302, Title: "Demon Slayer the Movie", MediaType: "movie"},
		}},
	}
	client := NewClient(fake, nil, nil, logging.NewNop())
	ctx := context.Background()

	got := client.SearchTitles(ctx, "Demon Slayer", 2019, MediaTV)
	if len(got) != 1 || got[0].ID != "85937" || !got[0].HasGenre(GenreAnimation) {
		t.Fatalf("unexpected tv candidates %#v", got)
	}
	if len(fake.endpoints) != 1 || fake.endpoints[0] != "tv" {
		t.Fatalf("endpoints = %v, want only the tv search", fake.endpoints)
	}

	fake.endpoints, fake.tv = nil, nil
	got = client.SearchTitles(ctx, "Demon Slayer", 2019, MediaTV)
	if len(got) != 1 || got[0].ID != "635302" {
		t.Fatalf("expected multi search fallback, got %#v", got)
	}
	if len(fake.endpoints) != 2 || fake.endpoints[0] != "tv" || fake.endpoints[1] != "multi" {
		t.Fatalf("endpoints = %v, want tv then multi", fake.endpoints)
	}

	fake.endpoints = nil
	client.SearchTitles(ctx, "Demon Slayer", 0, MediaMovie)
	if len(fake.endpoints) != 1 || fake.endpoints[0] != "multi" {
		t.Fatalf("endpoints = %v, want only the multi search", fake.endpoints)
	}
}

func TestSearchFailsSoft(t *testing.T) {
	fake := &fakeTMDB{err: errors.New("boom")}
	client := NewClient(fake, fakeAnime{err: errors.New("down")}, fakeSuggest{err: errors.New("down")}, logging.NewNop())
	ctx := context.Background()

	if got := client.SearchTitles(ctx, "x", 0, MediaTV); got != nil {
		t.Fatalf("expected nil on failure, got %#v", got)
	}
	if got := client.ExternalIMDbID(ctx, MediaTV, "1"); got != "" {
		t.Fatalf("expected empty id on failure, got %q", got)
	}
	if got := client.AnimeMetadata(ctx, "1"); got != nil {
		t.Fatalf("expected nil metadata on failure, got %#v", got)
	}
	if got := client.LegacySuggest(ctx, "x"); got != nil {
		t.Fatalf("expected nil suggestions on failure, got %#v", got)
	}
	if _, ok := client.EpisodeCount(ctx, RawCandidate{ID: "5", Source: SourceTMDB, MediaType: MediaTV}); ok {
		t.Fatal("expected missing episode count")
	}
}

func TestTMDBUnavailable(t *testing.T) {
	client := NewClient(nil, nil, fakeSuggest{results: []imdbsuggest.Suggestion{{ID: "tt0388629", Label: "One Piece", Kind: "TV series", Year: 1999}}}, logging.NewNop())
	if client.TMDBAvailable() {
		t.Fatal("expected TMDB unavailable")
	}
	if got := client.SearchTitles(context.Background(), "One Piece", 0, MediaTV); got != nil {
		t.Fatalf("expected no structured results, got %#v", got)
	}
	if got := client.SeriesDisplayTitle(context.Background(), "tt0388629"); got != "One Piece" {
		t.Fatalf("SeriesDisplayTitle fallback = %q", got)
	}
}

func TestAnimeMetadata(t *testing.T) {
	client := NewClient(nil, fakeAnime{anime: &kitsu.Anime{
		CanonicalTitle: "Shingeki no Kyojin",
		Titles:         map[string]string{"en": "Attack on Titan"},
		StartDate:      "2013-04-07",
		Subtype:        "TV",
		EpisodeCount:   25,
	}}, nil, logging.NewNop())

	meta := client.AnimeMetadata(context.Background(), "7442")
	if meta == nil || len(meta.Titles) != 2 || meta.Year != 2013 || meta.EpisodeCount != 25 {
		t.Fatalf("unexpected metadata %#v", meta)
	}
	if meta.MediaType() != MediaTV {
		t.Fatalf("media type = %q", meta.MediaType())
	}
}

func TestExternalIDAndEpisodeCount(t *testing.T) {
	fake := &fakeTMDB{
		external: map[int64]string{1429: "tt2560140", 2: ""},
		details:  map[int64]*tmdb.Result{1429: {ID: 1429, NumberOfEpisodes: 94}},
	}
	client := NewClient(fake, nil, nil, logging.NewNop())
	ctx := context.Background()

	if got := client.ExternalIMDbID(ctx, MediaTV, "1429"); got != "tt2560140" {
		t.Fatalf("ExternalIMDbID = %q", got)
	}
	if got := client.ExternalIMDbID(ctx, MediaTV, "2"); got != "" {
		t.Fatalf("missing imdb id should be empty, got %q", got)
	}
	count, ok := client.EpisodeCount(ctx, RawCandidate{ID: "1429", Source: SourceTMDB, MediaType: MediaTV})
	if !ok || count != 94 {
		t.Fatalf("EpisodeCount = %d, %v", count, ok)
	}
	before := fake.calls
	if _, ok := client.EpisodeCount(ctx, RawCandidate{ID: "1429", Source: SourceTMDB, MediaType: MediaMovie}); ok {
		t.Fatal("movies have no episode count")
	}
	if fake.calls != before {
		t.Fatal("movie candidates must not trigger a lookup")
	}
}

func TestSeriesDisplayTitlePrefersTMDB(t *testing.T) {
	fake := &fakeTMDB{find: &tmdb.FindResponse{TVResults: []tmdb.Result{{ID: 37854, Name: "One Piece"}}}}
	client := NewClient(fake, nil, nil, logging.NewNop())
	if got := client.SeriesDisplayTitle(context.Background(), "tt0388629"); got != "One Piece" {
		t.Fatalf("SeriesDisplayTitle = %q", got)
	}
}

func TestSearchIsCachedWithinTTL(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"results":[{"id":1,"name":"Naruto","media_type":"tv"}]}`))
	}))
	t.Cleanup(server.Close)

	getter := fetch.New(fetch.Options{HTTPClient: server.Client(), Logger: logging.NewNop()})
	tmdbClient, err := tmdb.New("key", server.URL, "en-US", tmdb.WithGetter(getter))
	if err != nil {
		t.Fatalf("tmdb.New: %v", err)
	}
	client := NewClient(tmdbClient, nil, nil, logging.NewNop())

	first := client.SearchTitles(context.Background(), "Naruto", 2002, MediaMovie)
	second := client.SearchTitles(context.Background(), "Naruto", 2002, MediaMovie)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("unexpected results %#v %#v", first, second)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", hits.Load())
	}
}

func TestLegacySuggestClassifiesKinds(t *testing.T) {
	client := NewClient(nil, nil, fakeSuggest{results: []imdbsuggest.Suggestion{
		{ID: "tt1", Label: "A", Kind: "TV series"},
		{ID: "tt2", Label: "B", Kind: "feature"},
		{ID: "tt3", Label: "C", Kind: "TV episode"},
	}}, logging.NewNop())
	got := client.LegacySuggest(context.Background(), "a")
	want := []MediaType{MediaTV, MediaMovie, MediaOther}
	for i, c := range got {
		if c.MediaType != want[i] || c.Source != SourceIMDbSuggest {
			t.Fatalf("candidate %d = %#v", i, c)
		}
	}
}
