package store_test

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"imdbratings/internal/ratings"
	"imdbratings/internal/services"
	"imdbratings/internal/store"
	"imdbratings/internal/testsupport"
)

func seq[T any](rows ...T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, row := range rows {
			if !yield(row, nil) {
				return
			}
		}
	}
}

func loadFixture(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	n, err := st.ReplaceRatings(ctx, seq(
		store.RatingRow{IMDbID: "tt0111161", Rating: 9.3, Votes: 2900000},
		store.RatingRow{IMDbID: "tt0388629", Rating: 8.9, Votes: 250000},
		store.RatingRow{IMDbID: "tt0000101", Rating: 8.1, Votes: 900},
		store.RatingRow{IMDbID: "bogus", Rating: 1, Votes: 1},
	), 2)
	if err != nil {
		t.Fatalf("ReplaceRatings failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("ReplaceRatings loaded %d rows, want 3", n)
	}
	kept, err := st.ReplaceEpisodes(ctx, seq(
		store.EpisodeRow{EpisodeID: "tt0000101", SeriesID: "tt0388629", Season: 1, Episode: 1},
		store.EpisodeRow{EpisodeID: "tt0000102", SeriesID: "tt0388629", Season: 1, Episode: 2},
	), 1)
	if err != nil {
		t.Fatalf("ReplaceEpisodes failed: %v", err)
	}
	if kept != 1 {
		t.Fatalf("ReplaceEpisodes kept %d rows, want only the rated episode", kept)
	}
}

func TestRatingLookups(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	loadFixture(t, st)
	ctx := context.Background()

	rec, err := st.GetRating(ctx, "tt0111161")
	if err != nil {
		t.Fatalf("GetRating failed: %v", err)
	}
	if rec.IMDbID != "tt0111161" || rec.Rating != 9.3 || rec.Votes != 2900000 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	ep, err := st.GetEpisodeRating(ctx, "tt0388629", 1, 1)
	if err != nil {
		t.Fatalf("GetEpisodeRating failed: %v", err)
	}
	if ep.EpisodeID != "tt0000101" || ep.IMDbID != "tt0388629" || ep.Rating != 8.1 {
		t.Fatalf("unexpected episode record: %+v", ep)
	}

	if _, err := st.GetEpisodeRating(ctx, "tt0388629", 1, 2); !errors.Is(err, ratings.ErrNotFound) {
		t.Fatalf("unrated episode error = %v, want ErrNotFound", err)
	}

	byID, err := st.GetEpisodeRatingByID(ctx, "tt0000101")
	if err != nil || byID.EpisodeID != "tt0000101" || byID.IMDbID != "tt0388629" || byID.Rating != 8.1 {
		t.Fatalf("GetEpisodeRatingByID = %+v, %v", byID, err)
	}
	if _, err := st.GetEpisodeRatingByID(ctx, "tt0111161"); !errors.Is(err, ratings.ErrNotFound) {
		t.Fatalf("rated non-episode error = %v, want ErrNotFound", err)
	}

	if _, err := st.GetRating(ctx, "tt9999999"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing rating error = %v, want not found", err)
	}
	if _, err := st.GetRating(ctx, "nm0000001"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad id error = %v, want validation", err)
	}
}

func TestSpecialsLiveInSeasonZero(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if _, err := st.ReplaceRatings(ctx, seq(
		store.RatingRow{IMDbID: "tt0903747", Rating: 9.5, Votes: 2000000},
		store.RatingRow{IMDbID: "tt1232244", Rating: 7.7, Votes: 3000},
	), 10); err != nil {
		t.Fatalf("ReplaceRatings failed: %v", err)
	}
	if _, err := st.ReplaceEpisodes(ctx, seq(
		store.EpisodeRow{EpisodeID: "tt1232244", SeriesID: "tt0903747", Season: 0, Episode: 1},
	), 10); err != nil {
		t.Fatalf("ReplaceEpisodes failed: %v", err)
	}
	rec, err := st.GetEpisodeRating(ctx, "tt0903747", 0, 1)
	if err != nil || rec.EpisodeID != "tt1232244" || rec.Rating != 7.7 {
		t.Fatalf("GetEpisodeRating(0, 1) = %+v, %v", rec, err)
	}
}

func TestReplaceRatingsReplacesPreviousLoad(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	loadFixture(t, st)
	ctx := context.Background()

	if _, err := st.ReplaceRatings(ctx, seq(store.RatingRow{IMDbID: "tt0000001", Rating: 5.7, Votes: 2000}), 10); err != nil {
		t.Fatalf("ReplaceRatings failed: %v", err)
	}
	if _, err := st.GetRating(ctx, "tt0111161"); !errors.Is(err, ratings.ErrNotFound) {
		t.Fatalf("old rating survived replacement: %v", err)
	}
	has, err := st.HasRatings(ctx)
	if err != nil || !has {
		t.Fatalf("HasRatings = %v, %v", has, err)
	}
}

func TestReplaceRatingsKeepsDataOnReadError(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	loadFixture(t, st)
	ctx := context.Background()

	broken := func(yield func(store.RatingRow, error) bool) {
		if !yield(store.RatingRow{IMDbID: "tt0000001", Rating: 5.7}, nil) {
			return
		}
		yield(store.RatingRow{}, errors.New("truncated gzip"))
	}
	if _, err := st.ReplaceRatings(ctx, broken, 1); err == nil {
		t.Fatal("expected read error to fail the load")
	}
	if _, err := st.GetRating(ctx, "tt0111161"); err != nil {
		t.Fatalf("previous data lost after failed load: %v", err)
	}
}

func TestMappings(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t), store.WithClock(clock))
	ctx := context.Background()

	if _, err := st.GetMapping(ctx, "kitsu:1"); !errors.Is(err, ratings.ErrNotFound) {
		t.Fatalf("GetMapping on empty store = %v", err)
	}

	err := st.PutMapping(ctx, ratings.Mapping{ForeignID: "Kitsu:1", IMDbID: "tt0213338", Source: ratings.SourceDiscoveryTMDB, Confidence: 92})
	if err != nil {
		t.Fatalf("PutMapping failed: %v", err)
	}
	clock.Advance(time.Hour)
	err = st.PutMapping(ctx, ratings.Mapping{ForeignID: "kitsu:1", IMDbID: "tt0213338", Source: ratings.SourceDiscoveryIMDb, Confidence: 70})
	if err != nil {
		t.Fatalf("PutMapping update failed: %v", err)
	}

	got, err := st.GetMapping(ctx, "kitsu:1")
	if err != nil {
		t.Fatalf("GetMapping failed: %v", err)
	}
	if got.Source != ratings.SourceDiscoveryIMDb || got.Confidence != 70 {
		t.Fatalf("update not applied: %+v", got)
	}
	if !got.CreatedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("created_at changed on update: %v", got.CreatedAt)
	}
	if !got.LastVerified.Equal(time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("last_verified = %v", got.LastVerified)
	}

	if err := st.PutMapping(ctx, ratings.Mapping{ForeignID: "kitsu:2", IMDbID: "2"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("invalid mapping error = %v", err)
	}

	list, err := st.ListMappings(ctx)
	if err != nil || len(list) != 1 || list[0].ForeignID != "kitsu:1" {
		t.Fatalf("ListMappings = %+v, %v", list, err)
	}
}

func TestAPICacheExpiry(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t), store.WithClock(clock))
	ctx := context.Background()

	if err := st.CachePut(ctx, "kitsu/anime/1", []byte(`{"data":{}}`), time.Hour); err != nil {
		t.Fatalf("CachePut failed: %v", err)
	}
	data, ok, err := st.CacheGet(ctx, "kitsu/anime/1")
	if err != nil || !ok || string(data) != `{"data":{}}` {
		t.Fatalf("CacheGet = %q, %v, %v", data, ok, err)
	}

	clock.Advance(time.Hour)
	if _, ok, _ := st.CacheGet(ctx, "kitsu/anime/1"); ok {
		t.Fatal("expected entry to expire after ttl")
	}
	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.CacheEntries != 1 || stats.ActiveCacheEntries != 0 {
		t.Fatalf("unexpected cache stats: %+v", stats)
	}

	removed, err := st.CacheCleanup(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("CacheCleanup = %d, %v", removed, err)
	}
}

func TestOpenPathRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.db")
	st, err := store.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := store.OpenPath(path); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("OpenPath error = %v, want ErrSchemaMismatch", err)
	}
}

func TestIMDbIDRoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tt0111161", "tt0111161"},
		{"tt111161", "tt0111161"},
		{"tt12345678", "tt12345678"},
	}
	for _, tt := range tests {
		n, err := store.ParseIMDbID(tt.in)
		if err != nil {
			t.Fatalf("ParseIMDbID(%q) error: %v", tt.in, err)
		}
		if got := store.FormatIMDbID(n); got != tt.want {
			t.Fatalf("FormatIMDbID(ParseIMDbID(%q)) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
