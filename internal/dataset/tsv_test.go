package dataset

import (
	"strings"
	"testing"
)

func TestReadRatings(t *testing.T) {
	input := "tconst\taverageRating\tnumVotes\n" +
		"tt0000001\t5.7\t2071\n" +
		"tt0000002\tnot-a-number\t10\n" +
		"tt0111161\t9.3\t2900000\n"
	var ids []string
	for row, err := range ReadRatings(strings.NewReader(input)) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids = append(ids, row.IMDbID)
		if row.IMDbID == "tt0111161" && (row.Rating != 9.3 || row.Votes != 2900000) {
			t.Fatalf("unexpected row: %+v", row)
		}
	}
	if strings.Join(ids, ",") != "tt0000001,tt0111161" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestReadEpisodesSkipsNulls(t *testing.T) {
	input := "tconst\tparentTconst\tseasonNumber\tepisodeNumber\n" +
		"tt0000101\ttt0388629\t1\t1\n" +
		"tt0000102\ttt0388629\t\\N\t\\N\n" +
		"tt0000103\ttt0388629\t1\t3\n"
	var got []string
	for row, err := range ReadEpisodes(strings.NewReader(input)) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, row.EpisodeID)
	}
	if strings.Join(got, ",") != "tt0000101,tt0000103" {
		t.Fatalf("episodes = %v", got)
	}
}

func TestReadRatingsRejectsUnknownHeader(t *testing.T) {
	for _, err := range ReadRatings(strings.NewReader("id\trating\n")) {
		if err == nil || !strings.Contains(err.Error(), "tconst") {
			t.Fatalf("error = %v, want missing column", err)
		}
		return
	}
	t.Fatal("expected one error")
}

func TestReadRatingsStopsEarly(t *testing.T) {
	input := "tconst\taverageRating\tnumVotes\ntt1\t1.0\t1\ntt2\t2.0\t2\n"
	count := 0
	for range ReadRatings(strings.NewReader(input)) {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("count = %d", count)
	}
}
