package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"imdbratings/internal/store"
)

// nullValue marks a missing field in the IMDb dumps.
const nullValue = `\N`

func newTSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	return reader
}

func readHeader(r *csv.Reader, required ...string) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(name)] = idx
	}
	for _, name := range required {
		if _, ok := header[name]; !ok {
			return nil, fmt.Errorf("header is missing column %q", name)
		}
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ReadRatings streams title.ratings.tsv rows. Malformed rows are skipped;
// read errors end the sequence.
func ReadRatings(r io.Reader) iter.Seq2[store.RatingRow, error] {
	return func(yield func(store.RatingRow, error) bool) {
		reader := newTSVReader(r)
		header, err := readHeader(reader, "tconst", "averageRating", "numVotes")
		if err != nil {
			yield(store.RatingRow{}, err)
			return
		}
		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(store.RatingRow{}, err)
				return
			}
			rating, err := strconv.ParseFloat(valueAt(header, row, "averageRating"), 64)
			if err != nil {
				continue
			}
			votes, err := strconv.ParseInt(valueAt(header, row, "numVotes"), 10, 64)
			if err != nil {
				votes = 0
			}
			if !yield(store.RatingRow{IMDbID: valueAt(header, row, "tconst"), Rating: rating, Votes: votes}, nil) {
				return
			}
		}
	}
}

// ReadEpisodes streams title.episode.tsv rows. Rows without a season or
// episode number are skipped.
func ReadEpisodes(r io.Reader) iter.Seq2[store.EpisodeRow, error] {
	return func(yield func(store.EpisodeRow, error) bool) {
		reader := newTSVReader(r)
		header, err := readHeader(reader, "tconst", "parentTconst", "seasonNumber", "episodeNumber")
		if err != nil {
			yield(store.EpisodeRow{}, err)
			return
		}
		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(store.EpisodeRow{}, err)
				return
			}
			season, ok := parseNumber(valueAt(header, row, "seasonNumber"))
			if !ok {
				continue
			}
			episode, ok := parseNumber(valueAt(header, row, "episodeNumber"))
			if !ok {
				continue
			}
			next := store.EpisodeRow{
				EpisodeID: valueAt(header, row, "tconst"),
				SeriesID:  valueAt(header, row, "parentTconst"),
				Season:    season,
				Episode:   episode,
			}
			if !yield(next, nil) {
				return
			}
		}
	}
}

func parseNumber(value string) (int, bool) {
	if value == "" || value == nullValue {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
