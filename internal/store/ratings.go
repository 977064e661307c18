package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"imdbratings/internal/ratings"
)

// RatingRow is one line of the IMDb ratings dataset.
type RatingRow struct {
	IMDbID string
	Rating float64
	Votes  int64
}

// EpisodeRow is one line of the IMDb episode dataset.
type EpisodeRow struct {
	EpisodeID string
	SeriesID  string
	Season    int
	Episode   int
}

// GetRating returns the rating for a title or episode id.
func (s *Store) GetRating(ctx context.Context, imdbID string) (ratings.Record, error) {
	id, err := ParseIMDbID(imdbID)
	if err != nil {
		return ratings.Record{}, err
	}
	rec := ratings.Record{IMDbID: FormatIMDbID(id)}
	err = s.db.QueryRowContext(ctx, "SELECT rating, votes FROM ratings WHERE imdb_id = ?", id).
		Scan(&rec.Rating, &rec.Votes)
	if errors.Is(err, sql.ErrNoRows) {
		return ratings.Record{}, ratings.ErrNotFound
	}
	if err != nil {
		return ratings.Record{}, fmt.Errorf("query rating: %w", err)
	}
	return rec, nil
}

// GetEpisodeRating returns the rating of a series episode. Episodes without
// a rating are not stored, so a missing rating and a missing episode look
// the same.
func (s *Store) GetEpisodeRating(ctx context.Context, seriesID string, season, episode int) (ratings.Record, error) {
	series, err := ParseIMDbID(seriesID)
	if err != nil {
		return ratings.Record{}, err
	}
	var (
		episodeID int64
		rec       ratings.Record
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT e.episode_id, r.rating, r.votes
		FROM episodes e
		JOIN ratings r ON r.imdb_id = e.episode_id
		WHERE e.series_id = ? AND e.season = ? AND e.episode = ?`,
		series, season, episode,
	).Scan(&episodeID, &rec.Rating, &rec.Votes)
	if errors.Is(err, sql.ErrNoRows) {
		return ratings.Record{}, ratings.ErrNotFound
	}
	if err != nil {
		return ratings.Record{}, fmt.Errorf("query episode rating: %w", err)
	}
	rec.IMDbID = FormatIMDbID(series)
	rec.EpisodeID = FormatIMDbID(episodeID)
	return rec, nil
}

// GetEpisodeRatingByID returns the rating for an episode id. Only ids listed
// in the episode table qualify; the record's IMDbID is the owning series.
func (s *Store) GetEpisodeRatingByID(ctx context.Context, episodeID string) (ratings.Record, error) {
	id, err := ParseIMDbID(episodeID)
	if err != nil {
		return ratings.Record{}, err
	}
	var (
		series int64
		rec    ratings.Record
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT e.series_id, r.rating, r.votes
		FROM episodes e
		JOIN ratings r ON r.imdb_id = e.episode_id
		WHERE e.episode_id = ?
		LIMIT 1`,
		id,
	).Scan(&series, &rec.Rating, &rec.Votes)
	if errors.Is(err, sql.ErrNoRows) {
		return ratings.Record{}, ratings.ErrNotFound
	}
	if err != nil {
		return ratings.Record{}, fmt.Errorf("query episode rating by id: %w", err)
	}
	rec.IMDbID = FormatIMDbID(series)
	rec.EpisodeID = FormatIMDbID(id)
	return rec, nil
}

// HasRatings reports whether any rating has been ingested.
func (s *Store) HasRatings(ctx context.Context) (bool, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM ratings)").Scan(&exists); err != nil {
		return false, fmt.Errorf("check ratings: %w", err)
	}
	return exists == 1, nil
}

// ReplaceRatings swaps the ratings table for rows. Rows are staged in
// transactions of batchSize and published in one final transaction, so a
// failed load leaves the previous data in place. Rows with malformed ids
// are skipped.
func (s *Store) ReplaceRatings(ctx context.Context, rows iter.Seq2[RatingRow, error], batchSize int) (int64, error) {
	insert := "INSERT OR REPLACE INTO ratings_staging (imdb_id, rating, votes) VALUES (?, ?, ?)"
	loaded, err := s.stage(ctx, "ratings_staging", insert, batchSize, func(yield func([]any) bool) error {
		for row, err := range rows {
			if err != nil {
				return err
			}
			id, parseErr := ParseIMDbID(row.IMDbID)
			if parseErr != nil {
				continue
			}
			if !yield([]any{id, row.Rating, row.Votes}) {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return loaded, s.publish(ctx,
		"DELETE FROM ratings",
		"INSERT INTO ratings (imdb_id, rating, votes) SELECT imdb_id, rating, votes FROM ratings_staging",
		"DELETE FROM ratings_staging",
	)
}

// ReplaceEpisodes swaps the episodes table for rows, keeping only episodes
// that have a rating. Load ratings first.
func (s *Store) ReplaceEpisodes(ctx context.Context, rows iter.Seq2[EpisodeRow, error], batchSize int) (int64, error) {
	insert := "INSERT OR REPLACE INTO episodes_staging (series_id, season, episode, episode_id) VALUES (?, ?, ?, ?)"
	if _, err := s.stage(ctx, "episodes_staging", insert, batchSize, func(yield func([]any) bool) error {
		for row, err := range rows {
			if err != nil {
				return err
			}
			if row.Season < 0 || row.Episode < 0 {
				continue
			}
			series, seriesErr := ParseIMDbID(row.SeriesID)
			episode, episodeErr := ParseIMDbID(row.EpisodeID)
			if seriesErr != nil || episodeErr != nil {
				continue
			}
			if !yield([]any{series, row.Season, row.Episode, episode}) {
				return nil
			}
		}
		return nil
	}); err != nil {
		return 0, err
	}
	if err := s.publish(ctx,
		"DELETE FROM episodes",
		`INSERT INTO episodes (series_id, season, episode, episode_id)
		 SELECT s.series_id, s.season, s.episode, s.episode_id
		 FROM episodes_staging s
		 WHERE EXISTS (SELECT 1 FROM ratings r WHERE r.imdb_id = s.episode_id)`,
		"DELETE FROM episodes_staging",
	); err != nil {
		return 0, err
	}
	var kept int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM episodes").Scan(&kept); err != nil {
		return 0, fmt.Errorf("count episodes: %w", err)
	}
	return kept, nil
}

// stage clears table and inserts the rows produced by produce, committing
// every batchSize rows.
func (s *Store) stage(ctx context.Context, table, insert string, batchSize int, produce func(yield func([]any) bool) error) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if _, err := s.execWithRetry(ctx, "DELETE FROM "+table); err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}

	var (
		total int64
		batch [][]any
		err   error
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		rows := batch
		batch = batch[:0:0]
		return retryOnBusy(ctx, func() error {
			return s.insertBatch(ctx, insert, rows)
		})
	}
	produceErr := produce(func(args []any) bool {
		batch = append(batch, args)
		total++
		if len(batch) >= batchSize {
			if err = flush(); err != nil {
				return false
			}
		}
		return ctx.Err() == nil
	})
	if err != nil {
		return 0, fmt.Errorf("stage %s: %w", table, err)
	}
	if produceErr != nil {
		return 0, fmt.Errorf("read rows for %s: %w", table, produceErr)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}
	if err := flush(); err != nil {
		return 0, fmt.Errorf("stage %s: %w", table, err)
	}
	return total, nil
}

func (s *Store) insertBatch(ctx context.Context, insert string, rows [][]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) publish(ctx context.Context, statements ...string) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		for _, statement := range statements {
			if _, err := tx.ExecContext(ctx, statement); err != nil {
				return fmt.Errorf("publish: %w", err)
			}
		}
		return tx.Commit()
	})
}

// Stats counts rows in each table.
func (s *Store) Stats(ctx context.Context) (ratings.Stats, error) {
	now := s.clock.Now().UnixMilli()
	var stats ratings.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(1) FROM ratings),
			(SELECT COUNT(1) FROM episodes),
			(SELECT COUNT(1) FROM title_mappings),
			(SELECT COUNT(1) FROM api_cache),
			(SELECT COUNT(1) FROM api_cache WHERE expires_at > ?)`, now,
	).Scan(&stats.Ratings, &stats.Episodes, &stats.Mappings, &stats.CacheEntries, &stats.ActiveCacheEntries)
	if err != nil {
		return ratings.Stats{}, fmt.Errorf("store stats: %w", err)
	}
	return stats, nil
}
