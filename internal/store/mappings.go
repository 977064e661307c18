package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"imdbratings/internal/ratings"
	"imdbratings/internal/services"
)

// GetMapping returns the stored mapping for a foreign id.
func (s *Store) GetMapping(ctx context.Context, foreignID string) (ratings.Mapping, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT foreign_id, imdb_id, source, confidence_score, created_at, last_verified
		FROM title_mappings WHERE foreign_id = ?`, normalizeForeignID(foreignID))
	mapping, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ratings.Mapping{}, ratings.ErrNotFound
	}
	if err != nil {
		return ratings.Mapping{}, fmt.Errorf("query mapping: %w", err)
	}
	return mapping, nil
}

// PutMapping inserts or replaces a mapping. An existing row keeps its
// creation time.
func (s *Store) PutMapping(ctx context.Context, mapping ratings.Mapping) error {
	foreignID := normalizeForeignID(mapping.ForeignID)
	if foreignID == "" || !strings.HasPrefix(mapping.IMDbID, "tt") {
		return fmt.Errorf("%w: mapping needs a foreign id and a tt imdb id", services.ErrValidation)
	}
	if mapping.Source == "" {
		mapping.Source = ratings.SourceManual
	}
	now := s.clock.Now()
	created := mapping.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := s.execWithRetry(ctx, `
		INSERT INTO title_mappings (foreign_id, imdb_id, source, confidence_score, created_at, last_verified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(foreign_id) DO UPDATE SET
			imdb_id = excluded.imdb_id,
			source = excluded.source,
			confidence_score = excluded.confidence_score,
			last_verified = excluded.last_verified`,
		foreignID, mapping.IMDbID, string(mapping.Source), mapping.Confidence,
		created.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put mapping: %w", err)
	}
	return nil
}

// ListMappings returns every stored mapping ordered by foreign id.
func (s *Store) ListMappings(ctx context.Context) ([]ratings.Mapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT foreign_id, imdb_id, source, confidence_score, created_at, last_verified
		FROM title_mappings ORDER BY foreign_id`)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var out []ratings.Mapping
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, mapping)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMapping(row scanner) (ratings.Mapping, error) {
	var (
		mapping  ratings.Mapping
		source   string
		created  int64
		verified int64
	)
	if err := row.Scan(&mapping.ForeignID, &mapping.IMDbID, &source, &mapping.Confidence, &created, &verified); err != nil {
		return ratings.Mapping{}, err
	}
	mapping.Source = ratings.Source(source)
	mapping.CreatedAt = time.UnixMilli(created).UTC()
	mapping.LastVerified = time.UnixMilli(verified).UTC()
	return mapping, nil
}

func normalizeForeignID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
