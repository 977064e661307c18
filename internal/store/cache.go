package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CacheGet returns a cached payload that has not expired.
func (s *Store) CacheGet(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM api_cache WHERE cache_key = ? AND expires_at > ?",
		key, s.clock.Now().UnixMilli(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return data, true, nil
}

// CachePut stores a payload for ttl.
func (s *Store) CachePut(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := s.clock.Now()
	_, err := s.execWithRetry(ctx,
		"INSERT OR REPLACE INTO api_cache (cache_key, data, timestamp, expires_at) VALUES (?, ?, ?, ?)",
		key, data, now.UnixMilli(), now.Add(ttl).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// CacheCleanup deletes expired entries and reports how many were removed.
func (s *Store) CacheCleanup(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM api_cache WHERE expires_at <= ?", s.clock.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cache cleanup: %w", err)
	}
	return res.RowsAffected()
}
