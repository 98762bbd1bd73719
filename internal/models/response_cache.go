// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/catalogarr/catalogarr/internal/dbinterface"
)

// ResponseCacheEntry captures a cached upstream JSON response.
type ResponseCacheEntry struct {
	ID           int64
	CacheKey     string
	ResponseData []byte
	CachedAt     time.Time
	LastUsedAt   time.Time
	ExpiresAt    time.Time
	HitCount     int64
}

// ResponseCacheStats provides aggregated cache metrics.
type ResponseCacheStats struct {
	Entries         int64      `json:"entries"`
	TotalHits       int64      `json:"totalHits"`
	ApproxSizeBytes int64      `json:"approxSizeBytes"`
	OldestCachedAt  *time.Time `json:"oldestCachedAt,omitempty"`
	NewestCachedAt  *time.Time `json:"newestCachedAt,omitempty"`
}

// ResponseCacheStore persists upstream response cache entries.
type ResponseCacheStore struct {
	db dbinterface.Querier
}

// NewResponseCacheStore constructs a new response cache store.
func NewResponseCacheStore(db dbinterface.Querier) *ResponseCacheStore {
	return &ResponseCacheStore{db: db}
}

// Fetch returns a cached response by cache key. Expired rows are deleted on read.
func (s *ResponseCacheStore) Fetch(ctx context.Context, cacheKey string) ([]byte, bool, error) {
	if strings.TrimSpace(cacheKey) == "" {
		return nil, false, fmt.Errorf("cache key cannot be empty")
	}

	const fetchQuery = `
		SELECT id, response_data, expires_at
		FROM response_cache
		WHERE cache_key = ?
	`

	var (
		id        int64
		response  []byte
		expiresAt time.Time
	)

	err := s.db.QueryRowContext(ctx, fetchQuery, cacheKey).Scan(&id, &response, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetch response cache: %w", err)
	}

	if time.Now().UTC().After(expiresAt) {
		s.deleteEntry(ctx, id)
		return nil, false, nil
	}

	s.touchEntry(ctx, id)

	return response, true, nil
}

// Store inserts or updates a cached response with the provided TTL.
func (s *ResponseCacheStore) Store(ctx context.Context, cacheKey string, data []byte, ttl time.Duration) error {
	if strings.TrimSpace(cacheKey) == "" {
		return fmt.Errorf("cache key cannot be empty")
	}
	if len(data) == 0 {
		return fmt.Errorf("response data cannot be empty")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	now := time.Now().UTC()
	const query = `
		INSERT INTO response_cache (cache_key, response_data, cached_at, last_used_at, expires_at, hit_count)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(cache_key) DO UPDATE SET
			response_data = excluded.response_data,
			cached_at = excluded.cached_at,
			last_used_at = excluded.last_used_at,
			expires_at = excluded.expires_at
	`

	if _, err := s.db.ExecContext(ctx, query, cacheKey, data, now, now, now.Add(ttl)); err != nil {
		return fmt.Errorf("store response cache entry: %w", err)
	}

	return nil
}

// CleanupExpired removes all expired cache rows.
func (s *ResponseCacheStore) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM response_cache WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("cleanup response cache: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup response cache rows affected: %w", err)
	}
	return deleted, nil
}

// Flush removes every cache entry.
func (s *ResponseCacheStore) Flush(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM response_cache`)
	if err != nil {
		return 0, fmt.Errorf("flush response cache: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("flush response cache rows affected: %w", err)
	}
	return deleted, nil
}

// Stats returns summary metrics for the response cache table.
func (s *ResponseCacheStore) Stats(ctx context.Context) (*ResponseCacheStats, error) {
	const query = `
		SELECT
			COUNT(*) AS entries,
			COALESCE(SUM(hit_count), 0) AS total_hits,
			COALESCE(SUM(LENGTH(response_data)), 0) AS approx_size,
			MIN(cached_at) AS oldest_cached,
			MAX(cached_at) AS newest_cached
		FROM response_cache
	`

	var (
		entries      int64
		totalHits    int64
		sizeBytes    int64
		oldestCached sql.NullTime
		newestCached sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, query).Scan(&entries, &totalHits, &sizeBytes, &oldestCached, &newestCached)
	if err != nil {
		return nil, fmt.Errorf("response cache stats: %w", err)
	}

	stats := &ResponseCacheStats{
		Entries:         entries,
		TotalHits:       totalHits,
		ApproxSizeBytes: sizeBytes,
	}
	if oldestCached.Valid {
		t := oldestCached.Time.UTC()
		stats.OldestCachedAt = &t
	}
	if newestCached.Valid {
		t := newestCached.Time.UTC()
		stats.NewestCachedAt = &t
	}
	return stats, nil
}

func (s *ResponseCacheStore) touchEntry(ctx context.Context, id int64) {
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE response_cache SET last_used_at = ?, hit_count = hit_count + 1 WHERE id = ?`,
		now,
		id,
	); err != nil {
		log.Error().Err(err).Int64("id", id).Msg("response cache touch failed")
	}
}

func (s *ResponseCacheStore) deleteEntry(ctx context.Context, id int64) {
	if ctx == nil {
		ctx = context.Background()
	}
	_, _ = s.db.ExecContext(ctx, `DELETE FROM response_cache WHERE id = ?`, id)
}
