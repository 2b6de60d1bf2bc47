package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteRateLimitRepository implements RateLimitRepository for SQLite.
// httprate (internal/http/mw) handles the live per-request limiting
// in-process; this table is a fixed-window per-key counter store that
// survives a process restart. No handler or job calls it.
type SQLiteRateLimitRepository struct {
	db *sql.DB
}

// NewSQLiteRateLimitRepository creates a new SQLite rate limit repository.
func NewSQLiteRateLimitRepository(db *sql.DB) *SQLiteRateLimitRepository {
	return &SQLiteRateLimitRepository{db: db}
}

// Increment bumps key's counter within its current fixed window, creating a
// fresh window (count=1) if the prior one expired or the key is new.
func (r *SQLiteRateLimitRepository) Increment(ctx context.Context, key string, windowDuration time.Duration) (int, time.Time, error) {
	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339)
	expiresAt := now.Add(windowDuration)

	query := `
		INSERT INTO rate_limit_counters (key, count, window_started_at, expires_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			count = CASE WHEN rate_limit_counters.expires_at > ? THEN rate_limit_counters.count + 1 ELSE 1 END,
			window_started_at = CASE WHEN rate_limit_counters.expires_at > ? THEN rate_limit_counters.window_started_at ELSE ? END,
			expires_at = CASE WHEN rate_limit_counters.expires_at > ? THEN rate_limit_counters.expires_at ELSE ? END
		RETURNING count, expires_at
	`
	expiresAtStr := expiresAt.Format(time.RFC3339)
	var count int
	var returnedExpiresAt string
	err := r.db.QueryRowContext(ctx, query,
		key, nowStr, expiresAtStr,
		nowStr, nowStr, nowStr, nowStr, expiresAtStr,
	).Scan(&count, &returnedExpiresAt)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to increment rate limit counter %s: %w", key, err)
	}

	parsed, err := time.Parse(time.RFC3339, returnedExpiresAt)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	return count, parsed, nil
}
