package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
)

// SQLiteLockRepository implements LockRepository for SQLite.
type SQLiteLockRepository struct {
	db *sql.DB
}

// NewSQLiteLockRepository creates a new SQLite invocation lock repository.
func NewSQLiteLockRepository(db *sql.DB) *SQLiteLockRepository {
	return &SQLiteLockRepository{db: db}
}

// Acquire upserts the named lock row, but only moves ownership to ownerID
// when the row is absent or its prior lock has expired. The RETURNING row
// reflects the winner, so a caller that lost the race can tell by comparing
// OwnerID against what it asked for.
func (r *SQLiteLockRepository) Acquire(ctx context.Context, key, ownerID string, until time.Time) (*models.InvocationLock, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO invocation_locks (key, owner_id, lock_until, locked_at, last_released_at)
		VALUES (?, ?, ?, ?, NULL)
		ON CONFLICT(key) DO UPDATE SET
			owner_id = excluded.owner_id,
			lock_until = excluded.lock_until,
			locked_at = excluded.locked_at
		WHERE invocation_locks.lock_until <= ?
		RETURNING key, owner_id, lock_until, locked_at, last_released_at
	`
	lock, err := scanLock(r.db.QueryRowContext(ctx, query, key, ownerID, until.UTC().Format(time.RFC3339), now, now))
	if err == sql.ErrNoRows || lock == nil {
		// Conflict existed and the WHERE clause excluded it: someone else
		// holds a live lock.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if lock.OwnerID != ownerID {
		return nil, nil
	}
	return lock, nil
}

// Release clears a held lock, but only if ownerID is still the current
// holder, so a caller whose lease already expired and was reclaimed by
// another owner cannot clobber that owner's lock.
func (r *SQLiteLockRepository) Release(ctx context.Context, key, ownerID string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		`UPDATE invocation_locks SET lock_until = ?, last_released_at = ? WHERE key = ? AND owner_id = ?`,
		now, now, key, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check release result: %w", err)
	}
	return affected > 0, nil
}

// GetByKey reads the current state of a named lock.
func (r *SQLiteLockRepository) GetByKey(ctx context.Context, key string) (*models.InvocationLock, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT key, owner_id, lock_until, locked_at, last_released_at FROM invocation_locks WHERE key = ?`,
		key,
	)
	lock, err := scanLock(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load lock %s: %w", key, err)
	}
	return lock, nil
}

func scanLock(row rowScanner) (*models.InvocationLock, error) {
	var l models.InvocationLock
	var lockUntil, lockedAt string
	var lastReleasedAt sql.NullString

	err := row.Scan(&l.Key, &l.OwnerID, &lockUntil, &lockedAt, &lastReleasedAt)
	if err != nil {
		return nil, err
	}

	if l.LockUntil, err = time.Parse(time.RFC3339, lockUntil); err != nil {
		return nil, fmt.Errorf("failed to parse lock_until: %w", err)
	}
	if l.LockedAt, err = time.Parse(time.RFC3339, lockedAt); err != nil {
		return nil, fmt.Errorf("failed to parse locked_at: %w", err)
	}
	if l.LastReleasedAt, err = parseNullTime(lastReleasedAt); err != nil {
		return nil, err
	}

	return &l, nil
}
