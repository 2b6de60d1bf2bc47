package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
)

// SQLiteWebhookEventRepository implements WebhookEventRepository for SQLite.
type SQLiteWebhookEventRepository struct {
	db *sql.DB
}

// NewSQLiteWebhookEventRepository creates a new SQLite webhook event repository.
func NewSQLiteWebhookEventRepository(db *sql.DB) *SQLiteWebhookEventRepository {
	return &SQLiteWebhookEventRepository{db: db}
}

// TryClaim inserts a fresh ledger row for eventID, or reclaims one whose
// processing lock already expired (a worker crashed mid-handler). Either
// way the row it leaves behind is "processing" with a new lock_expires_at;
// the caller must call MarkProcessed or MarkFailed when done.
func (r *SQLiteWebhookEventRepository) TryClaim(ctx context.Context, eventID, eventType string, lockUntil time.Time) (bool, error) {
	query := `
		INSERT INTO processed_webhook_events (event_id, event_type, status, attempts, lock_expires_at, processed_at, last_error)
		VALUES (?, ?, 'processing', 1, ?, NULL, NULL)
		ON CONFLICT(event_id) DO UPDATE SET
			status = 'processing',
			attempts = processed_webhook_events.attempts + 1,
			lock_expires_at = excluded.lock_expires_at
		WHERE processed_webhook_events.status != 'processed'
			AND processed_webhook_events.lock_expires_at <= ?
	`
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, query, eventID, eventType, lockUntil.UTC().Format(time.RFC3339), now)
	if err != nil {
		return false, fmt.Errorf("failed to claim webhook event %s: %w", eventID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check claim result: %w", err)
	}
	return affected > 0, nil
}

func (r *SQLiteWebhookEventRepository) MarkProcessed(ctx context.Context, eventID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx,
		`UPDATE processed_webhook_events SET status = 'processed', processed_at = ?, last_error = NULL WHERE event_id = ?`,
		now, eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark webhook event processed: %w", err)
	}
	return nil
}

func (r *SQLiteWebhookEventRepository) MarkFailed(ctx context.Context, eventID, errMsg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE processed_webhook_events SET status = 'failed', last_error = ? WHERE event_id = ?`,
		errMsg, eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark webhook event failed: %w", err)
	}
	return nil
}

func (r *SQLiteWebhookEventRepository) GetByID(ctx context.Context, eventID string) (*models.ProcessedWebhookEvent, error) {
	query := `
		SELECT event_id, event_type, status, attempts, lock_expires_at, processed_at, last_error
		FROM processed_webhook_events WHERE event_id = ?
	`
	var e models.ProcessedWebhookEvent
	var lockExpiresAt string
	var processedAt, lastError sql.NullString

	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&e.EventID, &e.EventType, &e.Status, &e.Attempts, &lockExpiresAt, &processedAt, &lastError,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan webhook event: %w", err)
	}

	if e.LockExpiresAt, err = time.Parse(time.RFC3339, lockExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to parse lock_expires_at: %w", err)
	}
	if e.ProcessedAt, err = parseNullTime(processedAt); err != nil {
		return nil, err
	}
	if lastError.Valid {
		e.LastError = &lastError.String
	}

	return &e, nil
}
