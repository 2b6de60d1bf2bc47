package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
)

// SQLiteAuditRepository implements AuditRepository for SQLite.
type SQLiteAuditRepository struct {
	db *sql.DB
}

// NewSQLiteAuditRepository creates a new SQLite audit repository.
func NewSQLiteAuditRepository(db *sql.DB) *SQLiteAuditRepository {
	return &SQLiteAuditRepository{db: db}
}

func (r *SQLiteAuditRepository) Record(ctx context.Context, e *models.AuditEvent) error {
	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, user_id, company_id, event_type, outcome, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		e.ID, e.UserID, nullStringPtr(e.CompanyID), e.EventType, e.Outcome,
		string(metaJSON), e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

func (r *SQLiteAuditRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, user_id, company_id, event_type, outcome, metadata_json, created_at
		FROM audit_events WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		var companyID sql.NullString
		var metaJSON string
		var createdAt string

		if err := rows.Scan(&e.ID, &e.UserID, &companyID, &e.EventType, &e.Outcome, &metaJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if companyID.Valid {
			e.CompanyID = &companyID.String
		}
		if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
