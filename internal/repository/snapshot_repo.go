package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
)

// SQLiteSnapshotRepository implements SnapshotRepository for SQLite.
type SQLiteSnapshotRepository struct {
	db *sql.DB
}

// NewSQLiteSnapshotRepository creates a new SQLite snapshot repository.
func NewSQLiteSnapshotRepository(db *sql.DB) *SQLiteSnapshotRepository {
	return &SQLiteSnapshotRepository{db: db}
}

func (r *SQLiteSnapshotRepository) Create(ctx context.Context, s *models.Snapshot) error {
	payloadJSON, err := json.Marshal(s.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal pricing payload: %w", err)
	}

	query := `
		INSERT INTO snapshots (id, user_id, company_id, captured_at, capture_method, confidence,
			content_hash, payload_json, is_verified, raw_capture_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.CompanyID, s.CapturedAt.UTC().Format(time.RFC3339), s.CaptureMethod,
		s.Confidence, s.ContentHash, string(payloadJSON), s.IsVerified, nullStringPtr(s.RawCaptureKey),
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

const snapshotColumns = `id, user_id, company_id, captured_at, capture_method, confidence,
	content_hash, payload_json, is_verified, raw_capture_key`

func (r *SQLiteSnapshotRepository) GetLatestByCompanyID(ctx context.Context, companyID string) (*models.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE company_id = ? ORDER BY captured_at DESC LIMIT 1`
	return scanSnapshot(r.db.QueryRowContext(ctx, query, companyID))
}

func (r *SQLiteSnapshotRepository) GetByID(ctx context.Context, id string) (*models.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE id = ?`
	return scanSnapshot(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteSnapshotRepository) GetByCompanyID(ctx context.Context, companyID string, limit, offset int) ([]*models.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE company_id = ? ORDER BY captured_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		s, err := scanSnapshotRow(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func scanSnapshot(row rowScanner) (*models.Snapshot, error) {
	s, err := scanSnapshotRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func scanSnapshotRow(row rowScanner) (*models.Snapshot, error) {
	var s models.Snapshot
	var capturedAt string
	var payloadJSON string
	var rawCaptureKey sql.NullString

	err := row.Scan(
		&s.ID, &s.UserID, &s.CompanyID, &capturedAt, &s.CaptureMethod, &s.Confidence,
		&s.ContentHash, &payloadJSON, &s.IsVerified, &rawCaptureKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	if s.CapturedAt, err = time.Parse(time.RFC3339, capturedAt); err != nil {
		return nil, fmt.Errorf("failed to parse captured_at: %w", err)
	}
	if err := json.Unmarshal([]byte(payloadJSON), &s.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pricing payload: %w", err)
	}
	if rawCaptureKey.Valid {
		s.RawCaptureKey = &rawCaptureKey.String
	}

	return &s, nil
}
