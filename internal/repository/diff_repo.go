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

// SQLiteDiffRepository implements DiffRepository for SQLite.
type SQLiteDiffRepository struct {
	db *sql.DB
}

// NewSQLiteDiffRepository creates a new SQLite diff repository.
func NewSQLiteDiffRepository(db *sql.DB) *SQLiteDiffRepository {
	return &SQLiteDiffRepository{db: db}
}

func (r *SQLiteDiffRepository) Create(ctx context.Context, d *models.Diff) error {
	diffJSON, err := json.Marshal(d.NormalizedDiff)
	if err != nil {
		return fmt.Errorf("failed to marshal normalized diff: %w", err)
	}

	query := `
		INSERT INTO diffs (id, user_id, company_id, previous_snapshot_id, current_snapshot_id,
			normalized_diff_json, severity, verification_state, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		d.ID, d.UserID, d.CompanyID, nullStringPtr(d.PreviousSnapshotID), d.CurrentSnapshotID,
		string(diffJSON), d.Severity, d.VerificationState, d.DetectedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create diff: %w", err)
	}
	return nil
}

const diffColumns = `id, user_id, company_id, previous_snapshot_id, current_snapshot_id,
	normalized_diff_json, severity, verification_state, detected_at`

func (r *SQLiteDiffRepository) GetByID(ctx context.Context, id string) (*models.Diff, error) {
	query := `SELECT ` + diffColumns + ` FROM diffs WHERE id = ?`
	return scanDiff(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteDiffRepository) GetByCompanyID(ctx context.Context, companyID string, limit, offset int) ([]*models.Diff, error) {
	query := `SELECT ` + diffColumns + ` FROM diffs WHERE company_id = ? ORDER BY detected_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query diffs: %w", err)
	}
	defer rows.Close()
	return collectDiffs(rows)
}

func (r *SQLiteDiffRepository) GetByUserIDSince(ctx context.Context, userID string, since time.Time) ([]*models.Diff, error) {
	query := `SELECT ` + diffColumns + ` FROM diffs WHERE user_id = ? AND detected_at >= ? ORDER BY detected_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query diffs: %w", err)
	}
	defer rows.Close()
	return collectDiffs(rows)
}

func collectDiffs(rows *sql.Rows) ([]*models.Diff, error) {
	var diffs []*models.Diff
	for rows.Next() {
		d, err := scanDiffRow(rows)
		if err != nil {
			return nil, err
		}
		diffs = append(diffs, d)
	}
	return diffs, rows.Err()
}

func scanDiff(row rowScanner) (*models.Diff, error) {
	d, err := scanDiffRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func scanDiffRow(row rowScanner) (*models.Diff, error) {
	var d models.Diff
	var previousSnapshotID sql.NullString
	var diffJSON string
	var detectedAt string

	err := row.Scan(
		&d.ID, &d.UserID, &d.CompanyID, &previousSnapshotID, &d.CurrentSnapshotID,
		&diffJSON, &d.Severity, &d.VerificationState, &detectedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan diff: %w", err)
	}

	if previousSnapshotID.Valid {
		d.PreviousSnapshotID = &previousSnapshotID.String
	}
	if err := json.Unmarshal([]byte(diffJSON), &d.NormalizedDiff); err != nil {
		return nil, fmt.Errorf("failed to unmarshal normalized diff: %w", err)
	}
	if d.DetectedAt, err = time.Parse(time.RFC3339, detectedAt); err != nil {
		return nil, fmt.Errorf("failed to parse detected_at: %w", err)
	}

	return &d, nil
}
