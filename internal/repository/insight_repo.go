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

// SQLiteInsightRepository implements InsightRepository for SQLite.
type SQLiteInsightRepository struct {
	db *sql.DB
}

// NewSQLiteInsightRepository creates a new SQLite insight repository.
func NewSQLiteInsightRepository(db *sql.DB) *SQLiteInsightRepository {
	return &SQLiteInsightRepository{db: db}
}

func (r *SQLiteInsightRepository) Create(ctx context.Context, ins *models.Insight) error {
	recJSON, err := json.Marshal(ins.Recommendation)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation: %w", err)
	}

	query := `
		INSERT INTO insights (id, user_id, company_id, diff_id, model, prompt_tokens,
			completion_tokens, total_cost_usd, recommendation_json, severity_gate, generated_at, feedback)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		ins.ID, ins.UserID, ins.CompanyID, ins.DiffID, ins.Model, ins.PromptTokens,
		ins.CompletionTokens, ins.TotalCostUSD, string(recJSON), ins.SeverityGate,
		ins.GeneratedAt.UTC().Format(time.RFC3339), ins.Feedback,
	)
	if err != nil {
		return fmt.Errorf("failed to create insight: %w", err)
	}
	return nil
}

const insightColumns = `id, user_id, company_id, diff_id, model, prompt_tokens,
	completion_tokens, total_cost_usd, recommendation_json, severity_gate, generated_at, feedback`

func (r *SQLiteInsightRepository) GetByID(ctx context.Context, id string) (*models.Insight, error) {
	query := `SELECT ` + insightColumns + ` FROM insights WHERE id = ?`
	return scanInsight(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteInsightRepository) GetByDiffID(ctx context.Context, diffID string) (*models.Insight, error) {
	query := `SELECT ` + insightColumns + ` FROM insights WHERE diff_id = ?`
	return scanInsight(r.db.QueryRowContext(ctx, query, diffID))
}

func (r *SQLiteInsightRepository) GetByUserIDSince(ctx context.Context, userID string, since time.Time) ([]*models.Insight, error) {
	query := `SELECT ` + insightColumns + ` FROM insights WHERE user_id = ? AND generated_at >= ? ORDER BY generated_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()

	var insights []*models.Insight
	for rows.Next() {
		ins, err := scanInsightRow(rows)
		if err != nil {
			return nil, err
		}
		insights = append(insights, ins)
	}
	return insights, rows.Err()
}

func (r *SQLiteInsightRepository) SetFeedback(ctx context.Context, id string, feedback models.InsightFeedback) error {
	_, err := r.db.ExecContext(ctx, `UPDATE insights SET feedback = ? WHERE id = ?`, feedback, id)
	if err != nil {
		return fmt.Errorf("failed to set insight feedback: %w", err)
	}
	return nil
}

func scanInsight(row rowScanner) (*models.Insight, error) {
	ins, err := scanInsightRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return ins, err
}

func scanInsightRow(row rowScanner) (*models.Insight, error) {
	var ins models.Insight
	var recJSON string
	var generatedAt string

	err := row.Scan(
		&ins.ID, &ins.UserID, &ins.CompanyID, &ins.DiffID, &ins.Model, &ins.PromptTokens,
		&ins.CompletionTokens, &ins.TotalCostUSD, &recJSON, &ins.SeverityGate, &generatedAt, &ins.Feedback,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan insight: %w", err)
	}

	if err := json.Unmarshal([]byte(recJSON), &ins.Recommendation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommendation: %w", err)
	}
	if ins.GeneratedAt, err = time.Parse(time.RFC3339, generatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse generated_at: %w", err)
	}

	return &ins, nil
}
