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

// SQLiteCompanyRepository implements CompanyRepository for SQLite.
type SQLiteCompanyRepository struct {
	db *sql.DB
}

// NewSQLiteCompanyRepository creates a new SQLite company repository.
func NewSQLiteCompanyRepository(db *sql.DB) *SQLiteCompanyRepository {
	return &SQLiteCompanyRepository{db: db}
}

func (r *SQLiteCompanyRepository) Create(ctx context.Context, c *models.Company) error {
	candidatesJSON, err := json.Marshal(c.PricingURLCandidates)
	if err != nil {
		return fmt.Errorf("failed to marshal pricing url candidates: %w", err)
	}

	query := `
		INSERT INTO companies (id, user_id, type, name, domain, homepage_url, primary_pricing_url,
			pricing_url_candidates_json, next_crawl_at, crawl_lease_until, last_crawl_at,
			last_crawl_status, last_crawl_error, latest_content_hash, latest_confidence,
			raw_capture_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Type, c.Name, c.Domain,
		nullStringPtr(c.HomepageURL), nullStringPtr(c.PrimaryPricingURL),
		string(candidatesJSON), nullTime(c.NextCrawlAt), nullTime(c.CrawlLeaseUntil),
		nullTime(c.LastCrawlAt), c.LastCrawlStatus, nullStringPtr(c.LastCrawlError),
		nullStringPtr(c.LatestContentHash), nullFloat(c.LatestConfidence),
		nullStringPtr(c.RawCaptureKey),
		c.CreatedAt.UTC().Format(time.RFC3339), c.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

const companyColumns = `id, user_id, type, name, domain, homepage_url, primary_pricing_url,
	pricing_url_candidates_json, next_crawl_at, crawl_lease_until, last_crawl_at,
	last_crawl_status, last_crawl_error, latest_content_hash, latest_confidence,
	raw_capture_key, created_at, updated_at`

func (r *SQLiteCompanyRepository) GetByID(ctx context.Context, id string) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = ?`
	return scanCompany(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteCompanyRepository) GetByUserID(ctx context.Context, userID string) ([]*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE user_id = ? ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		c, err := scanCompanyRow(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (r *SQLiteCompanyRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count companies: %w", err)
	}
	return count, nil
}

func (r *SQLiteCompanyRepository) Update(ctx context.Context, c *models.Company) error {
	candidatesJSON, err := json.Marshal(c.PricingURLCandidates)
	if err != nil {
		return fmt.Errorf("failed to marshal pricing url candidates: %w", err)
	}

	query := `
		UPDATE companies SET
			name = ?, domain = ?, homepage_url = ?, primary_pricing_url = ?,
			pricing_url_candidates_json = ?, next_crawl_at = ?, crawl_lease_until = ?,
			last_crawl_at = ?, last_crawl_status = ?, last_crawl_error = ?,
			latest_content_hash = ?, latest_confidence = ?, raw_capture_key = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.ExecContext(ctx, query,
		c.Name, c.Domain, nullStringPtr(c.HomepageURL), nullStringPtr(c.PrimaryPricingURL),
		string(candidatesJSON), nullTime(c.NextCrawlAt), nullTime(c.CrawlLeaseUntil),
		nullTime(c.LastCrawlAt), c.LastCrawlStatus, nullStringPtr(c.LastCrawlError),
		nullStringPtr(c.LatestContentHash), nullFloat(c.LatestConfidence),
		nullStringPtr(c.RawCaptureKey), c.UpdatedAt.UTC().Format(time.RFC3339),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return nil
}

// ClaimDue atomically claims the next due company of the given type using a
// single UPDATE ... WHERE id = (SELECT ...) RETURNING statement, so at most
// one caller can win a race on the same row regardless of how many batch
// runners are live.
func (r *SQLiteCompanyRepository) ClaimDue(ctx context.Context, companyType models.CompanyType, leaseUntil time.Time) (*models.Company, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		UPDATE companies
		SET crawl_lease_until = ?
		WHERE id = (
			SELECT id FROM companies
			WHERE type = ?
				AND (next_crawl_at IS NULL OR next_crawl_at <= ?)
				AND (crawl_lease_until IS NULL OR crawl_lease_until <= ?)
			ORDER BY next_crawl_at ASC NULLS FIRST, updated_at ASC
			LIMIT 1
		)
		RETURNING ` + companyColumns

	c, err := scanCompany(tx.QueryRowContext(ctx, query, leaseUntil.UTC().Format(time.RFC3339), companyType, now, now))
	if err == sql.ErrNoRows || c == nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim due company: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	committed = true
	return c, nil
}

func (r *SQLiteCompanyRepository) ReleaseLease(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE companies SET crawl_lease_until = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to release crawl lease: %w", err)
	}
	return nil
}

func (r *SQLiteCompanyRepository) CrawlStatusCounts(ctx context.Context) (map[models.CrawlStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT last_crawl_status, COUNT(*) FROM companies WHERE type = ? GROUP BY last_crawl_status`, models.CompanyTypeCompetitor)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate crawl status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.CrawlStatus]int)
	for rows.Next() {
		var status models.CrawlStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan crawl status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*models.Company, error) {
	c, err := scanCompanyRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func scanCompanyRow(row rowScanner) (*models.Company, error) {
	var c models.Company
	var homepageURL, primaryPricingURL, lastCrawlError, latestContentHash, rawCaptureKey sql.NullString
	var nextCrawlAt, crawlLeaseUntil, lastCrawlAt sql.NullString
	var latestConfidence sql.NullFloat64
	var candidatesJSON string
	var createdAt, updatedAt string

	err := row.Scan(
		&c.ID, &c.UserID, &c.Type, &c.Name, &c.Domain, &homepageURL, &primaryPricingURL,
		&candidatesJSON, &nextCrawlAt, &crawlLeaseUntil, &lastCrawlAt,
		&c.LastCrawlStatus, &lastCrawlError, &latestContentHash, &latestConfidence,
		&rawCaptureKey, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan company: %w", err)
	}

	if homepageURL.Valid {
		c.HomepageURL = &homepageURL.String
	}
	if primaryPricingURL.Valid {
		c.PrimaryPricingURL = &primaryPricingURL.String
	}
	if lastCrawlError.Valid {
		c.LastCrawlError = &lastCrawlError.String
	}
	if latestContentHash.Valid {
		c.LatestContentHash = &latestContentHash.String
	}
	if rawCaptureKey.Valid {
		c.RawCaptureKey = &rawCaptureKey.String
	}
	if latestConfidence.Valid {
		c.LatestConfidence = &latestConfidence.Float64
	}
	if err := json.Unmarshal([]byte(candidatesJSON), &c.PricingURLCandidates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pricing url candidates: %w", err)
	}

	if c.NextCrawlAt, err = parseNullTime(nextCrawlAt); err != nil {
		return nil, err
	}
	if c.CrawlLeaseUntil, err = parseNullTime(crawlLeaseUntil); err != nil {
		return nil, err
	}
	if c.LastCrawlAt, err = parseNullTime(lastCrawlAt); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &c, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
