package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
)

// SQLiteUserRepository implements UserRepository for SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a new SQLite user repository.
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (user_id, email, paid_plan_price_tag, has_paid_access, trial_status,
			trial_started_at, trial_ends_at, last_digest_sent_at, stripe_customer_id_encrypted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email = excluded.email,
			paid_plan_price_tag = excluded.paid_plan_price_tag,
			has_paid_access = excluded.has_paid_access,
			trial_status = excluded.trial_status,
			trial_started_at = excluded.trial_started_at,
			trial_ends_at = excluded.trial_ends_at,
			last_digest_sent_at = excluded.last_digest_sent_at,
			stripe_customer_id_encrypted = excluded.stripe_customer_id_encrypted,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		user.UserID,
		user.Email,
		nullStringPtr(user.PaidPlanPriceTag),
		user.HasPaidAccess,
		user.TrialStatus,
		nullTime(user.TrialStartedAt),
		nullTime(user.TrialEndsAt),
		nullTime(user.LastDigestSentAt),
		nullStringPtr(user.StripeCustomerIDEncrypted),
		user.CreatedAt.UTC().Format(time.RFC3339),
		user.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// SetHasPaidAccess flips a user's paid-access flag and price tag, the
// mutation the billing webhook boundary performs when a subscription
// event arrives. stripeCustomerIDEncrypted may be nil if the event
// carried no customer id.
func (r *SQLiteUserRepository) SetHasPaidAccess(ctx context.Context, userID string, hasPaidAccess bool, priceTag, stripeCustomerIDEncrypted *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET has_paid_access = ?, paid_plan_price_tag = ?, stripe_customer_id_encrypted = COALESCE(?, stripe_customer_id_encrypted), updated_at = ? WHERE user_id = ?`,
		hasPaidAccess, nullStringPtr(priceTag), nullStringPtr(stripeCustomerIDEncrypted), time.Now().UTC().Format(time.RFC3339), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set paid access: %w", err)
	}
	return nil
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT user_id, email, paid_plan_price_tag, has_paid_access, trial_status,
			trial_started_at, trial_ends_at, last_digest_sent_at, stripe_customer_id_encrypted, created_at, updated_at
		FROM users WHERE user_id = ?
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, userID))
}

// ListAll returns every user, for the digest job's eligibility sweep. The
// user population is small enough in this system's scale that a full scan
// beats maintaining a separate index.
func (r *SQLiteUserRepository) ListAll(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT user_id, email, paid_plan_price_tag, has_paid_access, trial_status,
			trial_started_at, trial_ends_at, last_digest_sent_at, stripe_customer_id_encrypted, created_at, updated_at
		FROM users ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := r.scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetLastDigestSentAt records that the weekly digest was just dispatched
// to userID.
func (r *SQLiteUserRepository) SetLastDigestSentAt(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_digest_sent_at = ?, updated_at = ? WHERE user_id = ?`,
		at.UTC().Format(time.RFC3339), at.UTC().Format(time.RFC3339), userID)
	if err != nil {
		return fmt.Errorf("failed to set last_digest_sent_at: %w", err)
	}
	return nil
}

// SetTrialStatus persists the idempotent trial-status transition the
// entitlements resolver computes.
func (r *SQLiteUserRepository) SetTrialStatus(ctx context.Context, userID string, status models.TrialStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET trial_status = ?, updated_at = ? WHERE user_id = ?`,
		status, time.Now().UTC().Format(time.RFC3339), userID)
	if err != nil {
		return fmt.Errorf("failed to set trial status: %w", err)
	}
	return nil
}

func (r *SQLiteUserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var paidPlanTag, stripeCustomerID sql.NullString
	var trialStartedAt, trialEndsAt, lastDigestSentAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&u.UserID, &u.Email, &paidPlanTag, &u.HasPaidAccess, &u.TrialStatus,
		&trialStartedAt, &trialEndsAt, &lastDigestSentAt, &stripeCustomerID, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if paidPlanTag.Valid {
		u.PaidPlanPriceTag = &paidPlanTag.String
	}
	if stripeCustomerID.Valid {
		u.StripeCustomerIDEncrypted = &stripeCustomerID.String
	}
	if u.TrialStartedAt, err = parseNullTime(trialStartedAt); err != nil {
		return nil, err
	}
	if u.TrialEndsAt, err = parseNullTime(trialEndsAt); err != nil {
		return nil, err
	}
	if u.LastDigestSentAt, err = parseNullTime(lastDigestSentAt); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &u, nil
}

func (r *SQLiteUserRepository) scanUserRow(rows *sql.Rows) (*models.User, error) {
	var u models.User
	var paidPlanTag, stripeCustomerID sql.NullString
	var trialStartedAt, trialEndsAt, lastDigestSentAt sql.NullString
	var createdAt, updatedAt string

	err := rows.Scan(
		&u.UserID, &u.Email, &paidPlanTag, &u.HasPaidAccess, &u.TrialStatus,
		&trialStartedAt, &trialEndsAt, &lastDigestSentAt, &stripeCustomerID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan user row: %w", err)
	}

	if paidPlanTag.Valid {
		u.PaidPlanPriceTag = &paidPlanTag.String
	}
	if stripeCustomerID.Valid {
		u.StripeCustomerIDEncrypted = &stripeCustomerID.String
	}
	if u.TrialStartedAt, err = parseNullTime(trialStartedAt); err != nil {
		return nil, err
	}
	if u.TrialEndsAt, err = parseNullTime(trialEndsAt); err != nil {
		return nil, err
	}
	if u.LastDigestSentAt, err = parseNullTime(lastDigestSentAt); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &u, nil
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
