// Package repository defines repository interfaces and SQLite-backed
// implementations for data access. The external auth/billing collaborator
// owns the authoritative copy of User; the users table here is a local
// read/write mirror the core talks to directly.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
)

// UserRepository defines methods for the local user mirror.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
	// ListAll returns every user, for the digest job's eligibility sweep.
	ListAll(ctx context.Context) ([]*models.User, error)
	SetLastDigestSentAt(ctx context.Context, userID string, at time.Time) error
	SetTrialStatus(ctx context.Context, userID string, status models.TrialStatus) error
	// SetHasPaidAccess is the mutation the billing webhook boundary performs
	// when a subscription event arrives.
	SetHasPaidAccess(ctx context.Context, userID string, hasPaidAccess bool, priceTag, stripeCustomerIDEncrypted *string) error
}

// CompanyRepository defines methods for crawl-target data access.
type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	GetByID(ctx context.Context, id string) (*models.Company, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.Company, error)
	CountByUserID(ctx context.Context, userID string) (int, error)
	Update(ctx context.Context, company *models.Company) error
	// ClaimDue atomically claims the next company whose next_crawl_at has
	// passed and whose lease has expired, setting crawl_lease_until to
	// now+leaseDuration in the same statement.
	ClaimDue(ctx context.Context, companyType models.CompanyType, leaseUntil time.Time) (*models.Company, error)
	// ReleaseLease clears a company's crawl lease without touching schedule
	// fields, used when a crawl attempt fails before completion bookkeeping.
	ReleaseLease(ctx context.Context, id string) error
	// CrawlStatusCounts aggregates tracked competitors by LastCrawlStatus,
	// for the admin crawl-health view.
	CrawlStatusCounts(ctx context.Context) (map[models.CrawlStatus]int, error)
}

// SnapshotRepository defines methods for immutable pricing observations.
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *models.Snapshot) error
	GetLatestByCompanyID(ctx context.Context, companyID string) (*models.Snapshot, error)
	GetByID(ctx context.Context, id string) (*models.Snapshot, error)
	GetByCompanyID(ctx context.Context, companyID string, limit, offset int) ([]*models.Snapshot, error)
}

// DiffRepository defines methods for snapshot-to-snapshot deltas.
type DiffRepository interface {
	Create(ctx context.Context, diff *models.Diff) error
	GetByID(ctx context.Context, id string) (*models.Diff, error)
	GetByCompanyID(ctx context.Context, companyID string, limit, offset int) ([]*models.Diff, error)
	GetByUserIDSince(ctx context.Context, userID string, since time.Time) ([]*models.Diff, error)
}

// InsightRepository defines methods for decision recommendations.
type InsightRepository interface {
	Create(ctx context.Context, insight *models.Insight) error
	GetByID(ctx context.Context, id string) (*models.Insight, error)
	GetByDiffID(ctx context.Context, diffID string) (*models.Insight, error)
	GetByUserIDSince(ctx context.Context, userID string, since time.Time) ([]*models.Insight, error)
	SetFeedback(ctx context.Context, id string, feedback models.InsightFeedback) error
}

// LockRepository defines methods for named invocation locks.
type LockRepository interface {
	// Acquire attempts to take the named lock, succeeding only if it is
	// unheld or expired. Returns (nil, nil) on contention.
	Acquire(ctx context.Context, key, ownerID string, until time.Time) (*models.InvocationLock, error)
	// Release clears the lock, but only if ownerID still holds it
	// (fenced release). Returns false if the lock was already taken by
	// someone else.
	Release(ctx context.Context, key, ownerID string) (bool, error)
	// GetByKey reads the current state of a named lock, or (nil, nil) if
	// it has never been acquired. Used to report the real remaining TTL
	// after a contended Acquire.
	GetByKey(ctx context.Context, key string) (*models.InvocationLock, error)
}

// WebhookEventRepository defines the idempotency ledger for the external
// payment-provider collaborator.
type WebhookEventRepository interface {
	// TryClaim inserts a new event row if the ID hasn't been seen, or
	// reclaims it if the prior processing lock has expired. Returns false
	// if another worker currently holds a live lock on it.
	TryClaim(ctx context.Context, eventID, eventType string, lockUntil time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID, errMsg string) error
	GetByID(ctx context.Context, eventID string) (*models.ProcessedWebhookEvent, error)
}

// RateLimitRepository defines methods for fixed-window request counters.
type RateLimitRepository interface {
	// Increment atomically bumps the counter for key within the current
	// window, creating a fresh window if the prior one expired. Returns the
	// post-increment count and the window's expiry.
	Increment(ctx context.Context, key string, windowDuration time.Duration) (count int, expiresAt time.Time, err error)
}

// AuditRepository defines methods for the supplementary audit trail.
type AuditRepository interface {
	Record(ctx context.Context, event *models.AuditEvent) error
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.AuditEvent, error)
}

// Repositories aggregates every repository implementation behind a single
// handle, constructed once at startup and threaded through the service
// layer.
type Repositories struct {
	User          UserRepository
	Company       CompanyRepository
	Snapshot      SnapshotRepository
	Diff          DiffRepository
	Insight       InsightRepository
	Lock          LockRepository
	WebhookEvent  WebhookEventRepository
	RateLimit     RateLimitRepository
	Audit         AuditRepository
}

// NewRepositories creates all repository instances backed by db.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		User:         NewSQLiteUserRepository(db),
		Company:      NewSQLiteCompanyRepository(db),
		Snapshot:     NewSQLiteSnapshotRepository(db),
		Diff:         NewSQLiteDiffRepository(db),
		Insight:      NewSQLiteInsightRepository(db),
		Lock:         NewSQLiteLockRepository(db),
		WebhookEvent: NewSQLiteWebhookEventRepository(db),
		RateLimit:    NewSQLiteRateLimitRepository(db),
		Audit:        NewSQLiteAuditRepository(db),
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
