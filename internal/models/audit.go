package models

import "time"

// AuditOutcome is the outcome recorded for a user-facing mutation or a
// terminal crawl status.
type AuditOutcome string

const (
	AuditOutcomeSuccess  AuditOutcome = "success"
	AuditOutcomeRejected AuditOutcome = "rejected"
	AuditOutcomeFailure  AuditOutcome = "failure"
)

// AuditEvent is a short metadata record of an outcome, queryable beyond
// the structured log line it is paired with.
type AuditEvent struct {
	ID        string
	UserID    string
	CompanyID *string
	EventType string // e.g. "crawl_blocked", "competitor_cap_hit", "company_create"
	Outcome   AuditOutcome
	Metadata  map[string]string
	CreatedAt time.Time
}
