package models

import "time"

// WebhookEventStatus is the processing state of a ProcessedWebhookEvent.
type WebhookEventStatus string

const (
	WebhookEventProcessing WebhookEventStatus = "processing"
	WebhookEventProcessed  WebhookEventStatus = "processed"
	WebhookEventFailed     WebhookEventStatus = "failed"
)

// ProcessedWebhookEvent is the idempotency ledger for payment-provider
// webhook events. Ownership of the billing flow itself sits with the
// external payment-provider collaborator; this ledger is the narrow
// interface the core's entitlements resolver depends on indirectly
// through User.HasPaidAccess.
type ProcessedWebhookEvent struct {
	EventID       string
	EventType     string
	Status        WebhookEventStatus
	Attempts      int
	LockExpiresAt time.Time
	ProcessedAt   *time.Time
	LastError     *string
}

// RateLimitCounter is a per-key fixed-window counter stored in
// rate_limit_counters; neither the HTTP handlers nor the batch runner
// consult it.
type RateLimitCounter struct {
	Key             string
	Count           int
	WindowStartedAt time.Time
	ExpiresAt       time.Time
}
