// Package models defines the domain entities of the pricing-intelligence core.
// User identity, trial, and subscription state are owned by an external
// auth/billing collaborator; this package only mirrors the fields the core
// needs to read.
package models

import "time"

// TrialStatus is the lifecycle state of a user's free trial.
type TrialStatus string

const (
	TrialStatusNotStarted TrialStatus = "not_started"
	TrialStatusActive     TrialStatus = "active"
	TrialStatusExpired    TrialStatus = "expired"
	TrialStatusConverted  TrialStatus = "converted"
)

// User is the subset of account state the crawl core and entitlements
// resolver need to read. Ownership lives with the external auth/billing
// collaborator; the core never writes PaidPlanPriceTag, HasPaidAccess,
// Email, or the trial start/end timestamps directly — those flow in
// through the billing webhook boundary.
type User struct {
	UserID           string
	Email            string
	PaidPlanPriceTag *string
	HasPaidAccess    bool
	TrialStatus      TrialStatus
	TrialStartedAt   *time.Time
	TrialEndsAt      *time.Time
	LastDigestSentAt *time.Time

	// StripeCustomerIDEncrypted holds the payment provider's customer id,
	// encrypted at rest by the billing webhook boundary before it's ever
	// written to the users table.
	StripeCustomerIDEncrypted *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
