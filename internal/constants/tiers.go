// Package constants defines centralized plan-tier limits and severity-gate
// tables. Change values here to update entitlements across the application.
package constants

import "github.com/Rubayet19/price-tracker/internal/models"

// Plan price tags. These are the opaque strings the billing collaborator
// attaches to a paid user; everything else is resolved from the table below.
const (
	PlanTagStarter = "starter"
	PlanTagPro     = "pro"
)

// TrialCompanyLimit is the max competitors a user on an active trial may
// track.
const TrialCompanyLimit = 3

// PlanLimits defines the numeric and feature limits for a paid plan tier.
type PlanLimits struct {
	DisplayName      string
	CompanyLimit     int
	SeverityGate     models.SeverityGate
	DigestEnabled    bool
	RequestsPerMinute int
}

// Plans maps a billing price tag to its limits. A price tag not present here
// falls back to PlanTagStarter (see entitlements.Resolve).
var Plans = map[string]PlanLimits{
	PlanTagStarter: {
		DisplayName:       "Starter",
		CompanyLimit:      3,
		SeverityGate:      models.SeverityGateHighOnly,
		DigestEnabled:     true,
		RequestsPerMinute: 30,
	},
	PlanTagPro: {
		DisplayName:       "Pro",
		CompanyLimit:      10,
		SeverityGate:      models.SeverityGateHighAndMedium,
		DigestEnabled:     true,
		RequestsPerMinute: 120,
	},
}

// TrialLimits is the entitlement table applied to a user on an active trial,
// regardless of any price tag on file.
var TrialLimits = PlanLimits{
	DisplayName:       "Trial",
	CompanyLimit:      TrialCompanyLimit,
	SeverityGate:      models.SeverityGateHighOnly,
	DigestEnabled:     false,
	RequestsPerMinute: 30,
}

// UnentitledLimits applies to a user with no active trial and no paid
// access: read-only, nothing new may be tracked.
var UnentitledLimits = PlanLimits{
	DisplayName:       "None",
	CompanyLimit:      0,
	SeverityGate:      models.SeverityGateNone,
	DigestEnabled:     false,
	RequestsPerMinute: 10,
}
