// Package entitlements resolves a user's access level into the limits the
// rest of the core enforces: how many competitors they may track, which
// diff severities may produce an Insight, and whether they're eligible for
// the weekly digest.
package entitlements

import (
	"time"

	"github.com/Rubayet19/price-tracker/internal/constants"
	"github.com/Rubayet19/price-tracker/internal/models"
)

// AccessSource records which path through the resolver produced an
// Entitlements value, mostly useful for logging and the /entitlements/me
// projection.
type AccessSource string

const (
	AccessSourcePaid  AccessSource = "paid"
	AccessSourceTrial AccessSource = "trial"
	AccessSourceNone  AccessSource = "none"
)

// Entitlements is the resolved, immutable view of what a user may do right
// now. It is a pure function of (User, now) — nothing here is persisted.
type Entitlements struct {
	AccessSource AccessSource
	PlanTier     string
	HasAccess    bool

	CompetitorLimit         int
	SeverityGate            models.SeverityGate
	CanReceiveWeeklyDigest  bool
}

// CanGenerateInsight reports whether a diff of the given severity clears
// this user's severity gate.
func (e Entitlements) CanGenerateInsight(severity models.Severity) bool {
	return e.HasAccess && e.SeverityGate.Allows(severity)
}

// Resolve is the pure entitlements function: (user, now) -> Entitlements.
// It does not mutate or persist user; callers that need the idempotent
// trial-status transition applied first must call RefreshTrialStatus and
// persist its result before calling Resolve.
func Resolve(user *models.User, now time.Time) Entitlements {
	if user == nil {
		return Entitlements{AccessSource: AccessSourceNone, SeverityGate: models.SeverityGateNone}
	}

	if user.HasPaidAccess {
		tier := resolvePlanTag(user.PaidPlanPriceTag)
		limits, ok := constants.Plans[tier]
		if !ok {
			// Fall back to Starter on an unknown price tag rather than
			// failing closed.
			limits = constants.Plans[constants.PlanTagStarter]
			tier = constants.PlanTagStarter
		}
		return Entitlements{
			AccessSource:           AccessSourcePaid,
			PlanTier:               tier,
			HasAccess:              true,
			CompetitorLimit:        limits.CompanyLimit,
			SeverityGate:           limits.SeverityGate,
			CanReceiveWeeklyDigest: limits.DigestEnabled,
		}
	}

	if user.TrialStatus == models.TrialStatusActive && user.TrialEndsAt != nil && user.TrialEndsAt.After(now) {
		limits := constants.TrialLimits
		return Entitlements{
			AccessSource:            AccessSourceTrial,
			PlanTier:                constants.PlanTagStarter,
			HasAccess:               true,
			CompetitorLimit:         limits.CompanyLimit,
			SeverityGate:            limits.SeverityGate,
			CanReceiveWeeklyDigest:  false, // a trial user never receives the digest
		}
	}

	return Entitlements{
		AccessSource:           AccessSourceNone,
		HasAccess:              false,
		CompetitorLimit:        constants.UnentitledLimits.CompanyLimit,
		SeverityGate:           models.SeverityGateNone,
		CanReceiveWeeklyDigest: false,
	}
}

// resolvePlanTag maps a nil or empty price tag to the Starter fallback; a
// non-nil tag is passed through verbatim for the Plans table lookup.
func resolvePlanTag(tag *string) string {
	if tag == nil || *tag == "" {
		return constants.PlanTagStarter
	}
	return *tag
}

// RefreshTrialStatus applies the idempotent trial transition: an active
// trial that has either converted (paid access granted) or lapsed
// (trialEndsAt <= now) is moved to its terminal status. It sets
// user.TrialStatus in place and returns whether a transition occurred, so
// the caller can decide whether to persist; calling it twice in a row is a
// no-op the second time.
func RefreshTrialStatus(user *models.User, now time.Time) (changed bool) {
	if user == nil || user.TrialStatus != models.TrialStatusActive {
		return false
	}
	switch {
	case user.HasPaidAccess:
		user.TrialStatus = models.TrialStatusConverted
		return true
	case user.TrialEndsAt != nil && !user.TrialEndsAt.After(now):
		user.TrialStatus = models.TrialStatusExpired
		return true
	}
	return false
}
