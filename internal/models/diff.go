package models

import "time"

// Severity is the closed sum of diff severity ratings.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// VerificationState echoes whether the current snapshot backing a Diff was
// verified: a page whose extraction confidence cleared the verified
// threshold and carried at least one price mention.
type VerificationState string

const (
	VerificationVerified   VerificationState = "verified"
	VerificationUnverified VerificationState = "unverified"
)

// UpdatedAmount is a paired previous/current price within one bucket that
// moved enough to clear the low-noise threshold.
type UpdatedAmount struct {
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	AbsDelta float64 `json:"abs_delta"`
	PctDelta float64 `json:"pct_delta"`
}

// BucketChange is the delta for one (currency, period) bucket.
type BucketChange struct {
	Currency string          `json:"currency"`
	Period   PricingPeriod   `json:"period"`
	Added    []float64       `json:"added,omitempty"`
	Removed  []float64       `json:"removed,omitempty"`
	Updated  []UpdatedAmount `json:"updated,omitempty"`
}

// IsEmpty reports whether the bucket carries no change at all.
func (b BucketChange) IsEmpty() bool {
	return len(b.Added) == 0 && len(b.Removed) == 0 && len(b.Updated) == 0
}

// NormalizedDiff is the bucketed delta plus the plan/price count bookkeeping
// attached alongside it.
type NormalizedDiff struct {
	Buckets      []BucketChange `json:"buckets"`
	AddedHints   []string       `json:"added_hints,omitempty"`
	RemovedHints []string       `json:"removed_hints,omitempty"`

	PreviousPriceCount int `json:"previous_price_count"`
	CurrentPriceCount  int `json:"current_price_count"`
	PreviousPlanCount  int `json:"previous_plan_count"`
	CurrentPlanCount   int `json:"current_plan_count"`

	ChangedAt time.Time `json:"changed_at"`
}

// IsEmpty reports whether the diff has no bucket changes and no hint
// changes at all — the case in which no Diff should be created.
func (d NormalizedDiff) IsEmpty() bool {
	if len(d.AddedHints) != 0 || len(d.RemovedHints) != 0 {
		return false
	}
	for _, b := range d.Buckets {
		if !b.IsEmpty() {
			return false
		}
	}
	return true
}

// Diff is a snapshot-to-snapshot delta with an assigned severity.
type Diff struct {
	ID                  string
	UserID              string
	CompanyID           string
	PreviousSnapshotID  *string
	CurrentSnapshotID   string
	NormalizedDiff      NormalizedDiff
	Severity            Severity
	VerificationState   VerificationState
	DetectedAt          time.Time
}
