package models

import "time"

// SeverityGate is a per-tier predicate controlling which diff severities
// may produce insights.
type SeverityGate string

const (
	SeverityGateHighOnly      SeverityGate = "high_only"
	SeverityGateHighAndMedium SeverityGate = "high_and_medium"
	SeverityGateNone          SeverityGate = "none"
)

// AllowedSeverities returns the set of severities a gate lets through.
func (g SeverityGate) AllowedSeverities() map[Severity]bool {
	switch g {
	case SeverityGateHighAndMedium:
		return map[Severity]bool{SeverityHigh: true, SeverityMedium: true}
	case SeverityGateNone:
		return map[Severity]bool{}
	default:
		return map[Severity]bool{SeverityHigh: true}
	}
}

// Allows reports whether a severity clears this gate.
func (g SeverityGate) Allows(s Severity) bool {
	return g.AllowedSeverities()[s]
}

// InsightFeedback is the user's reaction to a generated insight.
type InsightFeedback string

const (
	FeedbackNone        InsightFeedback = "none"
	FeedbackHelpful     InsightFeedback = "helpful"
	FeedbackNotHelpful  InsightFeedback = "not_helpful"
)

// BucketSummary is the per-bucket roll-up attached to a Recommendation.
type BucketSummary struct {
	Currency string        `json:"currency"`
	Period   PricingPeriod `json:"period"`
	Added    int           `json:"added"`
	Removed  int           `json:"removed"`
	Updated  int           `json:"updated"`
}

// Recommendation is the opaque structured object an Insight carries.
type Recommendation struct {
	Headline          string            `json:"headline"`
	Summary           string            `json:"summary"`
	RiskLabel         string            `json:"risk_label"`
	Severity          Severity          `json:"severity"`
	VerificationState VerificationState `json:"verification_state"`
	ActionItems       []string          `json:"action_items"`
	BucketSummaries   []BucketSummary   `json:"bucket_summaries"`
}

// Insight is a decision recommendation derived from a Diff, gated by the
// owning user's entitlements.
type Insight struct {
	ID        string
	UserID    string
	CompanyID string
	DiffID    string

	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalCostUSD     float64

	Recommendation Recommendation
	SeverityGate   SeverityGate

	GeneratedAt time.Time
	Feedback    InsightFeedback
}
