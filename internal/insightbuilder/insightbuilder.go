// Package insightbuilder turns a gated Diff into the Insight create-input
// the batch runner persists. The deterministic "rules-v1" generator here
// produces zero token/cost counters; the fields exist so a future
// LLM-backed generator can populate them without a schema change.
package insightbuilder

import (
	"fmt"
	"time"

	"github.com/Rubayet19/price-tracker/internal/entitlements"
	"github.com/Rubayet19/price-tracker/internal/models"
)

// ModelLabel identifies the deterministic rules generator implemented here.
const ModelLabel = "rules-v1"

// SkipReason explains why no Insight was produced.
type SkipReason string

const (
	SkipReasonNone            SkipReason = ""
	SkipReasonNoAccess        SkipReason = "no_access"
	SkipReasonSeverityGated   SkipReason = "severity_gated"
)

// Decision is the outcome of Build: either a ready-to-persist Insight, or a
// reason the owner's entitlements blocked it.
type Decision struct {
	ShouldCreate bool
	SkipReason   SkipReason
	Insight      *models.Insight
}

// Input bundles everything Build needs to decide and, if warranted,
// construct an Insight.
type Input struct {
	User              *models.User
	CompanyID         string
	DiffID            string
	Severity          models.Severity
	VerificationState models.VerificationState
	NormalizedDiff    models.NormalizedDiff
	Now               time.Time
}

// Build decides whether a Diff clears the owner's severity gate and, if so,
// builds the Insight create-input.
func Build(in Input) Decision {
	ent := entitlements.Resolve(in.User, in.Now)

	if !ent.HasAccess {
		return Decision{ShouldCreate: false, SkipReason: SkipReasonNoAccess}
	}
	if !ent.CanGenerateInsight(in.Severity) {
		return Decision{ShouldCreate: false, SkipReason: SkipReasonSeverityGated}
	}

	summary := bucketSummaries(in.NormalizedDiff)
	rec := models.Recommendation{
		Headline:          headline(in.Severity, in.CompanyID),
		Summary:           proseSummary(in.NormalizedDiff, summary),
		RiskLabel:         string(in.Severity),
		Severity:          in.Severity,
		VerificationState: in.VerificationState,
		ActionItems:       actionItems(in.Severity, in.VerificationState),
		BucketSummaries:   summary,
	}

	insight := &models.Insight{
		UserID:           in.User.UserID,
		CompanyID:        in.CompanyID,
		DiffID:           in.DiffID,
		Model:            ModelLabel,
		PromptTokens:     0,
		CompletionTokens: 0,
		TotalCostUSD:     0,
		Recommendation:   rec,
		SeverityGate:     ent.SeverityGate,
		GeneratedAt:      in.Now,
		Feedback:         models.FeedbackNone,
	}

	return Decision{ShouldCreate: true, Insight: insight}
}

// bucketSummaries derives the per-bucket added/removed/updated roll-up from
// the bucketed diff.
func bucketSummaries(d models.NormalizedDiff) []models.BucketSummary {
	out := make([]models.BucketSummary, 0, len(d.Buckets))
	for _, b := range d.Buckets {
		out = append(out, models.BucketSummary{
			Currency: b.Currency,
			Period:   b.Period,
			Added:    len(b.Added),
			Removed:  len(b.Removed),
			Updated:  len(b.Updated),
		})
	}
	return out
}

func headline(sev models.Severity, companyID string) string {
	switch sev {
	case models.SeverityHigh:
		return "High-severity pricing change detected"
	case models.SeverityMedium:
		return "Pricing change detected"
	default:
		return "Minor pricing change detected"
	}
}

func proseSummary(d models.NormalizedDiff, summaries []models.BucketSummary) string {
	added, removed, updated := 0, 0, 0
	for _, s := range summaries {
		added += s.Added
		removed += s.Removed
		updated += s.Updated
	}
	hintChange := len(d.AddedHints) > 0 || len(d.RemovedHints) > 0

	switch {
	case added > 0 && removed > 0:
		return fmt.Sprintf("Competitor pricing shifted: %d price(s) added, %d removed, %d updated across %d plan(s).", added, removed, updated, d.CurrentPlanCount)
	case updated > 0:
		return fmt.Sprintf("Competitor adjusted %d existing price(s) across %d plan(s).", updated, d.CurrentPlanCount)
	case added > 0:
		return fmt.Sprintf("Competitor added %d new price(s).", added)
	case removed > 0:
		return fmt.Sprintf("Competitor removed %d price(s).", removed)
	case hintChange:
		return "Competitor's custom/enterprise pricing messaging changed."
	default:
		return "Competitor pricing page changed."
	}
}

// actionItems picks action-item strings by severity and verification
// state.
func actionItems(sev models.Severity, verification models.VerificationState) []string {
	var items []string
	switch sev {
	case models.SeverityHigh:
		items = append(items, "Review competitor positioning and update your pricing strategy within 24 hours.")
	case models.SeverityMedium:
		items = append(items, "Review the change and decide whether a pricing response is warranted this week.")
	default:
		items = append(items, "No action required; monitor for further movement.")
	}
	if verification == models.VerificationUnverified {
		items = append(items, "Manually verify the competitor pricing page before acting on this change.")
	}
	return items
}
