package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Rubayet19/price-tracker/internal/models"
	"github.com/Rubayet19/price-tracker/internal/repository"
)

// DashboardHandler serves the read-side projections the web client's
// overview, feed, and comparison views consume.
type DashboardHandler struct {
	repos *repository.Repositories
}

// NewDashboardHandler builds a DashboardHandler.
func NewDashboardHandler(repos *repository.Repositories) *DashboardHandler {
	return &DashboardHandler{repos: repos}
}

// OverviewOutput summarizes every company the calling user tracks, self
// and competitors alike.
type OverviewOutput struct {
	Body struct {
		TotalCompanies   int `json:"total_companies"`
		BlockedCompanies int `json:"blocked_companies"`
		ManualNeeded     int `json:"manual_needed_companies"`
		ChangesLast7Days int `json:"changes_last_7_days"`
		Companies        []companyResponse `json:"companies"`
	}
}

// Overview returns a counts-and-list summary across the user's companies.
func (h *DashboardHandler) Overview(ctx context.Context, input *struct{}) (*OverviewOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	companies, err := h.repos.Company.GetByUserID(ctx, userID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load companies", err)
	}

	since := time.Now().UTC().Add(-7 * 24 * time.Hour)
	diffs, err := h.repos.Diff.GetByUserIDSince(ctx, userID, since)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load recent diffs", err)
	}

	resp := &OverviewOutput{}
	resp.Body.ChangesLast7Days = len(diffs)
	for _, c := range companies {
		resp.Body.TotalCompanies++
		switch c.LastCrawlStatus {
		case models.CrawlStatusBlocked:
			resp.Body.BlockedCompanies++
		case models.CrawlStatusManualNeeded:
			resp.Body.ManualNeeded++
		}
		resp.Body.Companies = append(resp.Body.Companies, companyBody(c))
	}
	return resp, nil
}

// FeedInput sets the lookback window of the recent-diffs feed.
type FeedInput struct {
	LookbackDays int `query:"lookback_days" default:"30" minimum:"1" maximum:"365"`
}

// FeedOutput is a chronological feed of recent diffs with their severity.
type FeedOutput struct {
	Body struct {
		Diffs []diffResponse `json:"diffs"`
	}
}

type diffResponse struct {
	ID                 string                  `json:"id"`
	CompanyID          string                  `json:"company_id"`
	PreviousSnapshotID *string                 `json:"previous_snapshot_id,omitempty"`
	CurrentSnapshotID  string                  `json:"current_snapshot_id"`
	NormalizedDiff     models.NormalizedDiff   `json:"normalized_diff"`
	Severity           string                  `json:"severity"`
	VerificationState  string                  `json:"verification_state"`
	DetectedAt         time.Time               `json:"detected_at"`
}

func diffBody(d *models.Diff) diffResponse {
	return diffResponse{
		ID:                 d.ID,
		CompanyID:          d.CompanyID,
		PreviousSnapshotID: d.PreviousSnapshotID,
		CurrentSnapshotID:  d.CurrentSnapshotID,
		NormalizedDiff:     d.NormalizedDiff,
		Severity:           string(d.Severity),
		VerificationState:  string(d.VerificationState),
		DetectedAt:         d.DetectedAt,
	}
}

// Feed returns the calling user's diffs within the lookback window, most
// recent first.
func (h *DashboardHandler) Feed(ctx context.Context, input *FeedInput) (*FeedOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	since := time.Now().UTC().Add(-time.Duration(input.LookbackDays) * 24 * time.Hour)
	diffs, err := h.repos.Diff.GetByUserIDSince(ctx, userID, since)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load diffs", err)
	}

	resp := &FeedOutput{}
	for _, d := range diffs {
		resp.Body.Diffs = append(resp.Body.Diffs, diffBody(d))
	}
	return resp, nil
}

// ComparisonInput identifies the competitor to compare snapshots for.
type ComparisonInput struct {
	CompanyID string `query:"company_id" required:"true"`
	Limit     int    `query:"limit" default:"10" minimum:"1" maximum:"100"`
}

// ComparisonOutput is the recent snapshot history for one company, newest
// first, for the side-by-side pricing comparison view.
type ComparisonOutput struct {
	Body struct {
		Snapshots []snapshotResponse `json:"snapshots"`
	}
}

type snapshotResponse struct {
	ID            string                `json:"id"`
	CapturedAt    time.Time             `json:"captured_at"`
	CaptureMethod string                `json:"capture_method"`
	Confidence    float64               `json:"confidence"`
	ContentHash   string                `json:"content_hash"`
	IsVerified    bool                  `json:"is_verified"`
	Payload       models.PricingPayload `json:"payload"`
}

// Comparison returns the recent snapshot history for one company owned by
// the calling user.
func (h *DashboardHandler) Comparison(ctx context.Context, input *ComparisonInput) (*ComparisonOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	company, err := h.repos.Company.GetByID(ctx, input.CompanyID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load company", err)
	}
	if company == nil || company.UserID != userID {
		return nil, huma.Error404NotFound("company not found")
	}

	snapshots, err := h.repos.Snapshot.GetByCompanyID(ctx, input.CompanyID, input.Limit, 0)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load snapshots", err)
	}

	resp := &ComparisonOutput{}
	for _, s := range snapshots {
		resp.Body.Snapshots = append(resp.Body.Snapshots, snapshotResponse{
			ID:            s.ID,
			CapturedAt:    s.CapturedAt,
			CaptureMethod: string(s.CaptureMethod),
			Confidence:    s.Confidence,
			ContentHash:   s.ContentHash,
			IsVerified:    s.IsVerified,
			Payload:       s.Payload,
		})
	}
	return resp, nil
}
