package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
	"github.com/oklog/ulid/v2"
)

func mustCreateDiff(t *testing.T, repos *Repositories, userID, companyID, snapshotID string) *models.Diff {
	t.Helper()
	d := &models.Diff{
		ID:                ulid.Make().String(),
		UserID:            userID,
		CompanyID:         companyID,
		CurrentSnapshotID: snapshotID,
		NormalizedDiff:    models.NormalizedDiff{ChangedAt: time.Now().UTC()},
		Severity:          models.SeverityHigh,
		VerificationState: models.VerificationVerified,
		DetectedAt:        time.Now().UTC(),
	}
	if err := repos.Diff.Create(context.Background(), d); err != nil {
		t.Fatalf("failed to create test diff: %v", err)
	}
	return d
}

func TestInsightRepository_CreateGetAndFeedback(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	insertTestUser(t, db, "user_1")
	c := mustCreateCompany(t, repos, "user_1")
	s := mustCreateSnapshot(t, repos, "user_1", c.ID)
	d := mustCreateDiff(t, repos, "user_1", c.ID, s.ID)
	ctx := context.Background()

	ins := &models.Insight{
		ID:        ulid.Make().String(),
		UserID:    "user_1",
		CompanyID: c.ID,
		DiffID:    d.ID,
		Model:     "rules-v1",
		Recommendation: models.Recommendation{
			Headline:    "Competitor raised Pro pricing",
			Severity:    models.SeverityHigh,
			ActionItems: []string{"Review your own Pro tier pricing"},
		},
		SeverityGate: models.SeverityGateHighOnly,
		GeneratedAt:  time.Now().UTC(),
		Feedback:     models.FeedbackNone,
	}
	if err := repos.Insight.Create(ctx, ins); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repos.Insight.GetByDiffID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByDiffID() error = %v", err)
	}
	if got == nil || got.Recommendation.Headline != ins.Recommendation.Headline {
		t.Fatalf("GetByDiffID() = %v, want headline %q", got, ins.Recommendation.Headline)
	}

	if err := repos.Insight.SetFeedback(ctx, ins.ID, models.FeedbackHelpful); err != nil {
		t.Fatalf("SetFeedback() error = %v", err)
	}

	got2, err := repos.Insight.GetByID(ctx, ins.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got2.Feedback != models.FeedbackHelpful {
		t.Errorf("Feedback = %s, want helpful", got2.Feedback)
	}
}
