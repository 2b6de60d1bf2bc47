package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
	"github.com/oklog/ulid/v2"
)

func mustCreateSnapshot(t *testing.T, repos *Repositories, userID, companyID string) *models.Snapshot {
	t.Helper()
	s := &models.Snapshot{
		ID:            ulid.Make().String(),
		UserID:        userID,
		CompanyID:     companyID,
		CapturedAt:    time.Now().UTC(),
		CaptureMethod: models.CaptureMethodStatic,
		Confidence:    0.9,
		ContentHash:   ulid.Make().String(),
		Payload:       models.PricingPayload{SourceURL: "https://acme.example.com/pricing"},
		IsVerified:    true,
	}
	if err := repos.Snapshot.Create(context.Background(), s); err != nil {
		t.Fatalf("failed to create test snapshot: %v", err)
	}
	return s
}

func TestDiffRepository_CreateAndGetByCompanyID(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	insertTestUser(t, db, "user_1")
	c := mustCreateCompany(t, repos, "user_1")
	s := mustCreateSnapshot(t, repos, "user_1", c.ID)
	ctx := context.Background()

	d := &models.Diff{
		ID:                ulid.Make().String(),
		UserID:            "user_1",
		CompanyID:         c.ID,
		CurrentSnapshotID: s.ID,
		NormalizedDiff: models.NormalizedDiff{
			Buckets: []models.BucketChange{
				{Currency: "USD", Period: models.PeriodMonth, Added: []float64{29}},
			},
			CurrentPriceCount: 1,
			ChangedAt:         time.Now().UTC(),
		},
		Severity:          models.SeverityMedium,
		VerificationState: models.VerificationVerified,
		DetectedAt:        time.Now().UTC(),
	}

	if err := repos.Diff.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repos.Diff.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got == nil || got.Severity != models.SeverityMedium {
		t.Fatalf("GetByID() = %v, want severity medium", got)
	}
	if len(got.NormalizedDiff.Buckets) != 1 || got.NormalizedDiff.Buckets[0].Added[0] != 29 {
		t.Errorf("NormalizedDiff round-trip mismatch: %+v", got.NormalizedDiff)
	}

	list, err := repos.Diff.GetByCompanyID(ctx, c.ID, 10, 0)
	if err != nil {
		t.Fatalf("GetByCompanyID() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("GetByCompanyID() returned %d diffs, want 1", len(list))
	}
}

func TestDiffRepository_GetByUserIDSince(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	insertTestUser(t, db, "user_1")
	c := mustCreateCompany(t, repos, "user_1")
	s := mustCreateSnapshot(t, repos, "user_1", c.ID)
	ctx := context.Background()

	old := &models.Diff{
		ID: ulid.Make().String(), UserID: "user_1", CompanyID: c.ID, CurrentSnapshotID: s.ID,
		NormalizedDiff: models.NormalizedDiff{ChangedAt: time.Now().UTC()},
		Severity:       models.SeverityLow, VerificationState: models.VerificationVerified,
		DetectedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	recent := &models.Diff{
		ID: ulid.Make().String(), UserID: "user_1", CompanyID: c.ID, CurrentSnapshotID: s.ID,
		NormalizedDiff: models.NormalizedDiff{ChangedAt: time.Now().UTC()},
		Severity:       models.SeverityHigh, VerificationState: models.VerificationVerified,
		DetectedAt: time.Now().UTC(),
	}
	if err := repos.Diff.Create(ctx, old); err != nil {
		t.Fatalf("Create(old) error = %v", err)
	}
	if err := repos.Diff.Create(ctx, recent); err != nil {
		t.Fatalf("Create(recent) error = %v", err)
	}

	since := time.Now().UTC().Add(-24 * time.Hour)
	got, err := repos.Diff.GetByUserIDSince(ctx, "user_1", since)
	if err != nil {
		t.Fatalf("GetByUserIDSince() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != recent.ID {
		t.Fatalf("GetByUserIDSince() = %v, want only %s", got, recent.ID)
	}
}
