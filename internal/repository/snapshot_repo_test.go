package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
	"github.com/oklog/ulid/v2"
)

func mustCreateCompany(t *testing.T, repos *Repositories, userID string) *models.Company {
	t.Helper()
	c := newTestCompany(userID, models.CompanyTypeCompetitor)
	if err := repos.Company.Create(context.Background(), c); err != nil {
		t.Fatalf("failed to create test company: %v", err)
	}
	return c
}

func TestSnapshotRepository_CreateAndGetLatest(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	insertTestUser(t, db, "user_1")
	c := mustCreateCompany(t, repos, "user_1")
	ctx := context.Background()

	older := &models.Snapshot{
		ID:            ulid.Make().String(),
		UserID:        "user_1",
		CompanyID:     c.ID,
		CapturedAt:    time.Now().UTC().Add(-time.Hour),
		CaptureMethod: models.CaptureMethodStatic,
		Confidence:    0.9,
		ContentHash:   "hash-old",
		Payload:       models.PricingPayload{SourceURL: "https://acme.example.com/pricing"},
		IsVerified:    true,
	}
	newer := &models.Snapshot{
		ID:            ulid.Make().String(),
		UserID:        "user_1",
		CompanyID:     c.ID,
		CapturedAt:    time.Now().UTC(),
		CaptureMethod: models.CaptureMethodStatic,
		Confidence:    0.95,
		ContentHash:   "hash-new",
		Payload: models.PricingPayload{
			SourceURL:     "https://acme.example.com/pricing",
			PriceMentions: []models.PriceMention{{Amount: 29, Currency: "USD", Period: models.PeriodMonth}},
		},
		IsVerified: true,
	}

	if err := repos.Snapshot.Create(ctx, older); err != nil {
		t.Fatalf("Create(older) error = %v", err)
	}
	if err := repos.Snapshot.Create(ctx, newer); err != nil {
		t.Fatalf("Create(newer) error = %v", err)
	}

	got, err := repos.Snapshot.GetLatestByCompanyID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetLatestByCompanyID() error = %v", err)
	}
	if got == nil || got.ID != newer.ID {
		t.Fatalf("GetLatestByCompanyID() = %v, want %s", got, newer.ID)
	}
	if len(got.Payload.PriceMentions) != 1 || got.Payload.PriceMentions[0].Amount != 29 {
		t.Errorf("Payload round-trip mismatch: %+v", got.Payload)
	}
}
