package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
	"github.com/oklog/ulid/v2"
)

func TestAuditRepository_RecordAndGetByUserID(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	e := &models.AuditEvent{
		ID:        ulid.Make().String(),
		UserID:    "user_1",
		EventType: "crawl_blocked",
		Outcome:   models.AuditOutcomeFailure,
		Metadata:  map[string]string{"reason": "cloudflare_challenge"},
		CreatedAt: time.Now().UTC(),
	}
	if err := repos.Audit.Record(ctx, e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := repos.Audit.GetByUserID(ctx, "user_1", 10, 0)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if len(got) != 1 || got[0].EventType != "crawl_blocked" {
		t.Fatalf("GetByUserID() = %v, want one crawl_blocked event", got)
	}
	if got[0].Metadata["reason"] != "cloudflare_challenge" {
		t.Errorf("Metadata = %v, want reason=cloudflare_challenge", got[0].Metadata)
	}
}
