package repository

import (
	"context"
	"testing"
	"time"
)

func TestWebhookEventRepository_TryClaim_PreventsDuplicateProcessing(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	lockUntil := time.Now().UTC().Add(30 * time.Second)
	claimed, err := repos.WebhookEvent.TryClaim(ctx, "evt_1", "invoice.paid", lockUntil)
	if err != nil {
		t.Fatalf("TryClaim() error = %v", err)
	}
	if !claimed {
		t.Fatal("TryClaim() = false, want true for a fresh event")
	}

	// A concurrent delivery retry for the same event, while the first is
	// still mid-flight, must not also claim it.
	again, err := repos.WebhookEvent.TryClaim(ctx, "evt_1", "invoice.paid", lockUntil)
	if err != nil {
		t.Fatalf("second TryClaim() error = %v", err)
	}
	if again {
		t.Error("second TryClaim() = true, want false while the first claim's lock is live")
	}

	if err := repos.WebhookEvent.MarkProcessed(ctx, "evt_1"); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}

	// Once processed, a stripe retry of the same event must still not
	// reclaim it — it's terminal.
	afterProcessed, err := repos.WebhookEvent.TryClaim(ctx, "evt_1", "invoice.paid", lockUntil)
	if err != nil {
		t.Fatalf("TryClaim() after processed error = %v", err)
	}
	if afterProcessed {
		t.Error("TryClaim() after processed = true, want false: already terminal")
	}

	got, err := repos.WebhookEvent.GetByID(ctx, "evt_1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got == nil || got.Status != "processed" {
		t.Errorf("GetByID() = %+v, want status=processed", got)
	}
}

func TestWebhookEventRepository_TryClaim_ReclaimsExpiredLock(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	expiredLock := time.Now().UTC().Add(-time.Minute)
	if _, err := repos.WebhookEvent.TryClaim(ctx, "evt_2", "invoice.paid", expiredLock); err != nil {
		t.Fatalf("TryClaim() error = %v", err)
	}

	claimed, err := repos.WebhookEvent.TryClaim(ctx, "evt_2", "invoice.paid", time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("reclaim TryClaim() error = %v", err)
	}
	if !claimed {
		t.Error("reclaim TryClaim() = false, want true: prior lock expired (worker likely crashed)")
	}
}

func TestWebhookEventRepository_MarkFailedAllowsRetry(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	if _, err := repos.WebhookEvent.TryClaim(ctx, "evt_3", "invoice.paid", time.Now().UTC().Add(time.Second)); err != nil {
		t.Fatalf("TryClaim() error = %v", err)
	}
	if err := repos.WebhookEvent.MarkFailed(ctx, "evt_3", "handler panicked"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	got, err := repos.WebhookEvent.GetByID(ctx, "evt_3")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != "failed" || got.LastError == nil || *got.LastError != "handler panicked" {
		t.Errorf("GetByID() = %+v, want status=failed with recorded error", got)
	}

	// A retry after failure, once the lock expires, should succeed.
	time.Sleep(1100 * time.Millisecond)
	claimed, err := repos.WebhookEvent.TryClaim(ctx, "evt_3", "invoice.paid", time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("retry TryClaim() error = %v", err)
	}
	if !claimed {
		t.Error("retry TryClaim() = false, want true: failed events are retryable once unlocked")
	}
}
