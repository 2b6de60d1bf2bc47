package repository

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitRepository_Increment_SameWindowAccumulates(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	count1, expires1, err := repos.RateLimit.Increment(ctx, "digest:user_1", time.Minute)
	if err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if count1 != 1 {
		t.Errorf("count1 = %d, want 1", count1)
	}

	count2, expires2, err := repos.RateLimit.Increment(ctx, "digest:user_1", time.Minute)
	if err != nil {
		t.Fatalf("second Increment() error = %v", err)
	}
	if count2 != 2 {
		t.Errorf("count2 = %d, want 2", count2)
	}
	if !expires2.Equal(expires1) {
		t.Errorf("expires2 = %v, want unchanged window expiry %v", expires2, expires1)
	}
}

func TestRateLimitRepository_Increment_NewWindowAfterExpiry(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	if _, _, err := repos.RateLimit.Increment(ctx, "digest:user_2", 500*time.Millisecond); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}

	time.Sleep(600 * time.Millisecond)

	count, _, err := repos.RateLimit.Increment(ctx, "digest:user_2", time.Minute)
	if err != nil {
		t.Fatalf("second Increment() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1: prior window had expired", count)
	}
}
