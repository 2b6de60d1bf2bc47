package repository

import (
	"context"
	"testing"
	"time"
)

func TestLockRepository_AcquireAndRelease(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	until := time.Now().UTC().Add(10 * time.Minute)
	lock, err := repos.Lock.Acquire(ctx, "crawl-batch", "worker-a", until)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if lock == nil {
		t.Fatal("Acquire() = nil, want a lock")
	}
	if lock.OwnerID != "worker-a" {
		t.Errorf("OwnerID = %s, want worker-a", lock.OwnerID)
	}

	// A second worker cannot acquire while the lease is live.
	contender, err := repos.Lock.Acquire(ctx, "crawl-batch", "worker-b", until)
	if err != nil {
		t.Fatalf("contender Acquire() error = %v", err)
	}
	if contender != nil {
		t.Errorf("contender Acquire() = %v, want nil while held", contender)
	}

	released, err := repos.Lock.Release(ctx, "crawl-batch", "worker-a")
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if !released {
		t.Error("Release() = false, want true for the holding owner")
	}

	// Now worker-b can acquire.
	lock2, err := repos.Lock.Acquire(ctx, "crawl-batch", "worker-b", until)
	if err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if lock2 == nil || lock2.OwnerID != "worker-b" {
		t.Errorf("second Acquire() = %v, want worker-b", lock2)
	}
}

func TestLockRepository_ReleaseWrongOwnerFails(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	until := time.Now().UTC().Add(10 * time.Minute)
	if _, err := repos.Lock.Acquire(ctx, "digest-job", "worker-a", until); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	released, err := repos.Lock.Release(ctx, "digest-job", "worker-b")
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if released {
		t.Error("Release() = true, want false: worker-b never held the lock")
	}
}

func TestLockRepository_GetByKey(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	if lock, err := repos.Lock.GetByKey(ctx, "never-acquired"); err != nil {
		t.Fatalf("GetByKey() error = %v", err)
	} else if lock != nil {
		t.Errorf("GetByKey() = %v, want nil for a never-acquired key", lock)
	}

	until := time.Now().UTC().Add(10 * time.Minute)
	if _, err := repos.Lock.Acquire(ctx, "crawl-batch", "worker-a", until); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	lock, err := repos.Lock.GetByKey(ctx, "crawl-batch")
	if err != nil {
		t.Fatalf("GetByKey() error = %v", err)
	}
	if lock == nil || lock.OwnerID != "worker-a" {
		t.Errorf("GetByKey() = %v, want the held lock owned by worker-a", lock)
	}
}

func TestLockRepository_AcquireReclaimsExpired(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	expired := time.Now().UTC().Add(-time.Minute)
	if _, err := repos.Lock.Acquire(ctx, "crawl-batch", "worker-a", expired); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	until := time.Now().UTC().Add(10 * time.Minute)
	lock, err := repos.Lock.Acquire(ctx, "crawl-batch", "worker-b", until)
	if err != nil {
		t.Fatalf("reclaim Acquire() error = %v", err)
	}
	if lock == nil || lock.OwnerID != "worker-b" {
		t.Errorf("reclaim Acquire() = %v, want worker-b to win an expired lease", lock)
	}
}
