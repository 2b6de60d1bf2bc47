// Package cronlock wraps repository.LockRepository with the
// acquire-with-fenced-owner, guaranteed-release pattern the scheduler
// entrypoints need: scoped acquisition with deferred release.
package cronlock

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Rubayet19/price-tracker/internal/repository"
)

// Names of the two invocation locks the scheduler entrypoints take.
const (
	KeyCrawl  = "cron:crawl"
	KeyDigest = "cron:digest"
)

// AcquireResult mirrors the two shapes an acquire attempt can return.
type AcquireResult struct {
	Acquired          bool
	OwnerID           string
	LockUntil         time.Time
	RetryAfterSeconds int
}

// Acquire attempts the named lock with a freshly minted owner id.
func Acquire(ctx context.Context, locks repository.LockRepository, key string, ttl time.Duration) (AcquireResult, error) {
	ownerID := ulid.Make().String()
	now := time.Now().UTC()
	until := now.Add(ttl)

	lock, err := locks.Acquire(ctx, key, ownerID, until)
	if err != nil {
		return AcquireResult{}, err
	}
	if lock == nil {
		held, err := locks.GetByKey(ctx, key)
		if err != nil {
			return AcquireResult{}, err
		}
		if held == nil {
			// Lost a race against another acquirer that has since released;
			// fall back to a full-ttl retry window.
			return AcquireResult{Acquired: false, RetryAfterSeconds: int(ttl.Seconds())}, nil
		}
		retryAfter := int(time.Until(held.LockUntil).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		return AcquireResult{Acquired: false, LockUntil: held.LockUntil, RetryAfterSeconds: retryAfter}, nil
	}
	return AcquireResult{Acquired: true, OwnerID: lock.OwnerID, LockUntil: lock.LockUntil}, nil
}

// WithLock runs fn only if the named lock is acquired, and releases it on
// every exit path — including a panic inside fn: the deferred release runs
// while the panic unwinds, and the panic itself is not recovered, so the
// caller's own recovery still sees it.
func WithLock(ctx context.Context, locks repository.LockRepository, key string, ttl time.Duration, fn func(ctx context.Context) error) (acquired bool, retryAfterSeconds int, lockUntil time.Time, err error) {
	res, err := Acquire(ctx, locks, key, ttl)
	if err != nil {
		return false, 0, time.Time{}, err
	}
	if !res.Acquired {
		return false, res.RetryAfterSeconds, res.LockUntil, nil
	}

	defer func() {
		// Release is best-effort on the way out; a failed release just
		// means the lock falls back to expiring on its own TTL.
		_, _ = locks.Release(context.WithoutCancel(ctx), key, res.OwnerID)
	}()

	err = fn(ctx)
	return true, 0, time.Time{}, err
}
