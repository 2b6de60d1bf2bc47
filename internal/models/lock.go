package models

import "time"

// InvocationLock is a per-named-job single-writer guard. A lock is
// considered free iff LockUntil <= now.
type InvocationLock struct {
	Key            string
	OwnerID        string
	LockUntil      time.Time
	LockedAt       time.Time
	LastReleasedAt *time.Time
}
