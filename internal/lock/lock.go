package lock

import (
	"context"
	"time"
)

// Locker grants mutual exclusion on an arbitrary string key with a
// time-to-live. The submission engine keys locks by the composite key of
// the incoming infraction so concurrent submissions of the same logical
// event serialize, while unrelated submissions proceed in parallel.
//
// Implementations must guarantee at most one holder per key at a time and
// auto-expire a lease whose holder never releases it, so a crashed writer
// cannot deadlock future writers on the same key.
type Locker interface {
	// Acquire obtains the lock for key or fails with
	// sentinel.ErrLockNotAcquired (possibly wrapped). It never blocks past
	// the context deadline. Callers must Release the returned lease on
	// every exit path.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock. Release is idempotent: releasing an already
// expired or released lease is a no-op.
type Lease interface {
	Release(ctx context.Context) error
}
