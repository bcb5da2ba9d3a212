package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mimir/pkg/platform/sentinel"
)

// MemoryLocker is a process-local Locker for tests and single-instance
// development. It honors TTL expiry so lease semantics match the Redis
// implementation.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held:  make(map[string]time.Time),
		clock: time.Now,
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire %q: %w: %w", key, sentinel.ErrLockNotAcquired, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expiry, ok := l.held[key]; ok && now.Before(expiry) {
		return nil, fmt.Errorf("acquire %q: %w: held elsewhere", key, sentinel.ErrLockNotAcquired)
	}
	l.held[key] = now.Add(ttl)
	return &memoryLease{locker: l, key: key, expiry: l.held[key]}, nil
}

type memoryLease struct {
	locker *MemoryLocker
	key    string
	expiry time.Time
}

func (m *memoryLease) Release(_ context.Context) error {
	m.locker.mu.Lock()
	defer m.locker.mu.Unlock()
	// Only release if the entry is still ours; a TTL takeover must not be
	// released by the previous holder.
	if expiry, ok := m.locker.held[m.key]; ok && expiry.Equal(m.expiry) {
		delete(m.locker.held, m.key)
	}
	return nil
}
