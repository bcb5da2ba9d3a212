package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mimir/pkg/platform/sentinel"
)

func TestMemoryLockerMutualExclusion(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "k1", time.Minute)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	if _, err := locker.Acquire(ctx, "k1", time.Minute); !errors.Is(err, sentinel.ErrLockNotAcquired) {
		t.Fatalf("expected ErrLockNotAcquired for held key, got %v", err)
	}

	// A different key is independent.
	other, err := locker.Acquire(ctx, "k2", time.Minute)
	if err != nil {
		t.Fatalf("acquire on distinct key failed: %v", err)
	}
	_ = other.Release(ctx)

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if _, err := locker.Acquire(ctx, "k1", time.Minute); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
}

func TestMemoryLockerTTLExpiry(t *testing.T) {
	locker := NewMemoryLocker()
	now := time.Now()
	locker.clock = func() time.Time { return now }
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "k1", 10*time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// After the TTL elapses the key is up for grabs again.
	now = now.Add(11 * time.Second)
	fresh, err := locker.Acquire(ctx, "k1", 10*time.Second)
	if err != nil {
		t.Fatalf("acquire after expiry failed: %v", err)
	}

	// The stale lease must not release the new holder's lock.
	if err := stale.Release(ctx); err != nil {
		t.Fatalf("stale release errored: %v", err)
	}
	if _, err := locker.Acquire(ctx, "k1", 10*time.Second); !errors.Is(err, sentinel.ErrLockNotAcquired) {
		t.Fatalf("expected fresh lease to still hold the lock, got %v", err)
	}
	_ = fresh.Release(ctx)
}

func TestMemoryLockerConcurrentAcquire(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()
	const goroutines = 32

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := locker.Acquire(ctx, "contended", time.Minute); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}
