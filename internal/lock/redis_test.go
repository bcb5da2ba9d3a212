package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"mimir/pkg/platform/sentinel"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client), mr
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "example.com,4388,,CUSTOMER_WARNING,PHISHING", 10*time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !mr.Exists("lock:infraction:example.com,4388,,CUSTOMER_WARNING,PHISHING") {
		t.Fatalf("expected lock key to exist in redis")
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if mr.Exists("lock:infraction:example.com,4388,,CUSTOMER_WARNING,PHISHING") {
		t.Fatalf("expected lock key to be deleted after release")
	}
}

func TestRedisLockerContention(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "contended", 30*time.Second)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer func() { _ = lease.Release(ctx) }()

	if _, err := locker.Acquire(ctx, "contended", 30*time.Second); !errors.Is(err, sentinel.ErrLockNotAcquired) {
		t.Fatalf("expected ErrLockNotAcquired, got %v", err)
	}

	// A different key proceeds in parallel.
	other, err := locker.Acquire(ctx, "unrelated", 30*time.Second)
	if err != nil {
		t.Fatalf("acquire on distinct key failed: %v", err)
	}
	_ = other.Release(ctx)
}

func TestRedisLockerTTLExpiry(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "crashy", 10*time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// Simulate a crashed holder: the TTL elapses without a release.
	mr.FastForward(11 * time.Second)

	fresh, err := locker.Acquire(ctx, "crashy", 10*time.Second)
	if err != nil {
		t.Fatalf("acquire after TTL expiry failed: %v", err)
	}

	// The stale lease must not delete the new holder's key.
	if err := stale.Release(ctx); err != nil {
		t.Fatalf("stale release errored: %v", err)
	}
	if !mr.Exists("lock:infraction:crashy") {
		t.Fatalf("stale release removed the fresh holder's lock")
	}
	_ = fresh.Release(ctx)
}

func TestRedisLockerBackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	locker := NewRedisLocker(client)
	mr.Close()

	if _, err := locker.Acquire(context.Background(), "any", 10*time.Second); !errors.Is(err, sentinel.ErrLockNotAcquired) {
		t.Fatalf("expected ErrLockNotAcquired when backend is down, got %v", err)
	}
}
