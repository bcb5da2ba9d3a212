//go:build integration

package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mimir/internal/lock"
	"mimir/pkg/platform/sentinel"
	"mimir/pkg/testutil/containers"
)

func TestRedisLocker_MutualExclusionAgainstRealRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	locker := lock.NewRedisLocker(rc.Client)
	ctx := context.Background()

	const contenders = 32
	var winners atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := locker.Acquire(ctx, "abc.com,4388,guid,SUSPENDED,PHISHING", 10*time.Second)
			if err != nil {
				assert.True(t, errors.Is(err, sentinel.ErrLockNotAcquired))
				return
			}
			winners.Add(1)
			// Hold briefly so contenders really overlap.
			time.Sleep(50 * time.Millisecond)
			assert.NoError(t, lease.Release(ctx))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, winners.Load(), "exactly one contender may hold the lock")

	// After release the key must be free again.
	lease, err := locker.Acquire(ctx, "abc.com,4388,guid,SUSPENDED,PHISHING", time.Second)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
}
