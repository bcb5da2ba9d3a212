package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "mimir/pkg/platform/audit"
	"mimir/pkg/platform/audit/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	sink := memory.NewInMemorySink()
	pub := NewPublisher(sink)
	defer pub.Close()

	event := audit.Event{
		Action:    audit.ActionInfractionRecorded,
		ShopperID: "4388",
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionInfractionRecorded, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_AsyncMode(t *testing.T) {
	sink := memory.NewInMemorySink()
	pub := NewPublisher(sink, WithAsyncBuffer(10))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Action:    audit.ActionInfractionDuplicate,
		ShopperID: "4388",
	})
	require.NoError(t, err)

	// Wait for async processing
	time.Sleep(100 * time.Millisecond)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionInfractionDuplicate, events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	sink := memory.NewInMemorySink()
	pub := NewPublisher(sink, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Action: audit.ActionNoteRecorded,
		})
		require.NoError(t, err)
	}

	// Close should drain all events
	pub.Close()

	assert.Len(t, sink.Events(), 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	sink := memory.NewInMemorySink()
	pub := NewPublisher(sink, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{
				Action: audit.ActionInfractionRecorded,
			})
			assert.NoError(t, err, "emit must never block or fail when buffer is full")
		}()
	}
	wg.Wait()
}
