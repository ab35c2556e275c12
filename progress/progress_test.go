package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_Update(t *testing.T) {
	var mu sync.Mutex
	var seen []Snapshot
	ctx, tracker := WithNewTracker(context.Background(), "bulk.approve", func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	UpdateCtx(ctx, Delta{Total: 10})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			UpdateCtx(ctx, Delta{Running: 1})
			if i%3 == 0 {
				UpdateCtx(ctx, Delta{Running: -1, Failed: 1})
				return
			}
			UpdateCtx(ctx, Delta{Running: -1, Succeeded: 1})
		}()
	}
	wg.Wait()

	snapshot := tracker.Snapshot()
	assert.Equal(t, "bulk.approve", snapshot.Operation)
	assert.Equal(t, 10, snapshot.Total)
	assert.Equal(t, 6, snapshot.Succeeded)
	assert.Equal(t, 4, snapshot.Failed)
	assert.True(t, snapshot.Done())
	mu.Lock()
	assert.Len(t, seen, 21)
	mu.Unlock()
}

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	UpdateCtx(context.Background(), Delta{Total: 1})

	var tracker *Progress
	tracker.Update(Delta{Total: 1})
	assert.Equal(t, Snapshot{}, tracker.Snapshot())

	ctx, created := WithNewTracker(context.Background(), "fanout", nil)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, created, got)
	assert.True(t, got.Snapshot().Done())
}
