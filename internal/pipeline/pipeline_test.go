package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_DrainsAllItems(t *testing.T) {
	var processed atomic.Int64
	stats := NewStats()

	err := Run(context.Background(), 4, []int{1, 2, 3, 4, 5}, stats, func(_ context.Context, item int) error {
		processed.Add(1)
		stats.Success()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(5), processed.Load())
	assert.Equal(t, 5, stats.Succeeded)
}

func TestRun_PerItemErrorDoesNotStopPool(t *testing.T) {
	stats := NewStats()

	err := Run(context.Background(), 2, []int{1, 2, 3, 4}, stats, func(_ context.Context, item int) error {
		if item%2 == 0 {
			return eris.Errorf("item %d failed", item)
		}
		stats.Success()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Len(t, stats.Errors(), 2)
}

func TestRun_CancellationStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var processed atomic.Int64
	err := Run(ctx, 1, []int{1, 2, 3}, NewStats(), func(_ context.Context, _ int) error {
		processed.Add(1)
		return nil
	})

	require.Error(t, err)
	assert.Zero(t, processed.Load())
}

func TestRun_BoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int64
	var mu sync.Mutex

	err := Run(context.Background(), 2, make([]int, 20), NewStats(), func(_ context.Context, _ int) error {
		n := current.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		current.Add(-1)
		return nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestStats_KeepsFirstTenErrors(t *testing.T) {
	stats := NewStats()
	for i := 0; i < 15; i++ {
		stats.Failure(eris.Errorf("error %d", i))
	}

	assert.Equal(t, 15, stats.Failed)
	assert.Equal(t, 15, stats.Processed)
	assert.Len(t, stats.Errors(), 10)
}

func TestStats_NoDataIsNotFailure(t *testing.T) {
	stats := NewStats()
	stats.NoDataResult()
	stats.Success()

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.NoData)
	assert.Zero(t, stats.Failed)
	assert.Empty(t, stats.Errors())
}
