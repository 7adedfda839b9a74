package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoVal_SucceedsFirstTry(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), fastConfig(), func(context.Context) (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 1, calls)
}

func TestDoVal_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), fastConfig(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(eris.New("503"), 503)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestDoVal_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastConfig(), func(context.Context) (int, error) {
		calls++
		return 0, eris.New("malformed response")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_NotFoundNeverRetried(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastConfig(), func(context.Context) (int, error) {
		calls++
		return 0, eris.Wrap(ErrNotFound, "no 10-K for cik")
	})

	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	calls := 0
	onRetry := 0
	cfg := fastConfig()
	cfg.OnRetry = func(int, error) { onRetry++ }

	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, NewTransientError(eris.New("timeout"), 0)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, onRetry)
}

func TestDoVal_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, fastConfig(), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(eris.New("reset"), 0)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_WrapsDoVal(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(ErrNotFound))
	assert.False(t, IsTransient(errors.New("schema violation")))
	assert.True(t, IsTransient(NewTransientError(errors.New("429 rate limited"), 429)))
	assert.True(t, IsTransient(errors.New("read tcp: connection reset by peer")))
	assert.True(t, IsTransient(errors.New("dial tcp: i/o timeout")))
	assert.True(t, IsTransient(eris.Wrap(NewTransientError(errors.New("502"), 502), "fetch failed")))
}

func TestComputeBackoff_CappedAndNonNegative(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     4 * time.Second,
		Multiplier:     10,
	})
	assert.Equal(t, 4*time.Second, computeBackoff(5, cfg))

	cfg.JitterFraction = 1.0
	for i := 0; i < 20; i++ {
		assert.GreaterOrEqual(t, computeBackoff(0, cfg), time.Duration(0))
	}
}
