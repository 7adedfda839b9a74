package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and jitter.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first try.
	MaxAttempts int

	// InitialBackoff is the base delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration.
	MaxBackoff time.Duration

	// Multiplier scales the backoff after each attempt.
	Multiplier float64

	// JitterFraction adds random jitter as a fraction of the computed delay.
	JitterFraction float64

	// ShouldRetry overrides the default transient-error check when non-nil.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)
}

// FreeConfig returns the retry budget for free provider paths: up to 3 retries.
func FreeConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    4,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// PaidConfig returns the retry budget for billed provider paths: at most one
// retry, so a transient fault cannot double the spend more than once.
func PaidConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// DoVal executes fn with retry logic, preserving the value from the
// successful call. Only transient errors are retried; context cancellation
// stops retries immediately.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		delay := computeBackoff(attempt, cfg)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// Do executes fn with retry logic. Same semantics as DoVal without a value.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}

	if cfg.JitterFraction > 0 {
		jitterRange := delay * cfg.JitterFraction
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
