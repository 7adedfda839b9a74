// Package pipeline provides the bounded worker pool and run statistics
// shared by every stage command.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxRecordedErrors = 10

// Stats aggregates per-task outcomes across workers. Safe for concurrent
// mutation.
type Stats struct {
	mu        sync.Mutex
	Processed int
	Succeeded int
	NoData    int
	Failed    int
	errors    []error
	started   time.Time
}

// NewStats starts the run clock.
func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

// Success records one completed task.
func (s *Stats) Success() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed++
	s.Succeeded++
}

// NoDataResult records an expected absence (no 10-K, no domain). Absences
// are not errors.
func (s *Stats) NoDataResult() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed++
	s.NoData++
}

// Failure records an unexpected error, keeping the first few verbatim.
func (s *Stats) Failure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed++
	s.Failed++
	if len(s.errors) < maxRecordedErrors {
		s.errors = append(s.errors, err)
	}
}

// Errors returns the recorded errors (at most the first 10).
func (s *Stats) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.errors))
	copy(out, s.errors)
	return out
}

// LogSummary emits the per-stage closing summary.
func (s *Stats) LogSummary(stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	zap.L().Info("stage summary",
		zap.String("stage", stage),
		zap.Int("processed", s.Processed),
		zap.Int("succeeded", s.Succeeded),
		zap.Int("no_data", s.NoData),
		zap.Int("failed", s.Failed),
		zap.Duration("elapsed", time.Since(s.started)),
	)
	for i, err := range s.errors {
		zap.L().Error("stage error", zap.String("stage", stage), zap.Int("n", i+1), zap.Error(err))
	}
}

// Task processes one entity. Returning an error fails that entity only; the
// pool keeps draining.
type Task[T any] func(ctx context.Context, item T) error

// Run drains items through a bounded worker pool. Per-item errors are
// recorded in stats and not propagated; only context cancellation stops the
// run early. Each run gets a correlation id in the logs.
func Run[T any](ctx context.Context, workers int, items []T, stats *Stats, task Task[T]) error {
	if workers <= 0 {
		workers = 1
	}
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("worker pool starting", zap.Int("workers", workers), zap.Int("items", len(items)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := task(gctx, item); err != nil {
				stats.Failure(err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("worker pool cancelled", zap.Error(err))
		return err
	}
	log.Info("worker pool drained")
	return nil
}
