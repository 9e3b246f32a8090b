// Package analyzer aggregates per-category storage statistics from a record
// stream using a fixed pool of workers.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/storage-analysis/internal/prefix"
	"github.com/storage-analysis/internal/queue"
	"github.com/storage-analysis/internal/statistics"
	"github.com/storage-analysis/pkg/compression"
	apperrors "github.com/storage-analysis/pkg/errors"
	"github.com/storage-analysis/pkg/parallel"
	"github.com/storage-analysis/pkg/telemetry"
	"github.com/storage-analysis/pkg/utils"
)

// DefaultBackoff is how long a worker sleeps when the queue is empty but open.
const DefaultBackoff = time.Millisecond

// Analyzer classifies and measures every record of a queue.
type Analyzer struct {
	index     *prefix.Index
	estimator compression.Estimator
	workers   int
	backoff   time.Duration
	logger    utils.Logger
	clock     utils.Clock

	progressFn       func(done int64)
	progressInterval time.Duration
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWorkers sets the worker count. Non-positive values keep the default.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithBackoff sets the empty-queue sleep.
func WithBackoff(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.backoff = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithClock sets the clock used for backoff and timing.
func WithClock(clock utils.Clock) Option {
	return func(a *Analyzer) {
		a.clock = clock
	}
}

// WithProgress reports the number of processed records every interval.
func WithProgress(interval time.Duration, fn func(done int64)) Option {
	return func(a *Analyzer) {
		a.progressInterval = interval
		a.progressFn = fn
	}
}

// New creates an Analyzer. A nil estimator selects the default deflate one.
func New(index *prefix.Index, estimator compression.Estimator, opts ...Option) *Analyzer {
	if estimator == nil {
		estimator = compression.Default()
	}
	a := &Analyzer{
		index:     index,
		estimator: estimator,
		workers:   parallel.DefaultWorkers(),
		backoff:   DefaultBackoff,
		logger:    &utils.NullLogger{},
		clock:     utils.NewRealClock(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Workers returns the number of workers Run starts.
func (a *Analyzer) Workers() int {
	return a.workers
}

// Measure returns the raw and estimated compressed sizes of rec.
func (a *Analyzer) Measure(rec queue.Record) statistics.Measurement {
	return statistics.Measurement{
		KeyLen:             uint64(len(rec.Key)),
		CompressedKeyLen:   uint64(a.estimator.Size(rec.Key)),
		ValueLen:           uint64(len(rec.Value)),
		CompressedValueLen: uint64(a.estimator.Size(rec.Value)),
	}
}

// Run consumes q until the producer closes it and returns the merged
// statistics. Each worker accumulates into a private result; the partial
// results are merged once every worker has stopped. If any worker fails the
// whole run fails and no result is returned.
func (a *Analyzer) Run(ctx context.Context, q *queue.Queue) (statistics.Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "analyzer.run",
		attribute.Int("workers", a.workers),
		attribute.String("estimator", a.estimator.Name()),
	)

	tracker := parallel.NewProgressTracker(0, func(done, _ int64) {
		if a.progressFn != nil {
			a.progressFn(done)
		}
	}, a.progressInterval)
	if a.progressFn != nil {
		tracker.Start(ctx)
	}

	start := a.clock.Now()
	a.logger.Info("Starting %d workers", a.workers)

	results := parallel.RunWorkers(ctx, a.workers, func(ctx context.Context, workerID int) (statistics.Result, error) {
		return a.work(workerID, q, tracker), nil
	})
	tracker.Stop()

	parts := make([]statistics.Result, 0, len(results))
	for _, r := range results {
		if r.Error != nil {
			err := apperrors.Wrap(apperrors.CodeWorkerFailed, fmt.Sprintf("worker %d aborted", r.WorkerID), r.Error)
			a.logger.Error("Worker %d failed: %v", r.WorkerID, r.Error)
			telemetry.EndSpan(span, err)
			return nil, err
		}
		parts = append(parts, r.Result)
	}

	merged := statistics.MergeAll(parts...)
	processed := tracker.Completed()
	a.logger.Info("Processed %d records in %v", processed, a.clock.Since(start))
	span.SetAttributes(
		attribute.Int64("records", processed),
		attribute.Int("categories", len(merged)),
	)
	telemetry.EndSpan(span, nil)
	return merged, nil
}

func (a *Analyzer) work(workerID int, q *queue.Queue, tracker *parallel.ProgressTracker) statistics.Result {
	local := statistics.NewResult()
	for {
		rec, state := q.Poll()
		switch state {
		case queue.PollItem:
			local.Observe(a.index.Categorize(rec.Key), a.Measure(rec))
			tracker.Increment()
		case queue.PollEmpty:
			a.clock.Sleep(a.backoff)
		case queue.PollClosed:
			a.logger.Debug("Worker %d finished with %d categories", workerID, len(local))
			return local
		}
	}
}
