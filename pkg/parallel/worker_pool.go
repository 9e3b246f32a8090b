// Package parallel provides generic parallel processing utilities.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ============================================================================
// Worker Pool Configuration
// ============================================================================

// DefaultWorkers returns the default number of workers: the CPU count, but
// never fewer than two so a producer and a consumer can always make progress.
func DefaultWorkers() int {
	return max(runtime.NumCPU(), 2)
}

// PoolConfig configures the worker pool behavior.
type PoolConfig struct {
	// Workers is the number of concurrent workers.
	// Default: max(runtime.NumCPU(), 2)
	Workers int

	// CollectMetrics enables collection of execution metrics.
	CollectMetrics bool
}

// DefaultPoolConfig returns a default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{Workers: DefaultWorkers()}
}

// WithWorkers returns a new config with the specified number of workers.
func (c PoolConfig) WithWorkers(n int) PoolConfig {
	c.Workers = n
	return c
}

// WithMetrics returns a new config with metrics collection enabled.
func (c PoolConfig) WithMetrics() PoolConfig {
	c.CollectMetrics = true
	return c
}

// ============================================================================
// Execution Metrics
// ============================================================================

// PoolMetrics holds execution statistics.
type PoolMetrics struct {
	Workers       int
	Succeeded     int
	Failed        int
	Panicked      int
	TotalDuration time.Duration
	MaxWorkerTime time.Duration
}

// ============================================================================
// Worker Result
// ============================================================================

// WorkerResult holds what one worker returned.
type WorkerResult[R any] struct {
	WorkerID int
	Result   R
	Error    error
	Panicked bool
	Duration time.Duration
}

// PanicError is the error recorded for a worker that panicked.
type PanicError struct {
	WorkerID int
	Value    interface{}
	Stack    []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker %d panicked: %v", e.WorkerID, e.Value)
}

// ============================================================================
// Worker Pool
// ============================================================================

// WorkerPool runs a fixed number of long-lived workers that share one input
// (typically a queue) and each return a private result.
type WorkerPool[R any] struct {
	config  PoolConfig
	metrics PoolMetrics
	mu      sync.Mutex
}

// NewWorkerPool creates a new worker pool with the given configuration.
func NewWorkerPool[R any](config PoolConfig) *WorkerPool[R] {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers()
	}
	return &WorkerPool[R]{config: config}
}

// Workers returns the configured worker count.
func (p *WorkerPool[R]) Workers() int {
	return p.config.Workers
}

// Run starts every worker, waits for all of them to return and reports their
// results indexed by worker id. A panicking worker is recorded as a failed
// result carrying a *PanicError; the remaining workers keep running.
func (p *WorkerPool[R]) Run(ctx context.Context, fn func(ctx context.Context, workerID int) (R, error)) []WorkerResult[R] {
	start := time.Now()
	results := make([]WorkerResult[R], p.config.Workers)

	var wg sync.WaitGroup
	for w := 0; w < p.config.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			results[workerID] = runOne(ctx, workerID, fn)
		}(w)
	}
	wg.Wait()

	if p.config.CollectMetrics {
		p.updateMetrics(results, time.Since(start))
	}
	return results
}

func runOne[R any](ctx context.Context, workerID int, fn func(ctx context.Context, workerID int) (R, error)) (res WorkerResult[R]) {
	res.WorkerID = workerID
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			var zero R
			res.Result = zero
			res.Panicked = true
			res.Error = &PanicError{WorkerID: workerID, Value: r, Stack: debug.Stack()}
		}
	}()

	res.Result, res.Error = fn(ctx, workerID)
	return res
}

func (p *WorkerPool[R]) updateMetrics(results []WorkerResult[R], total time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := PoolMetrics{Workers: len(results), TotalDuration: total}
	for _, r := range results {
		switch {
		case r.Panicked:
			m.Panicked++
			m.Failed++
		case r.Error != nil:
			m.Failed++
		default:
			m.Succeeded++
		}
		if r.Duration > m.MaxWorkerTime {
			m.MaxWorkerTime = r.Duration
		}
	}
	p.metrics = m
}

// Metrics returns the metrics of the last run.
func (p *WorkerPool[R]) Metrics() PoolMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// RunWorkers is a convenience wrapper running n workers with a default pool.
func RunWorkers[R any](ctx context.Context, n int, fn func(ctx context.Context, workerID int) (R, error)) []WorkerResult[R] {
	return NewWorkerPool[R](PoolConfig{Workers: n}).Run(ctx, fn)
}

// FirstError returns the error of the lowest-numbered failed worker.
func FirstError[R any](results []WorkerResult[R]) error {
	for _, r := range results {
		if r.Error != nil {
			return r.Error
		}
	}
	return nil
}

// Collect returns the results of all workers, or the first error if any failed.
func Collect[R any](results []WorkerResult[R]) ([]R, error) {
	if err := FirstError(results); err != nil {
		return nil, err
	}
	out := make([]R, len(results))
	for i, r := range results {
		out[i] = r.Result
	}
	return out, nil
}

// ============================================================================
// Progress Tracking
// ============================================================================

// ProgressTracker periodically reports a completed counter.
// Total may be zero when the size of the stream is unknown.
type ProgressTracker struct {
	total     int64
	completed atomic.Int64
	callback  func(completed, total int64)
	interval  time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   atomic.Bool
	stopped   atomic.Bool
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker(total int64, callback func(completed, total int64), interval time.Duration) *ProgressTracker {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &ProgressTracker{
		total:    total,
		callback: callback,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins progress tracking in a background goroutine.
func (pt *ProgressTracker) Start(ctx context.Context) {
	if !pt.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(pt.doneCh)
		ticker := time.NewTicker(pt.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pt.stopCh:
				return
			case <-ticker.C:
				if pt.callback != nil {
					pt.callback(pt.completed.Load(), pt.total)
				}
			}
		}
	}()
}

// Increment increments the completed count.
func (pt *ProgressTracker) Increment() {
	pt.completed.Add(1)
}

// Add adds n to the completed count.
func (pt *ProgressTracker) Add(n int64) {
	pt.completed.Add(n)
}

// Stop stops progress tracking and waits for the reporting goroutine to exit.
func (pt *ProgressTracker) Stop() {
	if pt.stopped.CompareAndSwap(false, true) {
		close(pt.stopCh)
	}
	if pt.started.Load() {
		<-pt.doneCh
	}
}

// Completed returns the current completed count.
func (pt *ProgressTracker) Completed() int64 {
	return pt.completed.Load()
}
