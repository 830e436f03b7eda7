// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/tubescribe/core"
	"github.com/poiesic/tubescribe/metrics"
)

// Dispatcher defaults.
const (
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = time.Second

	// FailureMessage is shown when every attempt failed. Raw errors are logged, never shown.
	FailureMessage = "Processing failed. Please try again."
)

// Processor ingests one source.
type Processor interface {
	Process(ctx context.Context, sourceID string) (*core.Outcome, error)
}

// Dispatcher runs ingestion jobs on a worker pool with retries.
type Dispatcher struct {
	processor Processor
	pool      *ants.Pool
	retry     RetryPolicy
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// mu orders Submit's pending.Add before Release's pending.Wait.
	mu       sync.Mutex
	released bool
	pending  sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher) error

// WithPoolSize sets the number of concurrent jobs.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) DispatcherOption {
	return func(d *Dispatcher) error {
		if size < 1 {
			size = 1
		}
		if d.pool != nil {
			d.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		d.pool = pool
		return nil
	}
}

// WithRetries sets the number of retries after the first attempt and the
// delay before the first retry. Later retries double the delay.
func WithRetries(maxRetries int, baseDelay time.Duration) DispatcherOption {
	return func(d *Dispatcher) error {
		policy := RetryPolicy{MaxRetries: maxRetries, BaseDelay: baseDelay}
		if err := policy.Validate(); err != nil {
			return err
		}
		d.retry = policy
		return nil
	}
}

// WithDispatcherMetrics records job counts and durations.
func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) error {
		d.metrics = m
		return nil
	}
}

// WithDispatcherLogger sets a custom logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// NewDispatcher creates a dispatcher running processor.
func NewDispatcher(processor Processor, opts ...DispatcherOption) (*Dispatcher, error) {
	if processor == nil {
		return nil, ErrProcessorRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		processor: processor,
		pool:      pool,
		retry:     DefaultRetryPolicy,
		logger:    slog.Default().With("component", "dispatcher"),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			d.pool.Release()
			return nil, err
		}
	}
	return d, nil
}

// Submit queues an ingestion job for sourceID and returns at once. The job
// runs detached from any caller and cannot be cancelled.
func (d *Dispatcher) Submit(sourceID string) (*Job, error) {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return nil, ErrDispatcherReleased
	}
	d.pending.Add(1)
	d.mu.Unlock()

	job := newJob(sourceID)
	go func() {
		defer d.pending.Done()
		err := d.pool.Submit(func() { d.run(job) })
		if err != nil {
			d.logger.Error("failed to schedule job", "source_id", sourceID, "error", err)
			job.finish(core.Failed(FailureMessage))
		}
	}()
	return job, nil
}

// run executes job with retries and always finishes it.
func (d *Dispatcher) run(job *Job) {
	start := time.Now()
	d.metrics.RecordJobStart()

	outcome := core.Failed(FailureMessage)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("job panicked", "source_id", job.SourceID, "panic", r)
			outcome = core.Failed(FailureMessage)
		}
		d.metrics.RecordJobEnd(string(outcome.Status), outcome.Cached, time.Since(start))
		job.finish(outcome)
	}()

	attempts, err := d.retry.Do(context.Background(), func(ctx context.Context, attempt int) error {
		d.metrics.RecordAttempt()
		result, err := d.processor.Process(ctx, job.SourceID)
		if err != nil {
			d.logger.Warn("ingestion attempt failed", "source_id", job.SourceID, "attempt", attempt, "error", err)
			return err
		}
		if result != nil {
			outcome = result
		}
		return nil
	})
	if err != nil {
		d.logger.Error("ingestion failed", "source_id", job.SourceID, "attempts", attempts, "error", err)
		outcome = core.Failed(FailureMessage)
		return
	}
	if attempts > 1 {
		d.logger.Info("ingestion succeeded after retry", "source_id", job.SourceID, "attempts", attempts)
	}
}

// Release stops accepting jobs, waits for queued jobs to be scheduled and
// releases the worker pool. Jobs already running finish on their own.
func (d *Dispatcher) Release() {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return
	}
	d.released = true
	d.mu.Unlock()

	d.pending.Wait()
	d.pool.Release()
}

// Job is a submitted ingestion.
type Job struct {
	SourceID string

	done    chan struct{}
	once    sync.Once
	outcome *core.Outcome
}

func newJob(sourceID string) *Job {
	return &Job{SourceID: sourceID, done: make(chan struct{})}
}

func (j *Job) finish(outcome *core.Outcome) {
	j.once.Do(func() {
		j.outcome = outcome
		close(j.done)
	})
}

// Done is closed when the job has an outcome.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Outcome returns the final outcome, or nil while the job is running.
func (j *Job) Outcome() *core.Outcome {
	select {
	case <-j.done:
		return j.outcome
	default:
		return nil
	}
}

// Wait blocks until the job finishes, timeout elapses or ctx is done.
// A timeout returns ErrStillProcessing; the job keeps running either way.
func (j *Job) Wait(ctx context.Context, timeout time.Duration) (*core.Outcome, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-j.done:
		return j.outcome, nil
	case <-timer.C:
		return nil, ErrStillProcessing
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
