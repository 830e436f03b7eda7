package ingestion

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/tubescribe/core"
	"github.com/poiesic/tubescribe/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type processorFunc func(ctx context.Context, sourceID string) (*core.Outcome, error)

func (f processorFunc) Process(ctx context.Context, sourceID string) (*core.Outcome, error) {
	return f(ctx, sourceID)
}

func newTestDispatcher(t *testing.T, p Processor, opts ...DispatcherOption) *Dispatcher {
	t.Helper()
	opts = append([]DispatcherOption{WithRetries(DefaultMaxRetries, time.Millisecond)}, opts...)
	d, err := NewDispatcher(p, opts...)
	require.NoError(t, err)
	t.Cleanup(d.Release)
	return d
}

func waitOutcome(t *testing.T, job *Job) *core.Outcome {
	t.Helper()
	outcome, err := job.Wait(context.Background(), 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	return outcome
}

func TestNewDispatcher_Validation(t *testing.T) {
	_, err := NewDispatcher(nil)
	assert.ErrorIs(t, err, ErrProcessorRequired)

	_, err = NewDispatcher(processorFunc(nil), WithRetries(-1, time.Second))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestDispatcher_Success(t *testing.T) {
	d := newTestDispatcher(t, processorFunc(func(ctx context.Context, id string) (*core.Outcome, error) {
		return core.Succeeded("sum", "title "+id, false), nil
	}))

	job, err := d.Submit(testSourceID)
	require.NoError(t, err)
	outcome := waitOutcome(t, job)
	assert.True(t, outcome.OK())
	assert.Equal(t, "title "+testSourceID, outcome.Title)
	assert.Same(t, outcome, job.Outcome())
}

func TestDispatcher_RetriesTransientErrors(t *testing.T) {
	var attempts atomic.Int32
	d := newTestDispatcher(t, processorFunc(func(ctx context.Context, id string) (*core.Outcome, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("redis unavailable")
		}
		return core.Succeeded("sum", "t", false), nil
	}))

	job, err := d.Submit(testSourceID)
	require.NoError(t, err)
	assert.True(t, waitOutcome(t, job).OK())
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDispatcher_ExhaustedRetries(t *testing.T) {
	var attempts atomic.Int32
	m := metrics.New(prometheus.NewRegistry())
	d := newTestDispatcher(t, processorFunc(func(ctx context.Context, id string) (*core.Outcome, error) {
		attempts.Add(1)
		return nil, errors.New("secret internal detail")
	}), WithDispatcherMetrics(m))

	job, err := d.Submit(testSourceID)
	require.NoError(t, err)
	outcome := waitOutcome(t, job)
	assert.False(t, outcome.OK())
	assert.Equal(t, FailureMessage, outcome.Message)
	assert.NotContains(t, outcome.Message, "secret")
	assert.Equal(t, int32(4), attempts.Load())

	assert.Equal(t, 4.0, testutil.ToFloat64(m.JobAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobOutcomes.WithLabelValues("error", "false")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.JobsActive))
}

func TestDispatcher_ValidationOutcomeIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	d := newTestDispatcher(t, processorFunc(func(ctx context.Context, id string) (*core.Outcome, error) {
		attempts.Add(1)
		return core.Failed("invalid source identifier"), nil
	}))

	job, err := d.Submit("bad")
	require.NoError(t, err)
	outcome := waitOutcome(t, job)
	assert.Equal(t, "invalid source identifier", outcome.Message)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDispatcher_PanicBecomesFailure(t *testing.T) {
	d := newTestDispatcher(t, processorFunc(func(ctx context.Context, id string) (*core.Outcome, error) {
		panic("boom")
	}))

	job, err := d.Submit(testSourceID)
	require.NoError(t, err)
	assert.Equal(t, FailureMessage, waitOutcome(t, job).Message)
}

func TestJob_WaitTimeoutLeavesJobRunning(t *testing.T) {
	release := make(chan struct{})
	d := newTestDispatcher(t, processorFunc(func(ctx context.Context, id string) (*core.Outcome, error) {
		<-release
		return core.Succeeded("late", "t", false), nil
	}))

	job, err := d.Submit(testSourceID)
	require.NoError(t, err)

	outcome, err := job.Wait(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrStillProcessing)
	assert.Nil(t, outcome)
	assert.Nil(t, job.Outcome())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = job.Wait(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}
	assert.Equal(t, "late", job.Outcome().Summary)
}

func TestDispatcher_QueuesBeyondPoolSize(t *testing.T) {
	var running, peak atomic.Int32
	d := newTestDispatcher(t, processorFunc(func(ctx context.Context, id string) (*core.Outcome, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return core.Succeeded("s", id, false), nil
	}), WithPoolSize(2))

	jobs := make([]*Job, 6)
	for i := range jobs {
		var err error
		jobs[i], err = d.Submit(testSourceID)
		require.NoError(t, err)
	}
	for _, job := range jobs {
		assert.True(t, waitOutcome(t, job).OK())
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDispatcher_SubmitAfterRelease(t *testing.T) {
	d, err := NewDispatcher(processorFunc(func(ctx context.Context, id string) (*core.Outcome, error) {
		return core.Succeeded("", "", false), nil
	}))
	require.NoError(t, err)
	d.Release()
	d.Release()

	_, err = d.Submit(testSourceID)
	assert.ErrorIs(t, err, ErrDispatcherReleased)
}

func TestDispatcher_ConcurrentSubmitAndRelease(t *testing.T) {
	d, err := NewDispatcher(processorFunc(func(ctx context.Context, id string) (*core.Outcome, error) {
		return core.Succeeded("summary", "title", false), nil
	}), WithPoolSize(2))
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []*Job
		rejected atomic.Int32
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := d.Submit(testSourceID)
			if err != nil {
				assert.ErrorIs(t, err, ErrDispatcherReleased)
				rejected.Add(1)
				return
			}
			mu.Lock()
			accepted = append(accepted, job)
			mu.Unlock()
		}()
	}
	d.Release()
	wg.Wait()

	assert.Equal(t, 50, len(accepted)+int(rejected.Load()))
	for _, job := range accepted {
		assert.True(t, waitOutcome(t, job).OK())
	}
}

func TestDispatcher_WithOrchestrator(t *testing.T) {
	h := newHarness(t)
	d := newTestDispatcher(t, h.orch)

	job, err := d.Submit(testSourceID)
	require.NoError(t, err)
	first := waitOutcome(t, job)
	assert.True(t, first.OK())
	assert.False(t, first.Cached)

	job, err = d.Submit(testSourceID)
	require.NoError(t, err)
	second := waitOutcome(t, job)
	assert.True(t, second.Cached)
}
