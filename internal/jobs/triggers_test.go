package jobs_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/reviewsync/internal/jobs"
	"github.com/vytor/reviewsync/internal/reconcile"
	"github.com/vytor/reviewsync/internal/remote"
	"github.com/vytor/reviewsync/internal/worker"
)

type recordingQueue struct {
	mu      sync.Mutex
	reasons []string
}

func (q *recordingQueue) EnqueueFlush(reason string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reasons = append(q.reasons, reason)
	return true
}

func (q *recordingQueue) total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.reasons)
}

// rejectingQueue records each request and reports the flush as refused by
// the store, the way a batch the server keeps answering 400 to would.
type rejectingQueue struct {
	recordingQueue
	report func(error)
}

func (q *rejectingQueue) EnqueueFlush(reason string) bool {
	q.recordingQueue.EnqueueFlush(reason)
	q.report(fmt.Errorf("flush 1 reviews: %w", &remote.StatusError{
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed for items",
	}))
	return true
}

func (q *recordingQueue) count(reason string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, r := range q.reasons {
		if r == reason {
			n++
		}
	}
	return n
}

type switchPinger struct {
	up atomic.Bool
}

func (p *switchPinger) Ping(context.Context) error {
	if p.up.Load() {
		return nil
	}
	return errors.New("connection refused")
}

func run(t *testing.T, tr *jobs.Triggers) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func upPinger() *switchPinger {
	p := &switchPinger{}
	p.up.Store(true)
	return p
}

func TestTriggers_PeriodicOnlyWithPending(t *testing.T) {
	q := &recordingQueue{}
	var pending atomic.Int32
	tr := jobs.NewTriggers(q, func() int { return int(pending.Load()) }, upPinger(),
		jobs.WithInterval(5*time.Millisecond), jobs.WithRetriesPerMinute(60000))
	run(t, tr)

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, q.count(jobs.ReasonPeriodic))

	pending.Store(2)
	assert.Eventually(t, func() bool { return q.count(jobs.ReasonPeriodic) >= 2 }, time.Second, 5*time.Millisecond)
}

func TestTriggers_PeriodicIsRateLimited(t *testing.T) {
	q := &recordingQueue{}
	tr := jobs.NewTriggers(q, func() int { return 1 }, upPinger(),
		jobs.WithInterval(time.Millisecond), jobs.WithRetriesPerMinute(1))
	run(t, tr)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, q.count(jobs.ReasonPeriodic))
}

func TestTriggers_SessionEndBypassesLimit(t *testing.T) {
	q := &recordingQueue{}
	tr := jobs.NewTriggers(q, func() int { return 1 }, upPinger(),
		jobs.WithInterval(time.Hour), jobs.WithRetriesPerMinute(1))
	run(t, tr)

	tr.SessionEnded()
	assert.Eventually(t, func() bool { return q.count(jobs.ReasonSessionEnd) == 1 }, time.Second, 5*time.Millisecond)
	tr.SessionEnded()
	assert.Eventually(t, func() bool { return q.count(jobs.ReasonSessionEnd) == 2 }, time.Second, 5*time.Millisecond)
}

func TestTriggers_ReconnectFlushes(t *testing.T) {
	q := &recordingQueue{}
	pinger := &switchPinger{}
	tr := jobs.NewTriggers(q, func() int { return 3 }, pinger,
		jobs.WithInterval(time.Hour), jobs.WithProbeInterval(5*time.Millisecond))
	run(t, tr)

	assert.Eventually(t, func() bool { return !tr.Online() }, time.Second, 5*time.Millisecond)
	assert.Zero(t, q.count(jobs.ReasonReconnect))

	pinger.up.Store(true)
	assert.Eventually(t, func() bool { return q.count(jobs.ReasonReconnect) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, tr.Online())
}

func TestTriggers_ReportFlush(t *testing.T) {
	tr := jobs.NewTriggers(&recordingQueue{}, func() int { return 0 }, upPinger())
	assert.True(t, tr.Online())

	tr.ReportFlush(errors.New("timeout"))
	assert.False(t, tr.Online())
	tr.ReportFlush(nil)
	assert.True(t, tr.Online())

	tr.ReportFlush(&remote.StatusError{StatusCode: http.StatusBadGateway})
	assert.False(t, tr.Online())
	tr.ReportFlush(&remote.StatusError{StatusCode: http.StatusBadRequest})
	assert.True(t, tr.Online(), "a rejected batch means the store is reachable")
}

func TestTriggers_RejectedFlushRetriesOnlyWithinLimit(t *testing.T) {
	q := &rejectingQueue{}
	tr := jobs.NewTriggers(q, func() int { return 1 }, upPinger(),
		jobs.WithInterval(time.Millisecond), jobs.WithProbeInterval(2*time.Millisecond), jobs.WithRetriesPerMinute(1))
	q.report = tr.ReportFlush
	run(t, tr)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, q.total())
	assert.Zero(t, q.count(jobs.ReasonReconnect))
	assert.True(t, tr.Online())
}

type countingFlusher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (f *countingFlusher) Flush(context.Context) (reconcile.Result, error) {
	f.calls.Add(1)
	<-f.release
	return reconcile.Result{}, nil
}

func TestWorkerQueue_FoldsRequestsWhileBusy(t *testing.T) {
	pool := worker.NewPool(1, 1)
	pool.Start(context.Background())
	defer pool.Stop()

	flusher := &countingFlusher{release: make(chan struct{})}
	var results atomic.Int32
	q := jobs.NewWorkerQueue(pool, flusher, func(reconcile.Result, error) { results.Add(1) })

	require.True(t, q.EnqueueFlush("first"))
	require.Eventually(t, func() bool { return flusher.calls.Load() == 1 }, time.Second, time.Millisecond)

	assert.True(t, q.EnqueueFlush("second"))
	assert.False(t, q.EnqueueFlush("third"))

	close(flusher.release)
	assert.Eventually(t, func() bool { return results.Load() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), flusher.calls.Load())
}
