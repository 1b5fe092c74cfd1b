package jobs

import (
	"github.com/vytor/reviewsync/internal/reconcile"
	"github.com/vytor/reviewsync/internal/worker"
)

// WorkerQueue implements JobQueue using a worker pool
type WorkerQueue struct {
	pool     *worker.Pool
	flusher  worker.Flusher
	onResult func(reconcile.Result, error)
}

// NewWorkerQueue creates a new WorkerQueue implementation. onResult may be nil.
func NewWorkerQueue(pool *worker.Pool, flusher worker.Flusher, onResult func(reconcile.Result, error)) *WorkerQueue {
	return &WorkerQueue{pool: pool, flusher: flusher, onResult: onResult}
}

func (q *WorkerQueue) EnqueueFlush(reason string) bool {
	return q.pool.TrySubmit(q.job(reason))
}

func (q *WorkerQueue) job(reason string) *worker.FlushJob {
	return &worker.FlushJob{Flusher: q.flusher, Reason: reason, OnResult: q.onResult}
}
