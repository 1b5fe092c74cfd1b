package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vytor/reviewsync/internal/logger"
)

var ErrPoolStopped = errors.New("worker pool stopped")

type Job interface {
	Run(context.Context) error
	Name() string
}

type Pool struct {
	jobs    chan Job
	done    chan struct{}
	stop    sync.Once
	wg      sync.WaitGroup
	workers int
	cancel  context.CancelFunc
	log     *logger.Logger
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	log := logger.Default().WithPrefix("worker-pool")
	log.Debug("creating worker pool with %d workers and queue size %d", workers, queueSize)
	return &Pool{
		jobs:    make(chan Job, queueSize),
		done:    make(chan struct{}),
		workers: workers,
		log:     log,
	}
}

// Start launches the workers. They run until ctx is done or Stop is called.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.log.Info("starting worker pool with %d workers", p.workers)

	for i := 1; i <= p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.log.WithField("worker_id", id)
	log.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug("worker shutting down (context cancelled)")
			return
		case job := <-p.jobs:
			p.runJob(ctx, log.WithField("job", job.Name()), job)
		}
	}
}

// runJob runs one job. A panicking job is logged and does not take the
// worker down with it.
func (p *Pool) runJob(ctx context.Context, log *logger.Logger, job Job) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("job panicked after %v: %v", time.Since(start), rec)
		}
	}()

	log.Debug("starting job")
	if err := job.Run(logger.NewContext(ctx, log)); err != nil {
		log.Warn("job failed after %v: %v", time.Since(start), err)
		return
	}
	log.Debug("job completed in %v", time.Since(start))
}

// Stop cancels the workers and waits for running jobs to return. Jobs still
// queued are discarded.
func (p *Pool) Stop() {
	p.stop.Do(func() {
		p.log.Info("stopping worker pool")
		close(p.done)
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
		p.log.Info("worker pool stopped")
	})
}

func (p *Pool) stopped() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Submit blocks until the job is queued, ctx is done or the pool stops.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	if p.stopped() {
		return ErrPoolStopped
	}
	p.log.Debug("submitting job: %s", job.Name())
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPoolStopped
	}
}

// TrySubmit queues job only if there is room, and reports whether it did.
func (p *Pool) TrySubmit(job Job) bool {
	if p.stopped() {
		return false
	}
	select {
	case p.jobs <- job:
		p.log.Debug("submitted job: %s", job.Name())
		return true
	default:
		p.log.Debug("queue full, skipping job: %s", job.Name())
		return false
	}
}

// QueueSize returns the current number of pending jobs.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}
