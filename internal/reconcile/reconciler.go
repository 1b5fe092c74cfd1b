package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/models"
	"github.com/vytor/reviewsync/internal/queue"
)

const DefaultTimeout = 10 * time.Second

// RemoteStore applies a batch of scheduling updates. Implementations must
// be idempotent per card.
type RemoteStore interface {
	BatchUpdate(ctx context.Context, items []models.BatchUpdateItem) (models.BatchUpdateResult, error)
}

// Result lists what happened to each card of one flush.
type Result struct {
	Succeeded []string
	Dropped   []string
	Failed    []string
	Modified  int
}

func (r Result) Empty() bool {
	return len(r.Succeeded) == 0 && len(r.Dropped) == 0 && len(r.Failed) == 0
}

// CommitHook receives the entries the remote store confirmed and the ids it
// no longer knows. It runs after the queue commit, under the flush lock.
type CommitHook func(confirmed []models.ReviewQueueEntry, dropped []string)

type Reconciler struct {
	mu        sync.Mutex
	queue     *queue.ReviewQueue
	remote    RemoteStore
	timeout   time.Duration
	batchSize int
	hooks     []CommitHook
	log       *logger.Logger
}

type Option func(*Reconciler)

func WithTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithBatchSize caps how many entries go into one request. Values outside
// (0, models.MaxBatchSize] are ignored.
func WithBatchSize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 && n <= models.MaxBatchSize {
			r.batchSize = n
		}
	}
}

func WithCommitHook(h CommitHook) Option {
	return func(r *Reconciler) { r.hooks = append(r.hooks, h) }
}

func New(q *queue.ReviewQueue, remote RemoteStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		queue:     q,
		remote:    remote,
		timeout:   DefaultTimeout,
		batchSize: models.MaxBatchSize,
		log:       logger.Default().WithPrefix("reconcile"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Flush sends every pending entry, in requests of at most the configured
// batch size. Overlapping calls run one after the other. Each request is
// all or nothing: a confirmed request is committed right away, and the
// first error stops the flush with that request and every later one left
// queued. Cancelling ctx does not abort a request in flight; the configured
// timeout bounds each one.
func (r *Reconciler) Flush(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := logger.FromContext(ctx).WithPrefix("reconcile")

	snapshot := r.queue.Drain()
	if len(snapshot) == 0 {
		log.Debug("nothing to flush")
		return Result{}, nil
	}

	log = log.WithField("pending", len(snapshot))
	log.Debug("flushing pending reviews")
	start := time.Now()

	var out Result
	for off := 0; off < len(snapshot); off += r.batchSize {
		chunk := snapshot[off:min(off+r.batchSize, len(snapshot))]
		res, err := r.flushChunk(ctx, chunk)
		if err != nil {
			r.queue.MarkFailed(chunk, cardIDs(chunk), err)
			out.Failed = cardIDs(snapshot[off:])
			log.Warn("flush failed after %v, %d reviews kept for retry: %v", time.Since(start), len(out.Failed), err)
			return out, fmt.Errorf("flush %d reviews: %w", len(out.Failed), err)
		}
		out.Succeeded = append(out.Succeeded, res.UpdatedIDs...)
		out.Dropped = append(out.Dropped, res.MissingIDs...)
		out.Modified += res.Modified
	}

	if len(out.Dropped) > 0 {
		log.Info("dropped %d reviews for deleted cards", len(out.Dropped))
	}
	log.Info("flushed %d reviews in %v (modified=%d)", len(snapshot), time.Since(start), out.Modified)
	return out, nil
}

// flushChunk submits one request and commits what it confirmed.
func (r *Reconciler) flushChunk(ctx context.Context, chunk []models.ReviewQueueEntry) (models.BatchUpdateResult, error) {
	ids := cardIDs(chunk)
	items := make([]models.BatchUpdateItem, len(chunk))
	for i, e := range chunk {
		items[i] = models.ItemFromEntry(e)
	}

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	res, err := r.remote.BatchUpdate(reqCtx, items)
	cancel()
	if err == nil {
		err = checkResult(ids, res)
	}
	if err != nil {
		return models.BatchUpdateResult{}, err
	}

	done := make([]string, 0, len(res.UpdatedIDs)+len(res.MissingIDs))
	done = append(done, res.UpdatedIDs...)
	done = append(done, res.MissingIDs...)
	removed := r.queue.Commit(chunk, done)
	logger.FromContext(ctx).WithPrefix("reconcile").Debug("batch of %d confirmed, committed=%d", len(chunk), len(removed))

	if len(r.hooks) > 0 {
		byID := make(map[string]models.ReviewQueueEntry, len(chunk))
		for _, e := range chunk {
			byID[e.CardID] = e
		}
		confirmed := make([]models.ReviewQueueEntry, 0, len(res.UpdatedIDs))
		for _, id := range res.UpdatedIDs {
			confirmed = append(confirmed, byID[id])
		}
		for _, h := range r.hooks {
			h(confirmed, res.MissingIDs)
		}
	}
	return res, nil
}

func cardIDs(entries []models.ReviewQueueEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.CardID
	}
	return ids
}

// checkResult rejects a response that does not account for every submitted
// card exactly once.
func checkResult(ids []string, res models.BatchUpdateResult) error {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	seen := make(map[string]bool, len(ids))
	for _, list := range [][]string{res.UpdatedIDs, res.MissingIDs} {
		for _, id := range list {
			if !want[id] {
				return fmt.Errorf("unexpected card %q in batch response", id)
			}
			if seen[id] {
				return fmt.Errorf("card %q reported twice in batch response", id)
			}
			seen[id] = true
		}
	}
	if len(seen) != len(want) {
		return fmt.Errorf("batch response covers %d of %d cards", len(seen), len(want))
	}
	return nil
}
