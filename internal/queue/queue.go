package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/models"
)

// Storage is the durable copy of the pending set. Save replaces everything
// previously saved.
type Storage interface {
	Load(ctx context.Context) ([]models.QueueEntryRecord, error)
	Save(ctx context.Context, records []models.QueueEntryRecord) error
}

const defaultRetryInterval = 5 * time.Second

// ReviewQueue holds graded reviews that have not been confirmed by the
// remote store yet, at most one per card.
type ReviewQueue struct {
	mu      sync.Mutex
	pending map[string]models.ReviewQueueEntry
	version uint64
	saved   uint64

	saveMu sync.Mutex
	store  Storage
	dirty  chan struct{}

	restoreOnce sync.Once
	restoreErr  error

	now           func() time.Time
	retryInterval time.Duration
	log           *logger.Logger
}

type Option func(*ReviewQueue)

func WithClock(now func() time.Time) Option {
	return func(q *ReviewQueue) { q.now = now }
}

// WithRetryInterval sets how long Run waits before retrying a failed save.
func WithRetryInterval(d time.Duration) Option {
	return func(q *ReviewQueue) { q.retryInterval = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(q *ReviewQueue) { q.log = l }
}

func New(store Storage, opts ...Option) *ReviewQueue {
	q := &ReviewQueue{
		pending:       make(map[string]models.ReviewQueueEntry),
		store:         store,
		dirty:         make(chan struct{}, 1),
		now:           time.Now,
		retryInterval: defaultRetryInterval,
		log:           logger.Default().WithPrefix("queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue replaces any pending entry for the same card and schedules a
// persist. It never fails; persistence errors surface in the log and are
// retried.
func (q *ReviewQueue) Enqueue(entry models.ReviewQueueEntry) models.ReviewQueueEntry {
	entry.Revision = uuid.NewString()
	entry.EnqueuedAt = q.now()
	entry.Attempts = 0
	entry.LastError = ""

	q.mu.Lock()
	_, replaced := q.pending[entry.CardID]
	q.pending[entry.CardID] = entry
	q.version++
	q.mu.Unlock()

	q.log.WithFields(map[string]any{
		"card_id":  entry.CardID,
		"grade":    entry.Grade,
		"replaced": replaced,
	}).Debug("enqueued review")
	q.markDirty()
	return entry
}

// Drain returns a snapshot of the pending entries ordered by grading time.
// Nothing is removed.
func (q *ReviewQueue) Drain() []models.ReviewQueueEntry {
	q.mu.Lock()
	out := make([]models.ReviewQueueEntry, 0, len(q.pending))
	for _, e := range q.pending {
		out = append(out, e)
	}
	q.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].GradedAt.Equal(out[j].GradedAt) {
			return out[i].CardID < out[j].CardID
		}
		return out[i].GradedAt.Before(out[j].GradedAt)
	})
	return out
}

// Commit removes the given cards, but only where the pending entry is still
// the one captured in snapshot. It returns the ids actually removed.
func (q *ReviewQueue) Commit(snapshot []models.ReviewQueueEntry, cardIDs []string) []string {
	revisions := revisionsOf(snapshot)

	q.mu.Lock()
	var removed []string
	for _, id := range cardIDs {
		cur, ok := q.pending[id]
		if !ok || cur.Revision != revisions[id] {
			continue
		}
		delete(q.pending, id)
		removed = append(removed, id)
	}
	if len(removed) > 0 {
		q.version++
	}
	q.mu.Unlock()

	if skipped := len(cardIDs) - len(removed); skipped > 0 {
		q.log.Debug("kept %d entries re-enqueued since drain", skipped)
	}
	if len(removed) > 0 {
		q.markDirty()
	}
	return removed
}

// MarkFailed records a failed delivery attempt on entries still unchanged
// since snapshot.
func (q *ReviewQueue) MarkFailed(snapshot []models.ReviewQueueEntry, cardIDs []string, cause error) {
	revisions := revisionsOf(snapshot)
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	q.mu.Lock()
	changed := false
	for _, id := range cardIDs {
		cur, ok := q.pending[id]
		if !ok || cur.Revision != revisions[id] {
			continue
		}
		cur.Attempts++
		cur.LastError = msg
		q.pending[id] = cur
		changed = true
	}
	if changed {
		q.version++
	}
	q.mu.Unlock()

	if changed {
		q.markDirty()
	}
}

func (q *ReviewQueue) Get(cardID string) (models.ReviewQueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.pending[cardID]
	return e, ok
}

func (q *ReviewQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Restore loads the durable copy into memory. Only the first call reads the
// storage; later calls return its result. Entries enqueued before Restore
// win over restored entries for the same card.
func (q *ReviewQueue) Restore(ctx context.Context) error {
	q.restoreOnce.Do(func() {
		q.restoreErr = q.restore(ctx)
	})
	return q.restoreErr
}

func (q *ReviewQueue) restore(ctx context.Context) error {
	records, err := q.store.Load(ctx)
	if err != nil {
		q.log.Error("failed to restore queue: %v", err)
		return err
	}

	q.mu.Lock()
	hadPending := len(q.pending) > 0
	restored, skipped := 0, 0
	for _, r := range records {
		e, ok := r.Hydrate()
		if !ok {
			skipped++
			continue
		}
		if _, exists := q.pending[e.CardID]; exists {
			continue
		}
		if e.Revision == "" {
			e.Revision = uuid.NewString()
		}
		q.pending[e.CardID] = e
		restored++
	}
	if hadPending || skipped > 0 {
		q.version++
	} else {
		q.saved = q.version
	}
	q.mu.Unlock()

	if skipped > 0 {
		q.log.Warn("skipped %d unreadable queue entries", skipped)
	}
	q.log.Info("restored %d pending reviews", restored)
	if hadPending || skipped > 0 {
		q.markDirty()
	}
	return nil
}

// Persist writes the pending set if it changed since the last successful
// save.
func (q *ReviewQueue) Persist(ctx context.Context) error {
	q.saveMu.Lock()
	defer q.saveMu.Unlock()

	q.mu.Lock()
	if q.version == q.saved {
		q.mu.Unlock()
		return nil
	}
	version := q.version
	records := make([]models.QueueEntryRecord, 0, len(q.pending))
	for _, e := range q.pending {
		records = append(records, models.RecordOfEntry(e))
	}
	q.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].CardID < records[j].CardID })

	if err := q.store.Save(ctx, records); err != nil {
		q.log.Error("failed to persist %d entries: %v", len(records), err)
		return err
	}

	q.mu.Lock()
	if version > q.saved {
		q.saved = version
	}
	q.mu.Unlock()
	q.log.Debug("persisted %d entries", len(records))
	return nil
}

// FlushSync persists on the caller's goroutine. Shutdown hooks call it so
// the durable copy reflects the latest enqueue before the process exits.
func (q *ReviewQueue) FlushSync(ctx context.Context) error {
	return q.Persist(ctx)
}

// Run persists in the background after every change until ctx is done,
// then performs a final synchronous persist.
func (q *ReviewQueue) Run(ctx context.Context) error {
	q.log.Debug("persist loop started")
	retry := time.NewTimer(q.retryInterval)
	retry.Stop()
	defer retry.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.retryInterval)
			err := q.FlushSync(final)
			cancel()
			q.log.Debug("persist loop stopped")
			return err
		case <-q.dirty:
		case <-retry.C:
		}
		if err := q.Persist(ctx); err != nil && ctx.Err() == nil {
			retry.Reset(q.retryInterval)
		}
	}
}

func (q *ReviewQueue) markDirty() {
	select {
	case q.dirty <- struct{}{}:
	default:
	}
}

func revisionsOf(entries []models.ReviewQueueEntry) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.CardID] = e.Revision
	}
	return out
}
