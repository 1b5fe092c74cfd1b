package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/remote"
	"golang.org/x/time/rate"
)

const (
	ReasonPeriodic   = "periodic"
	ReasonReconnect  = "reconnect"
	ReasonSessionEnd = "session_end"
)

// Pinger checks whether the remote store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Triggers decides when the review queue is flushed: on a periodic timer,
// when the remote store becomes reachable again, and when a study session
// ends. Periodic flushes are rate limited so that a long offline stretch
// does not turn into a retry storm.
type Triggers struct {
	queue         JobQueue
	pending       func() int
	pinger        Pinger
	interval      time.Duration
	probeInterval time.Duration
	limiter       *rate.Limiter
	online        atomic.Bool
	sessionEnd    chan struct{}
	log           *logger.Logger
}

type TriggerOption func(*Triggers)

func WithInterval(d time.Duration) TriggerOption {
	return func(t *Triggers) {
		if d > 0 {
			t.interval = d
		}
	}
}

func WithProbeInterval(d time.Duration) TriggerOption {
	return func(t *Triggers) {
		if d > 0 {
			t.probeInterval = d
		}
	}
}

// WithRetriesPerMinute bounds automatic periodic flushes.
func WithRetriesPerMinute(n int) TriggerOption {
	return func(t *Triggers) {
		if n > 0 {
			t.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
		}
	}
}

// NewTriggers builds the trigger loop. pending reports how many reviews are
// queued; flushes are only requested when it is non-zero.
func NewTriggers(q JobQueue, pending func() int, pinger Pinger, opts ...TriggerOption) *Triggers {
	t := &Triggers{
		queue:         q,
		pending:       pending,
		pinger:        pinger,
		interval:      30 * time.Second,
		probeInterval: 15 * time.Second,
		limiter:       rate.NewLimiter(rate.Every(10*time.Second), 1),
		sessionEnd:    make(chan struct{}, 1),
		log:           logger.Default().WithPrefix("triggers"),
	}
	t.online.Store(true)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Online reports the last known reachability of the remote store.
func (t *Triggers) Online() bool {
	return t.online.Load()
}

// SessionEnded requests a flush regardless of the rate limit.
func (t *Triggers) SessionEnded() {
	select {
	case t.sessionEnd <- struct{}{}:
	default:
	}
}

// ReportFlush updates reachability from the outcome of a flush. A request
// the store answered and rejected leaves it online, so that only the rate
// limited periodic trigger retries it.
func (t *Triggers) ReportFlush(err error) {
	switch {
	case err == nil:
		t.online.Store(true)
	case remote.IsRejected(err):
		t.online.Store(true)
		t.log.Warn("remote store rejected the flush, retrying on the periodic schedule: %v", err)
	default:
		if t.online.Swap(false) {
			t.log.Warn("remote store unreachable, reviews will sync when it is back: %v", err)
		}
	}
}

func (t *Triggers) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	probe := time.NewTicker(t.probeInterval)
	defer probe.Stop()

	t.log.Debug("trigger loop started: interval=%v probe=%v", t.interval, t.probeInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.sessionEnd:
			t.request(ReasonSessionEnd)
		case <-ticker.C:
			if t.pending() > 0 && t.limiter.Allow() {
				t.request(ReasonPeriodic)
			}
		case <-probe.C:
			t.probe(ctx)
		}
	}
}

func (t *Triggers) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, t.probeInterval)
	defer cancel()

	err := t.pinger.Ping(ctx)
	if err != nil {
		if t.online.Swap(false) {
			t.log.Info("remote store went offline: %v", err)
		}
		return
	}
	if !t.online.Swap(true) {
		t.log.Info("remote store reachable again")
		t.request(ReasonReconnect)
	}
}

func (t *Triggers) request(reason string) {
	if t.pending() == 0 {
		return
	}
	if !t.queue.EnqueueFlush(reason) {
		t.log.Debug("flush already queued, %s request folded into it", reason)
	}
}
