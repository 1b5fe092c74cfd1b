package worker

import (
	"context"

	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/reconcile"
)

// Flusher sends pending reviews to the remote store.
type Flusher interface {
	Flush(ctx context.Context) (reconcile.Result, error)
}

// FlushJob runs one reconciler flush. Reason names the trigger for logs.
type FlushJob struct {
	Flusher  Flusher
	Reason   string
	OnResult func(reconcile.Result, error)
}

func (j *FlushJob) Name() string { return "flush:" + j.Reason }

func (j *FlushJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("reason", j.Reason)

	res, err := j.Flusher.Flush(ctx)
	if j.OnResult != nil {
		j.OnResult(res, err)
	}
	if err != nil {
		return err
	}
	if !res.Empty() {
		log.Info("flush done: succeeded=%d dropped=%d", len(res.Succeeded), len(res.Dropped))
	}
	return nil
}
