package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/vytor/reviewsync/internal/config"
	"github.com/vytor/reviewsync/internal/flashcard"
	"github.com/vytor/reviewsync/internal/jobs"
	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/models"
	"github.com/vytor/reviewsync/internal/queue"
	"github.com/vytor/reviewsync/internal/queue/sqlitestore"
	"github.com/vytor/reviewsync/internal/reconcile"
	"github.com/vytor/reviewsync/internal/remote"
	"github.com/vytor/reviewsync/internal/worker"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// runtime holds the client-side components shared by every command.
type runtime struct {
	cfg        config.Config
	log        *logger.Logger
	params     flashcard.Parameters
	scheduler  *flashcard.Scheduler
	store      *sqlitestore.Store
	queue      *queue.ReviewQueue
	remote     *remote.Client
	reconciler *reconcile.Reconciler

	mu    sync.Mutex
	hooks []reconcile.CommitHook
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Load()
	overrides := map[string]*string{
		"server":    &cfg.ServerURL,
		"queue":     &cfg.QueuePath,
		"log-level": &cfg.LogLevel,
		"params":    &cfg.SchedulerParams,
	}
	for flag, dst := range overrides {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			*dst = v
		}
	}
	return cfg, cfg.Validate()
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.WithOutput(os.Stderr), logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	logger.SetDefault(log)

	params, err := flashcard.LoadParameters(cfg.SchedulerParams)
	if err != nil {
		return nil, err
	}
	scheduler, err := flashcard.NewScheduler(params)
	if err != nil {
		return nil, err
	}

	store, err := sqlitestore.Open(cfg.QueuePath)
	if err != nil {
		return nil, fmt.Errorf("open review queue: %w", err)
	}

	rt := &runtime{
		cfg:       cfg,
		log:       log,
		params:    params,
		scheduler: scheduler,
		store:     store,
		queue:     queue.New(store),
		remote:    remote.New(cfg.ServerURL),
	}
	rt.reconciler = reconcile.New(rt.queue, rt.remote,
		reconcile.WithTimeout(cfg.FlushTimeout),
		reconcile.WithCommitHook(rt.dispatchCommit),
	)

	if err := rt.queue.Restore(cmd.Context()); err != nil {
		store.Close()
		return nil, fmt.Errorf("restore review queue: %w", err)
	}
	log.Debug("runtime ready: server=%s queue=%s pending=%d params=%s", cfg.ServerURL, cfg.QueuePath, rt.queue.Len(), params.Version)
	return rt, nil
}

func (rt *runtime) onCommit(h reconcile.CommitHook) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.hooks = append(rt.hooks, h)
}

func (rt *runtime) dispatchCommit(confirmed []models.ReviewQueueEntry, dropped []string) {
	rt.mu.Lock()
	hooks := slices.Clone(rt.hooks)
	rt.mu.Unlock()
	for _, h := range hooks {
		h(confirmed, dropped)
	}
}

// startBackground runs the persist loop, the flush worker and the flush
// triggers until the returned stop function is called.
func (rt *runtime) startBackground(ctx context.Context) (*jobs.Triggers, func() error) {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	pool := worker.NewPool(1, 1)
	pool.Start(gctx)

	var triggers *jobs.Triggers
	wq := jobs.NewWorkerQueue(pool, rt.reconciler, func(_ reconcile.Result, err error) {
		triggers.ReportFlush(err)
	})
	triggers = jobs.NewTriggers(wq, rt.queue.Len, rt.remote,
		jobs.WithInterval(rt.cfg.FlushInterval),
		jobs.WithRetriesPerMinute(rt.cfg.FlushRetryPerMinute),
	)

	g.Go(func() error { return rt.queue.Run(gctx) })
	g.Go(func() error { return triggers.Run(gctx) })

	return triggers, func() error {
		cancel()
		err := g.Wait()
		pool.Stop()
		return err
	}
}

// close writes the queue to disk one last time. It runs even when the
// command context was cancelled by a signal.
func (rt *runtime) close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err := rt.queue.FlushSync(ctx)
	if err != nil {
		rt.log.Error("failed to persist review queue: %v", err)
	}
	if cerr := rt.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// withRuntime opens the runtime, runs fn and always closes the runtime.
func withRuntime(cmd *cobra.Command, fn func(*runtime) error) (err error) {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.close(cmd.Context()); err == nil {
			err = cerr
		}
	}()
	return fn(rt)
}
