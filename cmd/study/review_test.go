package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/reviewsync/internal/api"
	"github.com/vytor/reviewsync/internal/config"
	"github.com/vytor/reviewsync/internal/flashcard"
	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/models"
	"github.com/vytor/reviewsync/internal/queue"
	"github.com/vytor/reviewsync/internal/queue/sqlitestore"
	"github.com/vytor/reviewsync/internal/reconcile"
	"github.com/vytor/reviewsync/internal/remote"
	"github.com/vytor/reviewsync/internal/repository/sqlite"
	"github.com/vytor/reviewsync/internal/services"
	"github.com/vytor/reviewsync/internal/testutil"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := testutil.NewTestDB(t)
	srv := httptest.NewServer((&api.Server{
		DB:            db,
		ReviewService: services.NewReviewService(sqlite.NewCardRepository(db), flashcard.NewDefaultScheduler()),
		StatsService:  services.NewStatsService(sqlite.NewStatsRepository(db)),
	}).Routes())
	t.Cleanup(func() {
		srv.Close()
		testutil.MustClose(t, db)
	})
	return srv
}

func newTestRuntime(t *testing.T, serverURL, queuePath string) *runtime {
	t.Helper()
	store, err := sqlitestore.Open(queuePath)
	require.NoError(t, err)

	rt := &runtime{
		cfg:       config.Config{ServerURL: serverURL, QueuePath: queuePath, DuePageSize: 20},
		log:       logger.Default(),
		params:    flashcard.DefaultParameters(),
		scheduler: flashcard.NewDefaultScheduler(),
		store:     store,
		queue:     queue.New(store),
		remote:    remote.New(serverURL),
	}
	rt.reconciler = reconcile.New(rt.queue, rt.remote, reconcile.WithTimeout(time.Second), reconcile.WithCommitHook(rt.dispatchCommit))
	require.NoError(t, rt.queue.Restore(context.Background()))
	return rt
}

func TestRunReview_Online(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	rt := newTestRuntime(t, srv.URL, filepath.Join(t.TempDir(), "queue.db"))
	defer rt.close(ctx)

	_, err := rt.remote.RegisterCard(ctx, "c1")
	require.NoError(t, err)

	var committed []string
	rt.onCommit(func(confirmed []models.ReviewQueueEntry, _ []string) {
		for _, e := range confirmed {
			committed = append(committed, e.CardID)
		}
	})

	out := &bytes.Buffer{}
	require.NoError(t, runReview(ctx, out, rt, "c1", "medium", time.Now().UTC()))

	assert.Contains(t, out.String(), "c1: Good -> Learning")
	assert.Contains(t, out.String(), "synced 1 review(s)")
	assert.Zero(t, rt.queue.Len())
	assert.Equal(t, []string{"c1"}, committed)

	card, err := rt.remote.GetCard(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.StateLearning, card.Scheduling.State)
	assert.Equal(t, 1, card.ReviewCount)
}

func TestRunReview_UnknownCard(t *testing.T) {
	srv := newTestServer(t)
	rt := newTestRuntime(t, srv.URL, filepath.Join(t.TempDir(), "queue.db"))
	defer rt.close(context.Background())

	err := runReview(context.Background(), &bytes.Buffer{}, rt, "ghost", "good", time.Now().UTC())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Zero(t, rt.queue.Len())
}

func TestRunReview_OfflineKeepsGradeAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	queuePath := filepath.Join(t.TempDir(), "queue.db")

	online := newTestRuntime(t, srv.URL, queuePath)
	_, err := online.remote.RegisterCard(ctx, "c1")
	require.NoError(t, err)
	require.NoError(t, online.close(ctx))

	// first grade needs the server copy; later grades build on the queued one
	offline := newTestRuntime(t, "http://127.0.0.1:1", queuePath)
	err = runReview(ctx, &bytes.Buffer{}, offline, "c1", "good", time.Now().UTC())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server is unreachable")
	require.NoError(t, offline.close(ctx))

	now := time.Now().UTC()
	graded := newTestRuntime(t, "http://127.0.0.1:1", queuePath)
	graded.queue.Enqueue(models.ReviewQueueEntry{
		CardID:   "c1",
		Grade:    models.GradeGood,
		GradedAt: now,
		State:    graded.scheduler.Schedule(nil, models.GradeGood, now),
	})

	out := &bytes.Buffer{}
	require.NoError(t, runReview(ctx, out, graded, "c1", "easy", now.Add(10*time.Minute)))
	assert.Contains(t, out.String(), "will sync later")
	require.NoError(t, graded.close(ctx))

	restarted := newTestRuntime(t, srv.URL, queuePath)
	defer restarted.close(ctx)
	require.Equal(t, 1, restarted.queue.Len())
	entry, ok := restarted.queue.Get("c1")
	require.True(t, ok)
	assert.Equal(t, models.GradeEasy, entry.Grade)

	res, err := restarted.reconciler.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, res.Succeeded)
	assert.Zero(t, restarted.queue.Len())
}
