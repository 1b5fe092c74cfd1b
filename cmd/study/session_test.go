package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/reviewsync/internal/flashcard"
	"github.com/vytor/reviewsync/internal/models"
	"github.com/vytor/reviewsync/internal/queue"
	"github.com/vytor/reviewsync/internal/study"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeSource struct {
	pages [][]models.DueCard
	total int
	calls []int
	err   error
}

func (f *fakeSource) DueCards(_ context.Context, limit, offset int) (models.DueCardsPage, error) {
	f.calls = append(f.calls, offset)
	if f.err != nil {
		return models.DueCardsPage{}, f.err
	}
	idx := offset / limit
	if idx >= len(f.pages) {
		return models.DueCardsPage{Limit: limit, Offset: offset, Total: f.total}, nil
	}
	return models.DueCardsPage{Cards: f.pages[idx], Limit: limit, Offset: offset, Total: f.total}, nil
}

func dueCards(ids ...string) []models.DueCard {
	out := make([]models.DueCard, len(ids))
	for i, id := range ids {
		out[i] = models.DueCard{ID: id, Scheduling: models.NewSchedulingState(t0)}
	}
	return out
}

func newLoop(t *testing.T, input string, source *fakeSource, first []models.DueCard) (*sessionLoop, *queue.ReviewQueue, *bytes.Buffer) {
	t.Helper()
	q := queue.New(queue.NewMemoryStorage(), queue.WithClock(func() time.Time { return t0 }))
	sched := flashcard.NewDefaultScheduler()
	out := &bytes.Buffer{}
	loop := &sessionLoop{
		sess:      study.NewSession(sched, q, first, study.WithClock(func() time.Time { return t0 })),
		scheduler: sched,
		source:    source,
		pageSize:  2,
		offset:    len(first),
		total:     source.total,
		in:        bufio.NewScanner(strings.NewReader(input)),
		out:       out,
		now:       func() time.Time { return t0 },
	}
	return loop, q, out
}

func TestSessionLoop_GradesWholeDeckAcrossPages(t *testing.T) {
	source := &fakeSource{
		pages: [][]models.DueCard{dueCards("a", "b"), dueCards("c")},
		total: 3,
	}
	loop, q, out := newLoop(t, "medium\nforgot\neasy\n", source, dueCards("a", "b"))
	ended := 0
	loop.onDeckDone = func() { ended++ }

	require.NoError(t, loop.run(context.Background()))

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 1, ended)
	assert.Equal(t, []int{2}, source.calls)
	assert.Contains(t, out.String(), "[3/3] c")
	assert.Contains(t, out.String(), "all due cards reviewed")

	e, ok := q.Get("b")
	require.True(t, ok)
	assert.Equal(t, models.GradeAgain, e.Grade)
}

func TestSessionLoop_Navigation(t *testing.T) {
	source := &fakeSource{total: 3}
	loop, q, out := newLoop(t, "next\nmedium\nprev\nhard\njump 3\njump 2\nquit\n", source, dueCards("a", "b", "c"))

	require.NoError(t, loop.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "! "+study.ErrNotGraded.Error())
	assert.Contains(t, text, "! "+study.ErrRevisiting.Error())
	assert.Contains(t, text, "! "+study.ErrGradeSkipping.Error())
	assert.Contains(t, text, "graded, next review in")
	assert.Equal(t, 1, q.Len())

	cur, highest, total := loop.sess.Position()
	assert.Equal(t, 1, cur)
	assert.Equal(t, 1, highest)
	assert.Equal(t, 3, total)
}

func TestSessionLoop_UnknownResponse(t *testing.T) {
	loop, q, out := newLoop(t, "meh\nq\n", &fakeSource{total: 1}, dueCards("a"))

	require.NoError(t, loop.run(context.Background()))

	assert.Contains(t, out.String(), flashcard.ErrUnknownResponse.Error())
	assert.Zero(t, q.Len())
}

func TestSessionLoop_PageLoadFailureEndsDeck(t *testing.T) {
	source := &fakeSource{total: 5, err: errors.New("connection refused")}
	loop, q, out := newLoop(t, "good\n", source, dueCards("a"))

	require.NoError(t, loop.run(context.Background()))

	assert.Equal(t, 1, q.Len())
	assert.Contains(t, out.String(), "could not load more cards")
}

func TestSessionLoop_PreviewUsesResponseWords(t *testing.T) {
	loop, _, out := newLoop(t, "q\n", &fakeSource{total: 1}, dueCards("a"))

	require.NoError(t, loop.run(context.Background()))

	line := out.String()
	for _, r := range responses {
		assert.Contains(t, line, r+" ")
	}
}

func TestHumanizeUntil(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Hour, "now"},
		{30 * time.Second, "now"},
		{10 * time.Minute, "10m"},
		{5 * time.Hour, "5h"},
		{4 * 24 * time.Hour, "4d"},
		{75 * 24 * time.Hour, "2.5mo"},
		{730 * 24 * time.Hour, "2.0y"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanizeUntil(t0.Add(tt.d), t0), tt.d.String())
	}
}

func TestPrintQueue(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, printQueue(out, nil, t0))
	assert.Equal(t, "queue is empty\n", out.String())

	out.Reset()
	entries := []models.ReviewQueueEntry{{
		CardID:    "c1",
		Grade:     models.GradeHard,
		GradedAt:  t0,
		State:     models.SchedulingState{State: models.StateReview, Due: t0.Add(48 * time.Hour)},
		Attempts:  2,
		LastError: "timeout",
	}}
	require.NoError(t, printQueue(out, entries, t0))
	assert.Contains(t, out.String(), "ATTEMPTS")
	assert.Regexp(t, `c1\s+Hard\s+.*Review\s+2d\s+2\s+timeout`, out.String())
}
