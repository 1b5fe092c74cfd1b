package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vytor/reviewsync/internal/flashcard"
	"github.com/vytor/reviewsync/internal/models"
	"github.com/vytor/reviewsync/internal/study"
)

var responses = []string{"forgot", "hard", "medium", "easy"}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Study the cards that are due",
	Long: `session walks through the due cards one at a time. Grade the current card
with forgot, hard, medium or easy. Use next, prev and jump N to move around,
and quit to stop. Grades are kept locally and synced in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			return rt.studySession(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		})
	},
}

func (rt *runtime) studySession(ctx context.Context, in io.Reader, out io.Writer) error {
	first, err := rt.remote.DueCards(ctx, rt.cfg.DuePageSize, 0)
	if err != nil {
		return fmt.Errorf("load due cards: %w", err)
	}
	if len(first.Cards) == 0 {
		fmt.Fprintln(out, "no cards are due")
		return nil
	}

	sess := study.NewSession(rt.scheduler, rt.queue, first.Cards)
	rt.onCommit(sess.OnCommit)

	triggers, stop := rt.startBackground(ctx)
	loop := &sessionLoop{
		sess:       sess,
		scheduler:  rt.scheduler,
		source:     rt.remote,
		pageSize:   rt.cfg.DuePageSize,
		offset:     len(first.Cards),
		total:      first.Total,
		in:         bufio.NewScanner(in),
		out:        out,
		now:        time.Now,
		onDeckDone: triggers.SessionEnded,
	}
	runErr := loop.run(ctx)
	if err := stop(); err != nil && !errors.Is(err, context.Canceled) {
		rt.log.Warn("background sync stopped with error: %v", err)
	}

	if rt.queue.Len() > 0 {
		res, err := rt.reconciler.Flush(ctx)
		if err != nil {
			fmt.Fprintf(out, "%d review(s) kept locally, run `study sync` when online (%v)\n", rt.queue.Len(), err)
		} else {
			printResult(out, res)
		}
	}
	return runErr
}

type deckSource interface {
	DueCards(ctx context.Context, limit, offset int) (models.DueCardsPage, error)
}

// sessionLoop drives a study.Session from a line-oriented prompt.
type sessionLoop struct {
	sess       *study.Session
	scheduler  *flashcard.Scheduler
	source     deckSource
	pageSize   int
	offset     int
	total      int
	in         *bufio.Scanner
	out        io.Writer
	now        func() time.Time
	onDeckDone func()
}

func (l *sessionLoop) run(ctx context.Context) error {
	for {
		if l.sess.Done() {
			if l.loadMore(ctx) == 0 {
				fmt.Fprintln(l.out, "all due cards reviewed")
				if l.onDeckDone != nil {
					l.onDeckDone()
				}
				return nil
			}
			if err := l.sess.Next(); err != nil {
				return err
			}
		}

		l.show()
		fmt.Fprint(l.out, "> ")
		if !l.in.Scan() {
			fmt.Fprintln(l.out)
			return l.in.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		fields := strings.Fields(l.in.Text())
		if len(fields) == 0 {
			continue
		}

		quit, err := l.handle(fields)
		if err != nil {
			fmt.Fprintf(l.out, "! %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (l *sessionLoop) handle(fields []string) (quit bool, err error) {
	switch cmd := strings.ToLower(fields[0]); cmd {
	case "q", "quit", "exit":
		return true, nil
	case "n", "next":
		return false, l.sess.Next()
	case "p", "prev":
		return false, l.sess.Prev()
	case "j", "jump":
		if len(fields) != 2 {
			return false, errors.New("usage: jump N")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("not a card number: %q", fields[1])
		}
		return false, l.sess.JumpTo(n - 1)
	case "?", "h", "help":
		fmt.Fprintln(l.out, "grade: forgot | hard | medium | easy    move: next | prev | jump N    quit")
		return false, nil
	default:
		next, err := l.sess.Grade(cmd)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(l.out, "  %s, next review in %s\n", next.State, humanizeUntil(next.Due, l.now()))
		if err := l.sess.Next(); err != nil && !errors.Is(err, study.ErrEndOfDeck) {
			return false, err
		}
		return false, nil
	}
}

// loadMore appends the next page of due cards and returns how many were new
// to the session.
func (l *sessionLoop) loadMore(ctx context.Context) int {
	for l.offset < l.total {
		page, err := l.source.DueCards(ctx, l.pageSize, l.offset)
		if err != nil {
			fmt.Fprintf(l.out, "could not load more cards: %v\n", err)
			return 0
		}
		if len(page.Cards) == 0 {
			return 0
		}
		l.offset += len(page.Cards)
		l.total = page.Total
		if added := l.sess.AddCards(page.Cards); added > 0 {
			return added
		}
	}
	return 0
}

func (l *sessionLoop) show() {
	card, state, err := l.sess.Current()
	if err != nil {
		return
	}
	now := l.now()
	cur, highest, total := l.sess.Position()

	fmt.Fprintf(l.out, "\n[%d/%d] %s  %s", cur+1, total, card.ID, state.State)
	if r := l.scheduler.Retrievability(state, now); r > 0 {
		fmt.Fprintf(l.out, "  recall %.0f%%", r*100)
	}
	if l.sess.Deleted(card.ID) {
		fmt.Fprint(l.out, "  (deleted on server)")
	}
	fmt.Fprintln(l.out)

	if cur < highest {
		fmt.Fprintf(l.out, "  graded, next review in %s\n", humanizeUntil(state.Due, now))
		return
	}
	if opt, graded := l.sess.Optimistic(card.ID); graded {
		fmt.Fprintf(l.out, "  graded, next review in %s\n", humanizeUntil(opt.Due, now))
		return
	}

	preview := l.scheduler.Preview(&state, now)
	parts := make([]string, 0, len(responses))
	for _, r := range responses {
		g, err := flashcard.GradeForResponse(r, state.State)
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", r, humanizeUntil(preview[g].Due, now)))
	}
	fmt.Fprintf(l.out, "  %s\n", strings.Join(parts, " | "))
}
