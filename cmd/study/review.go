package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/vytor/reviewsync/internal/flashcard"
	"github.com/vytor/reviewsync/internal/models"
	"github.com/vytor/reviewsync/internal/remote"
)

var reviewCmd = &cobra.Command{
	Use:   "review <card-id> <response>",
	Short: "Grade a single card",
	Long: `review grades one card with forgot, hard, medium or easy (again and good
are accepted too). The grade is queued locally first and synced right away
when the server is reachable.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			return runReview(cmd.Context(), cmd.OutOrStdout(), rt, args[0], args[1], time.Now().UTC())
		})
	},
}

func runReview(ctx context.Context, out io.Writer, rt *runtime, cardID, response string, now time.Time) error {
	prev, err := rt.currentState(ctx, cardID, now)
	if err != nil {
		return err
	}
	grade, err := flashcard.GradeForResponse(response, prev.State)
	if err != nil {
		return err
	}

	next := rt.scheduler.Schedule(&prev, grade, now)
	rt.queue.Enqueue(models.ReviewQueueEntry{
		CardID:   cardID,
		Grade:    grade,
		GradedAt: now,
		State:    next,
	})
	if err := rt.queue.FlushSync(ctx); err != nil {
		return fmt.Errorf("persist review queue: %w", err)
	}
	fmt.Fprintf(out, "%s: %s -> %s, next review in %s\n", cardID, grade, next.State, humanizeUntil(next.Due, now))

	res, err := rt.reconciler.Flush(ctx)
	if err != nil {
		fmt.Fprintf(out, "queued; %d review(s) will sync later (%v)\n", rt.queue.Len(), err)
		return nil
	}
	printResult(out, res)
	return nil
}

// currentState returns the freshest state of cardID: a pending local grade
// wins over the server copy.
func (rt *runtime) currentState(ctx context.Context, cardID string, now time.Time) (models.SchedulingState, error) {
	if e, ok := rt.queue.Get(cardID); ok {
		return e.State, nil
	}
	card, err := rt.remote.GetCard(ctx, cardID)
	switch {
	case remote.IsNotFound(err):
		return models.SchedulingState{}, fmt.Errorf("card %s does not exist", cardID)
	case err != nil:
		return models.SchedulingState{}, fmt.Errorf("card %s is not queued locally and the server is unreachable: %w", cardID, err)
	}
	return card.Scheduling, nil
}
