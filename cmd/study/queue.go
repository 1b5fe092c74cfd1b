package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vytor/reviewsync/internal/models"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List reviews waiting to be synced",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			return printQueue(cmd.OutOrStdout(), rt.queue.Drain(), time.Now().UTC())
		})
	},
}

func printQueue(out io.Writer, entries []models.ReviewQueueEntry, now time.Time) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "queue is empty")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CARD\tGRADE\tGRADED\tSTATE\tDUE\tATTEMPTS\tLAST ERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.CardID,
			e.Grade,
			e.GradedAt.Local().Format("2006-01-02 15:04"),
			e.State.State,
			humanizeUntil(e.State.Due, now),
			e.Attempts,
			e.LastError,
		)
	}
	return tw.Flush()
}
