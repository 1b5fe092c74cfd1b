package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vytor/reviewsync/internal/reconcile"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push queued reviews to the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			if rt.queue.Len() == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to sync")
				return nil
			}
			res, err := rt.reconciler.Flush(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync failed, %d review(s) kept for retry: %w", rt.queue.Len(), err)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		})
	},
}

func printResult(out io.Writer, res reconcile.Result) {
	if res.Empty() {
		fmt.Fprintln(out, "nothing to sync")
		return
	}
	fmt.Fprintf(out, "synced %d review(s), %d changed on the server\n", len(res.Succeeded), res.Modified)
	if len(res.Dropped) > 0 {
		fmt.Fprintf(out, "dropped %d unknown card(s): %s\n", len(res.Dropped), strings.Join(res.Dropped, ", "))
	}
}
