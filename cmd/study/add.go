package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [card-id...]",
	Short: "Register cards on the server",
	Long:  "add registers each given card id on the server. Without arguments a single card with a generated id is registered.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			ids := args
			if len(ids) == 0 {
				ids = []string{""}
			}
			for _, id := range ids {
				card, err := rt.remote.RegisterCard(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("register %q: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered %s (due %s)\n", card.ID, card.Scheduling.Due.Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}
