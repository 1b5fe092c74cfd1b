package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "study",
	Short:        "Offline-tolerant flashcard study client",
	Long:         "study grades flashcards against a local review queue and syncs them to a reviewsync server when it is reachable.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "reviewsync server URL (overrides SERVER_URL)")
	rootCmd.PersistentFlags().String("queue", "", "path of the local review queue database (overrides QUEUE_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "DEBUG, INFO, WARN or ERROR (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().String("params", "", "scheduler parameter file (overrides SCHEDULER_PARAMS)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(paramsCmd)
}
