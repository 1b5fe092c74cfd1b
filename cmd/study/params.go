package main

import (
	"github.com/spf13/cobra"
	"github.com/vytor/reviewsync/internal/flashcard"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Print the scheduler parameter set in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		params, err := flashcard.LoadParameters(cfg.SchedulerParams)
		if err != nil {
			return err
		}
		data, err := flashcard.EncodeParameters(params)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}
