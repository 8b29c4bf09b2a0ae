package main

import (
	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newRmCmd() *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "rm <path>...",
		Short: "Remove files from the index and working tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			if err := r.Remove(args, cached); err != nil {
				return err
			}
			_ = r.Journal(repo.JournalEntry{Action: "rm", Args: args})
			return nil
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "unstage only; keep the working copy")
	return cmd
}
