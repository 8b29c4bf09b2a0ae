package main

import (
	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Stage files for the next commit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			before := r.JournalHead()
			if err := r.Add(args); err != nil {
				return err
			}
			_ = r.Journal(repo.JournalEntry{
				Action:     "add",
				Args:       args,
				BeforeHead: before,
				AfterHead:  r.JournalHead(),
			})
			return nil
		},
	}
}
