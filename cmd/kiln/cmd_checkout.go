package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newCheckoutCmd() *cobra.Command {
	var create bool

	cmd := &cobra.Command{
		Use:   "checkout <branch|commit>",
		Short: "Switch branches or restore a commit's tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			target := args[0]

			if create {
				head, err := r.ResolveRef("HEAD")
				if err != nil {
					return err
				}
				if err := r.CreateBranch(target, head); err != nil {
					return err
				}
			}

			before := r.JournalHead()
			if err := r.Checkout(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "switched to %s\n", target)

			_ = r.Journal(repo.JournalEntry{
				Action:     "checkout",
				Args:       []string{target},
				BeforeHead: before,
				AfterHead:  r.JournalHead(),
			})
			return nil
		},
	}
	cmd.Flags().BoolVarP(&create, "branch", "b", false, "create the branch before switching")
	return cmd
}
