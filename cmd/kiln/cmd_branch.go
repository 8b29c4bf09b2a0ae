package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newBranchCmd() *cobra.Command {
	var deleteName string

	cmd := &cobra.Command{
		Use:   "branch [name]",
		Short: "List or create branches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if deleteName != "" {
				if err := r.DeleteBranch(deleteName); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted branch %s\n", deleteName)
				return nil
			}

			if len(args) == 1 {
				head, err := r.ResolveRef("HEAD")
				if err != nil {
					return err
				}
				if err := r.CreateBranch(args[0], head); err != nil {
					return err
				}
				fmt.Fprintf(out, "created branch %s at %s\n", args[0], head.Short())
				return nil
			}

			branches, err := r.ListBranches()
			if err != nil {
				return err
			}
			current, err := r.CurrentBranch()
			if err != nil {
				return err
			}
			for _, b := range branches {
				marker := "  "
				if b == current {
					marker = "* "
				}
				fmt.Fprintf(out, "%s%s\n", marker, b)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&deleteName, "delete", "d", "", "delete the named branch")
	return cmd
}
