package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newReflogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reflog [ref]",
		Short: "Show the movement history of a ref",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			entries, err := r.ReadReflog(ref, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range entries {
				fmt.Fprintf(out, "%s %s %s\n",
					m.New.Short(),
					m.At.Format("2006-01-02 15:04:05"),
					m.Reason)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "max-count", "n", 20, "limit the number of entries")
	return cmd
}
