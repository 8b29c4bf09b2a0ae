package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the operation journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			entries, err := r.ReadJournal(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				line := fmt.Sprintf("%s  %s", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Action)
				if len(e.Args) > 0 {
					line += " " + strings.Join(e.Args, " ")
				}
				if e.Description != "" {
					line += "  (" + e.Description + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "max-count", "n", 20, "limit the number of entries")
	return cmd
}
