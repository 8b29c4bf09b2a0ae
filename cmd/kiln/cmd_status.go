package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			report, err := r.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.Branch != "" {
				fmt.Fprintf(out, "on %s\n", report.Branch)
			} else {
				fmt.Fprintln(out, "HEAD detached")
			}
			if report.Merging {
				fmt.Fprintln(out, "merge in progress")
			}

			printSection(out, "conflicts", "! ", report.Conflicted)
			printSection(out, "staged", "+ ", report.Staged)
			printSection(out, "modified", "~ ", report.Modified)
			printSection(out, "deleted", "- ", report.Deleted)
			printSection(out, "untracked", "", report.Untracked)

			if report.Clean() {
				fmt.Fprintln(out, "nothing to commit, working tree clean")
			}
			return nil
		},
	}
}

func printSection(out io.Writer, title, marker string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", title)
	for _, p := range paths {
		fmt.Fprintf(out, "  %s%s\n", marker, p)
	}
}
