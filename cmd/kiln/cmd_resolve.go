package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newResolveCmd() *cobra.Command {
	var list bool
	var show string

	cmd := &cobra.Command{
		Use:   "resolve [path]...",
		Short: "Mark conflicted files as resolved",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				unresolved, err := r.UnresolvedConflicts()
				if err != nil {
					return err
				}
				for _, fc := range unresolved {
					fmt.Fprintf(out, "%s (%d region(s))\n", fc.Path, len(fc.Regions))
				}
				return nil
			}

			if show != "" {
				fc, err := r.ConflictReport(show)
				if err != nil {
					return err
				}
				for _, region := range fc.Regions {
					fmt.Fprintf(out, "lines %d-%d:\n", region.StartLine, region.EndLine)
					for _, l := range region.Ours {
						fmt.Fprintf(out, "  ours:   %s\n", l)
					}
					for _, l := range region.Theirs {
						fmt.Fprintf(out, "  theirs: %s\n", l)
					}
				}
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("resolve: path required")
			}
			for _, p := range args {
				if err := r.ResolveFile(p); err != nil {
					return err
				}
				fmt.Fprintf(out, "resolved %s\n", p)
			}

			unresolved, err := r.UnresolvedConflicts()
			if err != nil {
				return err
			}
			if len(unresolved) == 0 {
				fmt.Fprintln(out, "all conflicts resolved; run: kiln merge --continue")
			} else {
				fmt.Fprintf(out, "%d file(s) still conflicted\n", len(unresolved))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list unresolved paths")
	cmd.Flags().StringVar(&show, "show", "", "print the recorded conflict regions for a path")
	return cmd
}
