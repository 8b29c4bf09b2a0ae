package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/diff"
	"github.com/kilnvcs/kiln/pkg/repo"
)

func newDiffCmd() *cobra.Command {
	var staged bool

	cmd := &cobra.Command{
		Use:   "diff [<from> <to>]",
		Short: "Show changes between commits, the index, and the working tree",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			cfg, err := r.ReadConfig()
			if err != nil {
				return err
			}
			contextLines := cfg.Merge.ContextLines

			var diffs []diff.FileDiff
			switch {
			case len(args) == 2:
				diffs, err = r.DiffCommits(args[0], args[1], contextLines)
			case len(args) == 1:
				diffs, err = r.DiffCommits(args[0], "HEAD", contextLines)
			case staged:
				diffs, err = r.DiffStaged(contextLines)
			default:
				diffs, err = r.DiffWorktree(contextLines)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, fd := range diffs {
				fmt.Fprint(out, diff.FormatUnifiedDiff(fd))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&staged, "staged", false, "diff the index against HEAD")
	return cmd
}
