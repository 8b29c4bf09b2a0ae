package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newMergeCmd() *cobra.Command {
	var (
		abort    bool
		cont     bool
		noFF     bool
		noCommit bool
		squash   bool
		message  string
	)

	cmd := &cobra.Command{
		Use:   "merge [branch]",
		Short: "Merge a branch into the current branch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case abort:
				if err := r.AbortMerge(); err != nil {
					return err
				}
				fmt.Fprintln(out, "merge aborted")
				_ = r.Journal(repo.JournalEntry{Action: "merge-abort"})
				return nil

			case cont:
				hash, err := r.ContinueMerge(message, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "merge completed: %s\n", hash.Short())
				_ = r.Journal(repo.JournalEntry{Action: "merge-continue", AfterHead: hash})
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("merge: branch name required")
			}
			source := args[0]
			current, err := r.CurrentBranch()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "merging %s into %s...\n", source, current)

			before := r.JournalHead()
			result, err := r.Merge(source, repo.MergeOptions{
				NoCommit:      noCommit,
				NoFastForward: noFF,
				Squash:        squash,
				Message:       message,
			})
			if err != nil {
				return err
			}

			switch {
			case result.UpToDate:
				fmt.Fprintln(out, "already up to date")
			case result.FastForward:
				fmt.Fprintf(out, "fast-forwarded to %s\n", result.CommitHash.Short())
			case len(result.Conflicts) > 0:
				for _, p := range result.Conflicts {
					fmt.Fprintf(out, "  conflict: %s\n", p)
				}
				fmt.Fprintf(out, "merge stopped with %d conflicted file(s)\n", len(result.Conflicts))
				fmt.Fprintln(out, "resolve each file, then run: kiln resolve <path> and kiln merge --continue")
			case result.Success && result.CommitHash != "":
				for _, p := range result.AutoMerged {
					fmt.Fprintf(out, "  merged: %s\n", p)
				}
				fmt.Fprintf(out, "[%s %s] merge completed cleanly\n", current, result.CommitHash.Short())
			default:
				fmt.Fprintln(out, "merge staged; commit when ready")
			}

			_ = r.Journal(repo.JournalEntry{
				Action:     "merge",
				Args:       []string{source},
				BeforeHead: before,
				AfterHead:  r.JournalHead(),
			})
			return nil
		},
	}
	cmd.Flags().BoolVar(&abort, "abort", false, "abort the in-progress merge")
	cmd.Flags().BoolVar(&cont, "continue", false, "complete the in-progress merge")
	cmd.Flags().BoolVar(&noFF, "no-ff", false, "always create a merge commit")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "stage the merge without committing")
	cmd.Flags().BoolVar(&squash, "squash", false, "record the result as a single-parent commit")
	cmd.Flags().StringVarP(&message, "message", "m", "", "merge commit message")
	return cmd
}
