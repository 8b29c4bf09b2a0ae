package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newLogCmd() *cobra.Command {
	var limit int
	var oneline bool

	cmd := &cobra.Command{
		Use:   "log [ref]",
		Short: "Show commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			start := "HEAD"
			if len(args) == 1 {
				start = args[0]
			}

			entries, err := r.History(start, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				if oneline {
					fmt.Fprintf(out, "%s %s\n", e.Hash.Short(), firstLineOf(e.Commit.Message))
					continue
				}
				fmt.Fprintf(out, "commit %s\n", e.Hash)
				if len(e.Commit.Parents) > 1 {
					shorts := make([]string, len(e.Commit.Parents))
					for i, p := range e.Commit.Parents {
						shorts[i] = p.Short()
					}
					fmt.Fprintf(out, "merge: %s\n", strings.Join(shorts, " "))
				}
				fmt.Fprintf(out, "author: %s <%s>\n", e.Commit.AuthorName, e.Commit.AuthorEmail)
				fmt.Fprintf(out, "date:   %s\n", time.Unix(e.Commit.Timestamp, 0).Format(time.RFC1123))
				if e.Commit.Signature != "" {
					fmt.Fprintln(out, "signed")
				}
				fmt.Fprintln(out)
				for _, line := range strings.Split(strings.TrimRight(e.Commit.Message, "\n"), "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits")
	cmd.Flags().BoolVar(&oneline, "oneline", false, "one line per commit")
	return cmd
}

func firstLineOf(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
