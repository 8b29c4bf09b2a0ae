package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newTagCmd() *cobra.Command {
	var deleteName string

	cmd := &cobra.Command{
		Use:   "tag [name] [ref]",
		Short: "List or create lightweight tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if deleteName != "" {
				if err := r.DeleteTag(deleteName); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted tag %s\n", deleteName)
				return nil
			}

			if len(args) >= 1 {
				target := "HEAD"
				if len(args) == 2 {
					target = args[1]
				}
				hash, err := r.ResolveRef(target)
				if err != nil {
					return err
				}
				if err := r.CreateTag(args[0], hash); err != nil {
					return err
				}
				fmt.Fprintf(out, "tagged %s at %s\n", args[0], hash.Short())
				return nil
			}

			tags, err := r.ListTags()
			if err != nil {
				return err
			}
			for _, t := range tags {
				fmt.Fprintln(out, t)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&deleteName, "delete", "d", "", "delete the named tag")
	return cmd
}
