package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [ref]",
		Short: "Verify the SSH signature on a commit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			ref := "HEAD"
			if len(args) == 1 {
				ref = args[0]
			}
			hash, err := r.ResolveRef(ref)
			if err != nil {
				return err
			}
			commit, err := r.Store.ReadCommit(hash)
			if err != nil {
				return err
			}
			if err := repo.VerifyCommitSignature(commit); err != nil {
				return fmt.Errorf("verify %s: %w", hash.Short(), err)
			}

			sig, err := repo.ParseSSHSignature(commit.Signature)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s signed with %s\n", hash.Short(), sig.Algorithm)
			return nil
		},
	}
}
