package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newCommitCmd() *cobra.Command {
	var message string
	var sign bool
	var keyPath string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record the staged tree as a new commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			var signer repo.CommitSigner
			if sign {
				s, resolved, err := r.NewSSHSigner(keyPath)
				if err != nil {
					return err
				}
				signer = s
				fmt.Fprintf(cmd.OutOrStdout(), "signing with %s\n", resolved)
			}

			before := r.JournalHead()
			hash, err := r.Commit(repo.CommitOptions{Message: message, Signer: signer})
			if err != nil {
				return err
			}

			branch, _ := r.CurrentBranch()
			if branch == "" {
				branch = "detached"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, hash.Short(), firstLineOf(message))

			_ = r.Journal(repo.JournalEntry{
				Action:      "commit",
				Description: firstLineOf(message),
				BeforeHead:  before,
				AfterHead:   hash,
			})
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with an SSH key")
	cmd.Flags().StringVar(&keyPath, "key", "", "path to the SSH private key (default: user.signing_key, then ~/.ssh)")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
