package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newScopeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scope",
		Short: "Restrict operations to a subset of the tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			s, err := r.ActiveScope()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s == nil {
				fmt.Fprintln(out, "no scope active")
				return nil
			}
			if s.Name != "" {
				fmt.Fprintf(out, "scope: %s\n", s.Name)
			}
			if len(s.Include) > 0 {
				fmt.Fprintf(out, "include: %s\n", strings.Join(s.Include, ", "))
			}
			if len(s.Exclude) > 0 {
				fmt.Fprintf(out, "exclude: %s\n", strings.Join(s.Exclude, ", "))
			}
			return nil
		},
	}

	var include, exclude []string
	defineCmd := &cobra.Command{
		Use:   "define <name>",
		Short: "Define a named scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			s := &repo.Scope{Name: args[0], Include: include, Exclude: exclude}
			if err := r.SaveScope(s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved scope %s\n", args[0])
			return nil
		},
	}
	defineCmd.Flags().StringSliceVar(&include, "include", nil, "glob patterns to include")
	defineCmd.Flags().StringSliceVar(&exclude, "exclude", nil, "glob patterns to exclude")

	useCmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Activate a named scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			if err := r.UseScope(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "using scope %s\n", args[0])
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Deactivate the current scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			if err := r.UseScope(""); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "scope cleared")
			return nil
		},
	}

	cmd.AddCommand(defineCmd, useCmd, clearCmd)
	return cmd
}
