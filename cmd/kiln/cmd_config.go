package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kilnvcs/kiln/pkg/repo"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config [key] [value]",
		Short: "Get or set repository configuration",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			cfg, err := r.ReadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				fmt.Fprintf(out, "user.name = %s\n", cfg.User.Name)
				fmt.Fprintf(out, "user.email = %s\n", cfg.User.Email)
				if cfg.User.SigningKey != "" {
					fmt.Fprintf(out, "user.signing_key = %s\n", cfg.User.SigningKey)
				}
				fmt.Fprintf(out, "merge.context_lines = %d\n", cfg.Merge.ContextLines)
				return nil
			}

			key := args[0]
			if len(args) == 1 {
				switch key {
				case "user.name":
					fmt.Fprintln(out, cfg.User.Name)
				case "user.email":
					fmt.Fprintln(out, cfg.User.Email)
				case "user.signing_key":
					fmt.Fprintln(out, cfg.User.SigningKey)
				case "merge.context_lines":
					fmt.Fprintln(out, cfg.Merge.ContextLines)
				default:
					return fmt.Errorf("config: unknown key %q", key)
				}
				return nil
			}

			value := args[1]
			switch key {
			case "user.name":
				cfg.User.Name = value
			case "user.email":
				cfg.User.Email = value
			case "user.signing_key":
				cfg.User.SigningKey = value
			case "merge.context_lines":
				n, err := strconv.Atoi(value)
				if err != nil || n < 0 {
					return fmt.Errorf("config: %q must be a non-negative integer", key)
				}
				cfg.Merge.ContextLines = n
			default:
				return fmt.Errorf("config: unknown key %q", key)
			}
			return r.WriteConfig(cfg)
		},
	}
}
