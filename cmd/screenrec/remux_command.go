package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"screenrec/internal/config"
)

func newRemuxCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remux [dir]",
		Short: "Rewrap the newest capture in dir (default: saved destination) without re-encoding",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				expanded, err := config.ExpandPath(args[0])
				if err != nil {
					return fmt.Errorf("resolve directory: %w", err)
				}
				dir = expanded
			}
			return ctx.withBackend(func(b backend) error {
				out, err := b.Remux(cmd.Context(), dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Remuxed to %s\n", out)
				return nil
			})
		},
	}
}
