package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe backend liveness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			if err := client.Health(cmd.Context()); err != nil {
				printRemediation(err)
				return fmt.Errorf("backend unreachable: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backend healthy at %s\n", client.BaseURL())
			return nil
		},
	}
}
