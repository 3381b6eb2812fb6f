package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newChatCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "chat <clip-id> <prompt...>",
		Short: "Ask a follow-up question about a submitted clip",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clipID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid clip id %q: %w", args[0], err)
			}
			prompt := strings.Join(args[1:], " ")

			orchestrator, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			if err := orchestrator.LoadHistory(cmd.Context()); err != nil {
				printRemediation(err)
				return err
			}

			reply, err := orchestrator.SendChat(cmd.Context(), clipID, prompt)
			if err != nil {
				printRemediation(err)
				return err
			}

			if cache, cacheErr := ctx.openCache(); cacheErr == nil && cache != nil {
				defer cache.Close()
				selection := []uuid.UUID{clipID}
				_ = cache.Append(cmd.Context(), selection, "user", prompt)
				_ = cache.Append(cmd.Context(), selection, "assistant", reply.Content)
			}

			if jsonOutput {
				return writeJSON(cmd, reply)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of plain text")
	return cmd
}
