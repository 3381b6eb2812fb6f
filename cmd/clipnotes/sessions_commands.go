package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Browse and manage submitted clips",
	}

	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsShowCommand(ctx))
	sessionsCmd.AddCommand(newSessionsDeleteCommand(ctx))
	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submitted clips, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestrator, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			if err := orchestrator.LoadHistory(cmd.Context()); err != nil {
				printRemediation(err)
				return err
			}

			state := orchestrator.Snapshot()
			if jsonOutput {
				return writeJSON(cmd, state.Entries)
			}

			out := cmd.OutOrStdout()
			if len(state.Entries) == 0 {
				fmt.Fprintln(out, "No clips submitted yet.")
				return nil
			}
			rows := make([][]string, 0, len(state.Entries))
			for _, entry := range state.Entries {
				rows = append(rows, []string{
					entry.ClipID.String(),
					entry.Filename,
					formatStatus(out, entry.Status),
					formatTimestamp(entry.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Clip ID", "Filename", "Status", "Submitted"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <clip-id>",
		Short: "Show a clip with its latest analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clipID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid clip id %q: %w", args[0], err)
			}
			orchestrator, err := ctx.orchestrator()
			if err != nil {
				return err
			}

			entry, err := orchestrator.Select(cmd.Context(), clipID)
			if err != nil {
				printRemediation(err)
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, entry)
			}
			printEntry(cmd, entry)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newSessionsDeleteCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <clip-id>",
		Short: "Delete a clip's stored asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clipID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid clip id %q: %w", args[0], err)
			}
			orchestrator, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			if err := orchestrator.LoadHistory(cmd.Context()); err != nil {
				printRemediation(err)
				return err
			}
			if err := orchestrator.Delete(cmd.Context(), clipID); err != nil {
				printRemediation(err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted clip %s\n", clipID)
			return nil
		},
	}
	return cmd
}
