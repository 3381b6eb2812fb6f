package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipnotes/internal/api"
)

func newKeysCommand(ctx *commandContext) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the reasoning-service API key",
	}

	keysCmd.AddCommand(newKeysStatusCommand(ctx))
	keysCmd.AddCommand(newKeysSetCommand(ctx))
	keysCmd.AddCommand(newKeysClearCommand(ctx))
	return keysCmd
}

func newKeysStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether a reasoning-service key is configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.settingsManager()
			if err != nil {
				return err
			}
			status, err := manager.KeyStatus(cmd.Context())
			if err != nil {
				printRemediation(err)
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			printKeyStatus(cmd, status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of plain text")
	return cmd
}

func newKeysSetCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Store a reasoning-service API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.settingsManager()
			if err != nil {
				return err
			}
			status, err := manager.SetKey(cmd.Context(), args[0])
			if err != nil {
				printRemediation(err)
				return err
			}
			printKeyStatus(cmd, status)
			return nil
		},
	}
	return cmd
}

func newKeysClearCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored reasoning-service API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.settingsManager()
			if err != nil {
				return err
			}
			status, err := manager.ClearKey(cmd.Context())
			if err != nil {
				printRemediation(err)
				return err
			}
			printKeyStatus(cmd, status)
			return nil
		},
	}
	return cmd
}

func printKeyStatus(cmd *cobra.Command, status *api.KeyStatus) {
	out := cmd.OutOrStdout()
	if status.Configured {
		fmt.Fprint(out, "Key configured")
		if status.LastUpdated != nil {
			fmt.Fprintf(out, " (updated %s)", formatTimestamp(*status.LastUpdated))
		}
		fmt.Fprintln(out)
		return
	}
	fmt.Fprintln(out, "No key configured")
}
