package main

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clipnotes/internal/reasoning"
)

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "metrics <clip-id>",
		Short: "Show aggregated analysis metrics for a clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clipID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid clip id %q: %w", args[0], err)
			}
			client, logger, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			coordinator := reasoning.NewCoordinator(client, reasoning.WithCoordinatorLogger(logger))

			metrics, err := coordinator.Metrics(cmd.Context(), clipID)
			if err != nil {
				printRemediation(err)
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, metrics)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(metrics.CountsByLabel))
			for _, label := range sortedKeys(metrics.CountsByLabel) {
				rows = append(rows, []string{
					label,
					fmt.Sprintf("%d", metrics.CountsByLabel[label]),
					fmt.Sprintf("%.2fs", metrics.DurationsByLabel[label]),
				})
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Label", "Count", "Duration"}, rows,
					[]columnAlignment{alignLeft, alignRight, alignRight}))
			}

			severityRows := make([][]string, 0, len(metrics.SeverityDistribution))
			for _, severity := range sortedKeys(metrics.SeverityDistribution) {
				severityRows = append(severityRows, []string{
					titleCase(severity),
					fmt.Sprintf("%.0f%%", metrics.SeverityDistribution[severity]*100),
				})
			}
			if len(severityRows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Severity", "Share"}, severityRows,
					[]columnAlignment{alignLeft, alignRight}))
			}
			if len(rows) == 0 && len(severityRows) == 0 {
				fmt.Fprintln(out, "No metrics recorded for this clip.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of tables")
	return cmd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
