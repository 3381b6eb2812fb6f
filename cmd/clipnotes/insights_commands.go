package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipnotes/internal/api"
)

func newInsightsCommand(ctx *commandContext) *cobra.Command {
	insightsCmd := &cobra.Command{
		Use:   "insights",
		Short: "Aggregated activity insights",
	}

	insightsCmd.AddCommand(newInsightsShowCommand(ctx))
	insightsCmd.AddCommand(newInsightsRegenerateCommand(ctx))
	insightsCmd.AddCommand(newInsightsShareCommand(ctx))
	insightsCmd.AddCommand(newInsightsSharedCommand(ctx))
	return insightsCmd
}

func newInsightsShowCommand(ctx *commandContext) *cobra.Command {
	var window string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the insight summary for a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			snapshot, err := client.GetInsights(cmd.Context(), window)
			if err != nil {
				printRemediation(err)
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, snapshot)
			}
			printInsightSnapshot(cmd, snapshot)
			return nil
		},
	}

	cmd.Flags().StringVarP(&window, "window", "w", api.InsightWindowDay, "Aggregation window (24h or 7d)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of tables")
	return cmd
}

func newInsightsRegenerateCommand(ctx *commandContext) *cobra.Command {
	var window string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Rebuild the insight summary, bypassing the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			snapshot, err := client.RegenerateInsights(cmd.Context(), window)
			if err != nil {
				printRemediation(err)
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, snapshot)
			}
			printInsightSnapshot(cmd, snapshot)
			return nil
		},
	}

	cmd.Flags().StringVarP(&window, "window", "w", api.InsightWindowDay, "Aggregation window (24h or 7d)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of tables")
	return cmd
}

func newInsightsShareCommand(ctx *commandContext) *cobra.Command {
	var window string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Create a read-only share link for a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			share, err := client.CreateInsightShare(cmd.Context(), window)
			if err != nil {
				printRemediation(err)
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, share)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Share token: %s\n", share.Token)
			fmt.Fprintf(out, "URL:         %s\n", share.URL)
			fmt.Fprintf(out, "Window:      %s (generated %s)\n", share.Window, formatTimestamp(share.GeneratedAt))
			if share.CacheExpiresAt != nil {
				fmt.Fprintf(out, "Expires:     %s\n", formatTimestamp(*share.CacheExpiresAt))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&window, "window", "w", api.InsightWindowDay, "Aggregation window (24h or 7d)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of plain text")
	return cmd
}

func newInsightsSharedCommand(ctx *commandContext) *cobra.Command {
	var window string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "shared <token>",
		Short: "Fetch the snapshot behind a share token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			snapshot, err := client.GetInsightShare(cmd.Context(), args[0], window)
			if err != nil {
				printRemediation(err)
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, snapshot)
			}
			printInsightSnapshot(cmd, snapshot)
			return nil
		},
	}

	cmd.Flags().StringVarP(&window, "window", "w", "", "Override the share's aggregation window (24h or 7d)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of tables")
	return cmd
}

func printInsightSnapshot(cmd *cobra.Command, snapshot *api.InsightSnapshot) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Window:    %s (generated %s)\n", snapshot.Window, formatTimestamp(snapshot.GeneratedAt))
	if snapshot.SummarySource == "fallback" {
		fmt.Fprintln(out, "Source:    heuristic fallback (reasoning service unavailable)")
	}
	if snapshot.Summary != "" {
		fmt.Fprintf(out, "\n%s\n", snapshot.Summary)
	}

	totals := snapshot.SeverityTotals
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]string{"Severity", "Count"}, [][]string{
		{"Low", fmt.Sprintf("%d", totals.Low)},
		{"Medium", fmt.Sprintf("%d", totals.Medium)},
		{"High", fmt.Sprintf("%d", totals.High)},
	}, []columnAlignment{alignLeft, alignRight}))

	if len(snapshot.TopLabels) > 0 {
		rows := make([][]string, 0, len(snapshot.TopLabels))
		for _, label := range snapshot.TopLabels {
			avg := "-"
			if label.AvgSeverity != nil {
				avg = fmt.Sprintf("%.2f", *label.AvgSeverity)
			}
			rows = append(rows, []string{label.Label, fmt.Sprintf("%d", label.Count), avg})
		}
		fmt.Fprintln(out, renderTable([]string{"Label", "Count", "Avg Severity"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignRight}))
	}

	if len(snapshot.Series) > 0 {
		rows := make([][]string, 0, len(snapshot.Series))
		for _, bucket := range snapshot.Series {
			rows = append(rows, []string{
				formatTimestamp(bucket.BucketStart),
				fmt.Sprintf("%d", bucket.Total),
				fmt.Sprintf("%d/%d/%d", bucket.Severity.Low, bucket.Severity.Medium, bucket.Severity.High),
			})
		}
		fmt.Fprintln(out, renderTable([]string{"Bucket", "Total", "Low/Med/High"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignRight}))
	}
}
