package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clipnotes/internal/reasoning"
)

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "compare <clip-a> <clip-b> <question...>",
		Short: "Ask the reasoning service to compare two clips",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clipA, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid clip id %q: %w", args[0], err)
			}
			clipB, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid clip id %q: %w", args[1], err)
			}
			question := strings.Join(args[2:], " ")

			client, logger, err := ctx.ensureClient()
			if err != nil {
				return err
			}

			opts := []reasoning.CoordinatorOption{reasoning.WithCoordinatorLogger(logger)}
			if cache, cacheErr := ctx.openCache(); cacheErr == nil && cache != nil {
				defer cache.Close()
				opts = append(opts, reasoning.WithRecorder(cache))
			}
			coordinator := reasoning.NewCoordinator(client, opts...)

			result, err := coordinator.Compare(cmd.Context(), clipA, clipB, question)
			if err != nil {
				printRemediation(err)
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, result)
			}
			printComparison(cmd, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of tables")
	return cmd
}

func printComparison(cmd *cobra.Command, result *reasoning.ComparisonResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Answer:     %s\n", answerLabel(result.Answer))
	fmt.Fprintf(out, "Confidence: %s\n", formatConfidence(result.Confidence))
	if result.Explanation != "" {
		fmt.Fprintf(out, "\n%s\n", result.Explanation)
	}

	if len(result.Evidence) > 0 {
		rows := make([][]string, 0, len(result.Evidence))
		for _, evidence := range result.Evidence {
			rows = append(rows, []string{
				evidence.ClipID,
				evidence.Label,
				formatRange(evidence.Range),
				truncate(evidence.Description, 60),
			})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]string{"Clip", "Label", "Range", "Description"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}))
	}

	if !result.Metrics.Empty() {
		rows := make([][]string, 0, len(result.Metrics.CountsByLabel)+len(result.Metrics.SeverityDistribution))
		for _, label := range sortedKeys(result.Metrics.CountsByLabel) {
			rows = append(rows, []string{"count", label, fmt.Sprintf("%d", result.Metrics.CountsByLabel[label])})
		}
		for _, severity := range sortedKeys(result.Metrics.SeverityDistribution) {
			rows = append(rows, []string{"severity", severity, fmt.Sprintf("%.2f", result.Metrics.SeverityDistribution[severity])})
		}
		fmt.Fprintln(out, renderTable([]string{"Metric", "Key", "Value"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight}))
	}
}
