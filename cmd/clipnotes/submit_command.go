package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"clipnotes/internal/session"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Register, upload, and analyze a clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestrator, err := ctx.orchestrator()
			if err != nil {
				return err
			}

			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open clip file: %w", err)
			}
			defer file.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			entry, err := orchestrator.Submit(runCtx, filepath.Base(path), file)
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

func printEntry(cmd *cobra.Command, entry *session.Entry) {
	out := cmd.OutOrStdout()

	rows := [][]string{
		{"Clip ID", entry.ClipID.String()},
		{"Asset ID", entry.AssetID},
		{"Filename", entry.Filename},
		{"Status", formatStatus(out, entry.Status)},
		{"Submitted", formatTimestamp(entry.CreatedAt)},
	}
	if entry.Analysis != nil {
		rows = append(rows, []string{"Summary", truncate(entry.Analysis.Summary, 80)})
		rows = append(rows, []string{"Latency", fmt.Sprintf("%d ms", entry.Analysis.LatencyMS)})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))

	if entry.Analysis == nil || len(entry.Analysis.Moments) == 0 {
		return
	}
	momentRows := make([][]string, 0, len(entry.Analysis.Moments))
	for _, moment := range entry.Analysis.Moments {
		momentRows = append(momentRows, []string{
			formatRange(&[2]float64{moment.StartS, moment.EndS}),
			moment.Label,
			titleCase(string(moment.Severity)),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Range", "Label", "Severity"}, momentRows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft}))
}
