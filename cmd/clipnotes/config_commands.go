package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipnotes/internal/config"
	"clipnotes/internal/settings"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Local and backend configuration",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigPathCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigSetCommand(ctx, "set-model", "Update backend model parameters", settings.SectionModel))
	configCmd.AddCommand(newConfigSetCommand(ctx, "set-flag", "Update backend feature flags", settings.SectionFlags))
	configCmd.AddCommand(newConfigSetCommand(ctx, "set-theme", "Update backend theme overrides", settings.SectionTheme))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set base_url and api_token (or export CLIPNOTES_API_TOKEN) before submitting clips.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the resolved configuration file path",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var flagPath string
			if ctx.configFlag != nil {
				flagPath = strings.TrimSpace(*ctx.configFlag)
			}
			_, resolved, exists, err := config.Load(flagPath)
			if err != nil {
				return err
			}
			status := "missing; defaults in effect"
			if exists {
				status = "present"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", resolved, status)
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the backend configuration snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.settingsManager()
			if err != nil {
				return err
			}
			if err := manager.Refresh(cmd.Context()); err != nil {
				printRemediation(err)
				return err
			}

			snapshot := manager.Snapshot()
			if jsonOutput {
				return writeJSON(cmd, snapshot.Config)
			}

			out := cmd.OutOrStdout()
			rows := [][]string{}
			for _, key := range sortedKeys(snapshot.Config.ModelParams) {
				rows = append(rows, []string{"model", key, fmt.Sprintf("%v", snapshot.Config.ModelParams[key])})
			}
			for _, key := range sortedKeys(snapshot.Config.FeatureFlags) {
				rows = append(rows, []string{"flags", key, fmt.Sprintf("%v", snapshot.Config.FeatureFlags[key])})
			}
			for _, key := range sortedKeys(snapshot.Config.ThemeOverrides) {
				rows = append(rows, []string{"theme", key, fmt.Sprintf("%v", snapshot.Config.ThemeOverrides[key])})
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "Backend configuration is empty.")
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"Section", "Key", "Value"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft}))
			if !snapshot.Config.UpdatedAt.IsZero() {
				fmt.Fprintf(out, "Last updated %s", formatTimestamp(snapshot.Config.UpdatedAt))
				if snapshot.Config.UpdatedBy != "" {
					fmt.Fprintf(out, " by %s", snapshot.Config.UpdatedBy)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newConfigSetCommand(ctx *commandContext, use, short string, section settings.Section) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <key=value>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseKeyValues(args)
			if err != nil {
				return err
			}

			manager, err := ctx.settingsManager()
			if err != nil {
				return err
			}
			if err := manager.Refresh(cmd.Context()); err != nil {
				printRemediation(err)
				return err
			}

			merged := mergedSection(manager.Snapshot(), section)
			for key, value := range values {
				merged[key] = value
			}

			switch section {
			case settings.SectionModel:
				err = manager.SaveModelParams(cmd.Context(), merged)
			case settings.SectionFlags:
				err = manager.SaveFlags(cmd.Context(), merged)
			case settings.SectionTheme:
				err = manager.SaveTheme(cmd.Context(), merged)
			}
			if err != nil {
				printRemediation(err)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d %s value(s)\n", len(values), section)
			return nil
		},
	}
	return cmd
}

func mergedSection(snapshot settings.Snapshot, section settings.Section) map[string]any {
	var source map[string]any
	switch section {
	case settings.SectionModel:
		source = snapshot.Config.ModelParams
	case settings.SectionFlags:
		source = snapshot.Config.FeatureFlags
	case settings.SectionTheme:
		source = snapshot.Config.ThemeOverrides
	}
	merged := make(map[string]any, len(source))
	for key, value := range source {
		merged[key] = value
	}
	return merged
}

// parseKeyValues turns key=value arguments into a map, coercing booleans and
// numbers so flags round-trip with their natural JSON types.
func parseKeyValues(args []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, found := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		values[key] = coerceValue(strings.TrimSpace(raw))
	}
	return values, nil
}

func coerceValue(raw string) any {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if number, err := strconv.ParseFloat(raw, 64); err == nil {
		return number
	}
	return raw
}
