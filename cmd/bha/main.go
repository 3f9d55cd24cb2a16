// Command bha analyses compiler-emitted build traces to find build
// hotspots, dependency bottlenecks, and optimisation opportunities,
// and compares builds over time via named snapshots.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/buildtrace/bha/cmd/bha/commands"
	"github.com/buildtrace/bha/internal/observability"
	"github.com/buildtrace/bha/pkg/version"
)

func main() {
	rootCmd := newRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitError)
	}
}

func newRootCommand() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	rootCmd := &cobra.Command{
		Use:           "bha",
		Short:         "Build Hotspot Analyzer",
		Long:          "bha analyses compiler build traces to find hotspots, dependency bottlenecks, and optimisation opportunities.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			providers, err := observability.Init(observability.Config{
				ServiceName:    "bha",
				ServiceVersion: version.Version,
				LogLevel:       parseLevel(logLevel),
				LogFormat:      logFormat,
			})
			if err != nil {
				return fmt.Errorf("init observability: %w", err)
			}

			commands.Providers = providers

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format: json, text")

	rootCmd.AddCommand(
		commands.NewAnalyzeCommand(),
		commands.NewRecordCommand(),
		commands.NewCompareCommand(),
		commands.NewBaselineCommand(),
		commands.NewSnapshotCommand(),
		commands.NewSuggestCommand(),
		commands.NewRenderCommand(),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the bha version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "bha %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)

			return nil
		},
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}

	return level
}
