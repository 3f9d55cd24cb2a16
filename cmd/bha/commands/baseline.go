package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buildtrace/bha/internal/config"
)

// NewBaselineCommand creates the `baseline` command group: set, show,
// and clear the baseline snapshot pointer independent of a compare
// invocation (ported from the original's baseline_cmd.cpp).
func NewBaselineCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage the baseline snapshot pointer",
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")

	cmd.AddCommand(
		newBaselineSetCommand(&configFile),
		newBaselineShowCommand(&configFile),
		newBaselineClearCommand(&configFile),
	)

	return cmd
}

func newBaselineSetCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Set the baseline snapshot by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			if err := store.SetBaseline(args[0]); err != nil {
				return fmt.Errorf("set baseline %s: %w", args[0], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "baseline set to %q\n", args[0])

			return nil
		},
	}
}

func newBaselineShowCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current baseline snapshot name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			name, err := store.Baseline()
			if err != nil {
				return fmt.Errorf("read baseline: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), name)

			return nil
		},
	}
}

func newBaselineClearCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the baseline snapshot pointer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			if err := store.ClearBaseline(); err != nil {
				return fmt.Errorf("clear baseline: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "baseline cleared")

			return nil
		},
	}
}
