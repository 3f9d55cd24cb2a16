package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buildtrace/bha/internal/config"
	"github.com/buildtrace/bha/internal/render"
	"github.com/buildtrace/bha/pkg/bha/snapshot"
)

// compareCommand holds the flag state for `bha compare`.
type compareCommand struct {
	configFile string
	noColor    bool
}

// NewCompareCommand creates the `compare` subcommand: diff two saved
// snapshots and report regressions/improvements. It exits 1 when the
// build time regressed and the change is significant.
func NewCompareCommand() *cobra.Command {
	cc := &compareCommand{}

	cmd := &cobra.Command{
		Use:   "compare <old> <new>",
		Short: "Compare two saved snapshots",
		Args:  cobra.ExactArgs(2),
		RunE:  cc.run,
	}

	cmd.Flags().StringVar(&cc.configFile, "config", "", "Configuration file path")
	cmd.Flags().BoolVar(&cc.noColor, "no-color", false, "Disable colored table output")

	return cmd
}

func (cc *compareCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cc.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	oldSnap, err := store.Load(args[0])
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", args[0], err)
	}

	newSnap, err := store.Load(args[1])
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", args[1], err)
	}

	cmp := snapshot.Compare(oldSnap, newSnap, cfg.Suggest.SignificanceThreshold)

	fmt.Fprintf(cmd.OutOrStdout(), "build time: %.1fms -> %+.1f%% (%s)\n",
		cmp.BuildTimeDeltaMs, cmp.BuildTimePercentChange, significanceLabel(cmp))
	fmt.Fprintln(cmd.OutOrStdout(), render.Comparison(cmp, cc.noColor))

	if cmp.IsRegression && cmp.IsSignificant {
		cmd.SilenceUsage = true

		return fmt.Errorf("build time regressed by %.1f%%", cmp.BuildTimePercentChange)
	}

	return nil
}

func significanceLabel(cmp snapshot.ComparisonResult) string {
	if cmp.IsSignificant {
		return "significant"
	}

	return "not significant"
}
