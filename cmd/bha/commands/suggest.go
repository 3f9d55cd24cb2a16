package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buildtrace/bha/internal/config"
	"github.com/buildtrace/bha/pkg/bha/snapshot"
)

// suggestCommand holds the flag state for `bha suggest`.
type suggestCommand struct {
	configFile     string
	minConfidence  float64
	includeUnsafe  bool
	maxSuggestions int
}

// NewSuggestCommand creates the `suggest` subcommand: re-filter a
// saved snapshot's suggestions against the configured policy knobs
// without re-running the full pipeline.
func NewSuggestCommand() *cobra.Command {
	sc := &suggestCommand{}

	cmd := &cobra.Command{
		Use:   "suggest <snapshot>",
		Short: "Print a saved snapshot's suggestions, filtered by policy",
		Args:  cobra.ExactArgs(1),
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.configFile, "config", "", "Configuration file path")
	cmd.Flags().Float64Var(&sc.minConfidence, "min-confidence", 0, "Minimum confidence to include")
	cmd.Flags().BoolVar(&sc.includeUnsafe, "include-unsafe", true, "Include suggestions that require a source-code edit")
	cmd.Flags().IntVar(&sc.maxSuggestions, "max-suggestions", 0, "Cap the number of printed suggestions (0 = no cap)")

	return cmd
}

func (sc *suggestCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(sc.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	snap, err := store.Load(args[0])
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", args[0], err)
	}

	filtered := filterSuggestions(snap.Suggestions, sc.minConfidence, sc.includeUnsafe, sc.maxSuggestions)

	for _, s := range filtered {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s (%s, confidence %.2f, saves %.1fms)\n",
			s.Priority, s.Title, s.Type, s.Confidence, s.EstimatedSavingsMs)
	}

	return nil
}

// filterSuggestions applies the suggest command's policy knobs to an
// already-ranked list of stored suggestions. The snapshot's
// suggestions are already sorted by (priority, estimated savings) at
// save time; filtering preserves that order rather than recomputing it.
func filterSuggestions(all []snapshot.SuggestionDoc, minConfidence float64, includeUnsafe bool, max int) []snapshot.SuggestionDoc {
	out := make([]snapshot.SuggestionDoc, 0, len(all))

	for _, s := range all {
		if s.Confidence < minConfidence {
			continue
		}

		if !includeUnsafe && !s.IsSafe {
			continue
		}

		out = append(out, s)
	}

	if max > 0 && len(out) > max {
		out = out[:max]
	}

	return out
}
