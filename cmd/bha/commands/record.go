package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/buildtrace/bha/internal/config"
	"github.com/buildtrace/bha/pkg/bha/pipeline"
	"github.com/buildtrace/bha/pkg/bha/snapshot"
)

// recordCommand holds the flag state for `bha record`.
type recordCommand struct {
	configFile  string
	save        string
	description string
	gitCommit   string
	gitBranch   string
	tags        []string
}

// NewRecordCommand creates the `record` subcommand: run the pipeline
// once against an already-decoded trace and optionally save the
// result as a named snapshot in the same invocation.
func NewRecordCommand() *cobra.Command {
	rc := &recordCommand{}

	cmd := &cobra.Command{
		Use:   "record <trace.json>",
		Short: "Run the pipeline once over a trace and optionally save a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.configFile, "config", "", "Configuration file path")
	cmd.Flags().StringVar(&rc.save, "save", "", "Save the result as a snapshot under this name")
	cmd.Flags().StringVar(&rc.description, "description", "", "Snapshot description")
	cmd.Flags().StringVar(&rc.gitCommit, "git-commit", "", "Git commit to record in snapshot metadata")
	cmd.Flags().StringVar(&rc.gitBranch, "git-branch", "", "Git branch to record in snapshot metadata")
	cmd.Flags().StringSliceVar(&rc.tags, "tag", nil, "Tag to attach to the saved snapshot (repeatable)")

	return cmd
}

func (rc *recordCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rc.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bt, err := loadBuildTrace(args[0])
	if err != nil {
		return err
	}

	start := time.Now()

	result, err := pipeline.Run(context.Background(), bt, pipelineOptions(cfg))
	if err != nil {
		recordLimiterRejection(err)

		return fmt.Errorf("record %s: %w", args[0], err)
	}

	recordPipelineMetrics(result, time.Since(start))

	result.RunID = uuid.NewString()

	fmt.Fprintf(cmd.OutOrStdout(), "analyzed %d files in %.1fms (run %s)\n",
		result.FileCount, result.TotalBuildTime.Milliseconds(), result.RunID)

	if rc.save == "" {
		return nil
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	snap := snapshot.FromAnalysisResult(result, snapshot.Meta{
		Name:        rc.save,
		Description: rc.description,
		GitCommit:   rc.gitCommit,
		GitBranch:   rc.gitBranch,
		Tags:        rc.tags,
	}, time.Now())

	if err := store.Save(snap); err != nil {
		return fmt.Errorf("save snapshot %s: %w", rc.save, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "saved snapshot %q\n", rc.save)

	return nil
}
