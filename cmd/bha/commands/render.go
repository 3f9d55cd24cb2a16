package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/buildtrace/bha/internal/config"
	"github.com/buildtrace/bha/internal/render/plot"
	"github.com/buildtrace/bha/pkg/bha/pipeline"
)

// renderCommand holds the flag state for `bha render`.
type renderCommand struct {
	configFile string
	output     string
}

// NewRenderCommand creates the `render` subcommand: run the pipeline
// over a trace and write a self-contained HTML percentile/top-files
// page.
func NewRenderCommand() *cobra.Command {
	rc := &renderCommand{}

	cmd := &cobra.Command{
		Use:   "render <trace.json>",
		Short: "Render an HTML build-time chart for a trace",
		Args:  cobra.ExactArgs(1),
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.configFile, "config", "", "Configuration file path")
	cmd.Flags().StringVarP(&rc.output, "output", "o", "bha-report.html", "Output HTML file path")

	return cmd
}

func (rc *renderCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rc.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bt, err := loadBuildTrace(args[0])
	if err != nil {
		return err
	}

	result, err := pipeline.Run(context.Background(), bt, pipelineOptions(cfg))
	if err != nil {
		return fmt.Errorf("render %s: %w", args[0], err)
	}

	f, err := os.Create(rc.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", rc.output, err)
	}
	defer f.Close()

	if err := plot.Render(result.Performance, f); err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", rc.output)

	return nil
}
