package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buildtrace/bha/internal/config"
)

// NewSnapshotCommand creates the `snapshot` command group for
// inspecting the snapshot store directly (list, delete) without
// running a comparison.
func NewSnapshotCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect saved snapshots",
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")

	cmd.AddCommand(
		newSnapshotListCommand(&configFile),
		newSnapshotDeleteCommand(&configFile),
	)

	return cmd
}

func newSnapshotListCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots, newest first",
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

			infos, err := store.List()
			if err != nil {
				return fmt.Errorf("list snapshots: %w", err)
			}

			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", info.Name, info.CreatedAt.Format("2006-01-02T15:04:05Z"))
			}

			return nil
		},
	}
}

func newSnapshotDeleteCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved snapshot",
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

			if err := store.Delete(args[0]); err != nil {
				return fmt.Errorf("delete snapshot %s: %w", args[0], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", args[0])

			return nil
		},
	}
}
