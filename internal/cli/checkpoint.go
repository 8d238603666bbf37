package cli

import (
	"github.com/spf13/cobra"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
)

var checkpointFlags struct {
	project     string
	description string
	limit       int
}

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Record and list project checkpoints",
}

var checkpointAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Record a named checkpoint for a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointAdd,
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checkpoints, newest first",
	RunE:  runCheckpointList,
}

func init() {
	checkpointAddCmd.Flags().StringVar(&checkpointFlags.project, "project", "", "project the checkpoint belongs to (required)")
	checkpointAddCmd.Flags().StringVar(&checkpointFlags.description, "description", "", "optional description")
	checkpointAddCmd.MarkFlagRequired("project")

	checkpointListCmd.Flags().StringVar(&checkpointFlags.project, "project", "", "filter by project")
	checkpointListCmd.Flags().IntVar(&checkpointFlags.limit, "limit", 20, "maximum checkpoints")

	checkpointCmd.AddCommand(checkpointAddCmd)
	checkpointCmd.AddCommand(checkpointListCmd)
	rootCmd.AddCommand(checkpointCmd)
}

func runCheckpointAdd(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	id, err := app.Store.InsertCheckpoint(store.Checkpoint{
		Project:     checkpointFlags.project,
		Title:       args[0],
		Description: checkpointFlags.description,
	})
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"status": "stored",
		"id":     id,
	})
}

func runCheckpointList(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	checkpoints, err := app.Store.ListCheckpoints(checkpointFlags.project, checkpointFlags.limit, 0, 0)
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"checkpoints": checkpoints,
	})
}
