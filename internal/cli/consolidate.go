package cli

import (
	"github.com/spf13/cobra"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/decay"
)

var consolidateFlags struct {
	project      string
	minGroupSize int
	dryRun       bool
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Merge near-duplicate observations",
	Long: `Collapse groups of observations that share project, type and
modified files into one surviving observation each. With --dry-run
the pass reports what it would merge without changing anything.`,
	RunE: runConsolidate,
}

func init() {
	consolidateCmd.Flags().StringVar(&consolidateFlags.project, "project", "", "restrict to one project")
	consolidateCmd.Flags().IntVar(&consolidateFlags.minGroupSize, "min-group-size", 0, "minimum duplicates before a group merges (default from config)")
	consolidateCmd.Flags().BoolVar(&consolidateFlags.dryRun, "dry-run", false, "report without merging")

	rootCmd.AddCommand(consolidateCmd)
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	minSize := consolidateFlags.minGroupSize
	if minSize <= 0 {
		minSize = app.Config.Decay.MinGroupSize
	}

	result, err := app.Sweeper.Consolidate(decay.ConsolidateOptions{
		Project:      consolidateFlags.project,
		MinGroupSize: minSize,
		DryRun:       consolidateFlags.dryRun,
	})
	if err != nil {
		return err
	}

	return printJSON(result)
}
