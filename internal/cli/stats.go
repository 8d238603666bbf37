package cli

import (
	"github.com/spf13/cobra"
)

var statsFlags struct {
	project string
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsFlags.project, "project", "", "restrict to one project")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	total, err := app.Store.CountObservations(statsFlags.project)
	if err != nil {
		return err
	}
	byType, err := app.Store.CountsByType(statsFlags.project)
	if err != nil {
		return err
	}
	stale, err := app.Store.CountStale(statsFlags.project)
	if err != nil {
		return err
	}
	embedded, err := app.Store.CountEmbeddings()
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"observations": total,
		"by_type":      byType,
		"stale":        stale,
		"embedded":     embedded,
		"database":     app.Config.DBPath,
	})
}
