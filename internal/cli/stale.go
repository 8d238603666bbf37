package cli

import (
	"github.com/spf13/cobra"
)

var staleFlags struct {
	project string
}

var staleCmd = &cobra.Command{
	Use:   "stale",
	Short: "Flag observations whose files changed",
	Long: `Check observations against the files they modified and flag the
ones whose files changed on disk afterwards. Stale observations stay
searchable but are marked so consumers can discount them.`,
	RunE: runStale,
}

func init() {
	staleCmd.Flags().StringVar(&staleFlags.project, "project", "", "restrict to one project")

	rootCmd.AddCommand(staleCmd)
}

func runStale(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := app.Sweeper.MarkStale(staleFlags.project)
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"marked_stale": n,
	})
}
