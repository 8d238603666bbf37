package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backfillFlags struct {
	batchSize int
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed observations that have no vector yet",
	Long: `Embed stored observations that were recorded without an embedding,
oldest first, in batches. Requires a configured embedding provider.`,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().IntVar(&backfillFlags.batchSize, "batch-size", 50, "observations per embedding request")

	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if !app.Provider.Available(cmd.Context()) {
		return fmt.Errorf("no embedding provider available; configure an OpenAI API key first")
	}

	stored, err := app.Vector.Backfill(cmd.Context(), app.Provider.Provider(), backfillFlags.batchSize)
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"embedded": stored,
	})
}
