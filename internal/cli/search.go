package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/retriever"
)

var searchFlags struct {
	project string
	limit   int
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored memory",
	Long: `Search the memory store with hybrid retrieval: full-text match and
semantic similarity run in parallel and their signals are blended
with recency and project affinity. Without an embedding provider the
search degrades to full-text only.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchFlags.project, "project", "", "boost and filter by project")
	searchCmd.Flags().IntVar(&searchFlags.limit, "limit", retriever.DefaultLimit, "maximum results")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	results, err := app.Retriever.Search(cmd.Context(), strings.Join(args, " "), retriever.Options{
		Project: searchFlags.project,
		Limit:   searchFlags.limit,
	})
	if err != nil {
		return err
	}

	return printJSON(results)
}
