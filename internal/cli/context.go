package cli

import (
	"github.com/spf13/cobra"
)

var contextFlags struct {
	project string
	budget  int
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Assemble session-start context",
	Long: `Assemble a token-budgeted slice of memory for the start of a
session. Knowledge observations come first, then the most relevant
recent activity, packed greedily until the budget is spent.`,
	RunE: runContext,
}

func init() {
	contextCmd.Flags().StringVar(&contextFlags.project, "project", "", "project to assemble context for")
	contextCmd.Flags().IntVar(&contextFlags.budget, "budget", 0, "token budget (default from config)")

	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, err := app.Retriever.SmartContext(contextFlags.project, contextFlags.budget)
	if err != nil {
		return err
	}

	return printJSON(ctx)
}
