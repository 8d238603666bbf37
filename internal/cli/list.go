package cli

import (
	"github.com/spf13/cobra"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/cursor"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
)

var listFlags struct {
	project string
	obsType string
	limit   int
	cursor  string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List observations, newest first",
	Long: `List observations in stable reverse-chronological order. The
returned cursor resumes the listing exactly where the page ended,
even while new observations keep arriving.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listFlags.project, "project", "", "filter by project")
	listCmd.Flags().StringVar(&listFlags.obsType, "type", "", "filter by observation type")
	listCmd.Flags().IntVar(&listFlags.limit, "limit", 20, "page size")
	listCmd.Flags().StringVar(&listFlags.cursor, "cursor", "", "resume from a previous page's cursor")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	opts := store.ListOptions{
		Project: listFlags.project,
		Type:    listFlags.obsType,
		Limit:   cursor.ClampPageSize(listFlags.limit, 20),
	}
	if listFlags.cursor != "" {
		epoch, id, err := cursor.Decode(listFlags.cursor)
		if err != nil {
			return err
		}
		opts.BeforeEpoch = epoch
		opts.BeforeID = id
	}

	observations, err := app.Store.ListObservations(opts)
	if err != nil {
		return err
	}

	out := map[string]any{
		"observations": observations,
	}
	if len(observations) == opts.Limit {
		last := observations[len(observations)-1]
		out["next_cursor"] = cursor.Encode(last.CreatedAtEpoch, last.ID)
	}

	return printJSON(out)
}
