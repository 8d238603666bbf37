package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var importFlags struct {
	in string
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a JSONL snapshot",
	Long: `Read a snapshot produced by export and insert its records.
Observations already present are skipped by content hash, so
importing the same snapshot twice is safe. Without --in the snapshot
is read from stdin.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFlags.in, "in", "", "input file (default stdin)")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	r := os.Stdin
	if importFlags.in != "" {
		f, err := os.Open(importFlags.in)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		r = f
	}

	result, err := app.Porter.Import(r)
	if err != nil {
		return err
	}

	return printJSON(result)
}
