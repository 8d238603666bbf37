package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportFlags struct {
	project string
	out     string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export memory as a JSONL snapshot",
	Long: `Write the store's observations and summaries as JSON Lines: one
metadata line, then one record per line. Without --out the snapshot
goes to stdout.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.project, "project", "", "restrict to one project")
	exportCmd.Flags().StringVar(&exportFlags.out, "out", "", "output file (default stdout)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	w := os.Stdout
	if exportFlags.out != "" {
		f, err := os.Create(exportFlags.out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	meta, err := app.Porter.Export(w, exportFlags.project)
	if err != nil {
		return err
	}

	if exportFlags.out != "" {
		return printJSON(meta)
	}
	return nil
}
