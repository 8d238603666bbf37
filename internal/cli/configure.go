package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Auriti-Labs/kiro-memory-sub000/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Run the interactive configuration wizard",
	RunE:  runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	wizard := config.NewWizard()
	cfg, err := wizard.Run()
	if err != nil {
		return err
	}

	loader := config.NewLoader(cfgFile)
	if err := loader.Save(cfg); err != nil {
		return err
	}

	fmt.Printf("Configuration saved to %s\n", loader.GetConfigPath())
	return nil
}
