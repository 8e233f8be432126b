package cmd

import (
	"github.com/spf13/cobra"

	"github.com/salonkit/salonkit/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize salonkit configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the LLM provider, data directories and server port, and writes a .salonkit.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
