package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "salonkit",
	Short: "AI-guided nail salon service assistant",
	Long: `Salonkit runs a conversational assistant that guides nail artists
through a full service: customer intake, AI design generation, service
records, and skill analysis. It serves an HTTP API for app frontends,
an interactive terminal chat, and an MCP server for AI agent access.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".salonkit.yml", "config file path")
}
