package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/salonkit/salonkit/internal/mcp"
)

var mcpUser string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing read-only salon lookup tools (customers, skill stats, inspirations) for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserver.Version = Version

		// Stdout carries MCP protocol messages; status goes to stderr.
		fmt.Fprintf(os.Stderr, "salonkit MCP server started on stdio (user=%s)\n", mcpUser)

		srv := mcpserver.NewServer(mcpUser, a.customers, a.abilities, a.inspirations)
		return srv.Serve()
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpUser, "user", "anonymous", "artist ID the exposed tools are scoped to")
	rootCmd.AddCommand(mcpCmd)
}
