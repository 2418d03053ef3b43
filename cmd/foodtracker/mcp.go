package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/foodtracker/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the FoodTracker MCP server (stdio)",
	Long: `Start a Model Context Protocol (MCP) server that exposes product lookup and the
food diary as MCP tools via STDIO.

The --db flag is optional. If not provided, a system-specific default location will be used:
- Windows: %USERPROFILE%\AppData\Roaming\foodtracker\foodtracker.db
- macOS: ~/Library/Application Support/foodtracker/foodtracker.db
- Linux: ~/.local/share/foodtracker/foodtracker.db

Example:
  foodtracker mcp
  foodtracker mcp --db diary.db --contact me@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := mcp.NewFoodTrackerMCPServer(cfg, log)
		if err != nil {
			return err
		}
		defer srv.Close()

		// Log to stderr so we don't contaminate the JSON-RPC stream on stdout.
		fmt.Fprintf(os.Stderr, "FoodTracker MCP server started. DB: %s (WAL: %t, Sync: %s)\n", srv.DbPath, cfg.WAL, cfg.Sync)
		fmt.Fprintln(os.Stderr, "Available tools: ping, lookup_barcode, search_products, get_diary, add_entry, list_days, reset_diary")
		fmt.Fprintln(os.Stderr, "Listening for MCP JSON-RPC on STDIN/STDOUT ... (Ctrl+C to quit)")

		return srv.Start()
	},
}
