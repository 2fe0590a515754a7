package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/delivery/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the MCP server for ingredient verification.

The server communicates via stdio and provides one tool:
  - verify_product_ingredients: verify a product by name, brand and barcode

Example:
  allergyaware mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol
	log.SetOutput(cmd.ErrOrStderr())

	a, err := newApp()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	server := mcp.NewServer(mcp.Config{Name: "allergyaware", Version: "1.0.0"}, a.Verifier)

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
