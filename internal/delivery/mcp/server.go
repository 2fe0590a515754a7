package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// ToolName is the name of the verification tool
const ToolName = "verify_product_ingredients"

// Verifier runs one ingredient verification
type Verifier interface {
	Verify(ctx context.Context, query domain.ProductQuery, sink domain.EventSink) (*domain.VerificationResult, error)
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Server exposes ingredient verification as an MCP tool.
type Server struct {
	mcpServer *server.MCPServer
	verifier  Verifier
}

// NewServer creates a new MCP server with the verification tool registered.
func NewServer(config Config, verifier Verifier) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		verifier:  verifier,
	}

	verifyTool := mcp.NewTool(ToolName,
		mcp.WithDescription("Verify the ingredient list of a packaged food product against several independent retailer and manufacturer pages. Returns the consensus ingredients, the nine major allergens and diet compliance, or a manual-entry verdict with the partial evidence."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Product name as printed on the package"),
		),
		mcp.WithString("brand",
			mcp.Description("Brand name"),
		),
		mcp.WithString("barcode",
			mcp.Description("UPC/EAN barcode digits, enables the database cross-check"),
		),
	)
	mcpServer.AddTool(verifyTool, s.verifyHandler)

	return s
}

// verifyHandler handles the verify_product_ingredients tool call.
func (s *Server) verifyHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name parameter is required"), nil
	}

	query := domain.ProductQuery{
		Name:    name,
		Brand:   req.GetString("brand", ""),
		Barcode: req.GetString("barcode", ""),
	}

	result, err := s.verifier.Verify(ctx, query, domain.DiscardEvents)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("verification failed: %v", err)), nil
	}

	out, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(out)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
