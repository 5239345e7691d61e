// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Pagecraft works and editor tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/pagecraft/internal/workservice"
)

const formatURI = "pagecraft://component-format"

// Server wraps the MCP server with Pagecraft tools.
type Server struct {
	mcp *server.MCPServer
	svc *workservice.Service
}

// New creates a new MCP server with all Pagecraft tools registered.
func New(svc *workservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Pagecraft",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.registerWorkTools()
	s.registerEditorTools()

	s.mcp.AddTool(mcp.NewTool("get_component_contract",
		mcp.WithDescription("Returns the Pagecraft component and work format contract. "+
			"Call this before adding or updating components to use the right names and props."),
	), s.getComponentContract)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Store an image for image components from a data URI or an http(s) URL. "+
			"Returns the asset URL to use as the src prop."),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:<mime>;base64,<data> URI or http(s) URL")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL or generated when empty")),
	), s.uploadAsset)

	// Resource: component format contract.
	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Component Format Contract",
			mcp.WithResourceDescription("Work document and component format used by the Pagecraft editor."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readComponentFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) getComponentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ComponentFormatContract), nil
}

func (s *Server) readComponentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     ComponentFormatContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
