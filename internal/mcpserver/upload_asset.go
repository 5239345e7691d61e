package mcpserver

import (
	"context"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/pagecraft/internal/assets"
)

type uploadResult struct {
	Filename string `json:"filename"`
	Size     int    `json:"size"`
	URL      string `json:"url"`
	// SrcProp is ready to pass as the props of an image component.
	SrcProp map[string]string `json:"srcProp"`
}

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, ext, derived, err := assets.Load(ctx, rawURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filename := req.GetString("filename", derived)
	if filename != "" && filepath.Ext(filename) == "" {
		filename += ext
	}

	a, err := s.svc.SaveAsset(ctx, filename, ext, data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(uploadResult{
		Filename: a.Filename,
		Size:     a.Size,
		URL:      a.URL,
		SrcProp:  map[string]string{"src": a.URL},
	})
}
