package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/pagecraft/internal/index"
)

func (s *Server) registerWorkTools() {
	s.mcp.AddTool(mcp.NewTool("list_works",
		mcp.WithDescription("List works, most recently updated first."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listWorks)

	s.mcp.AddTool(mcp.NewTool("create_work",
		mcp.WithDescription("Create a blank work with default page props."),
		mcp.WithString("title", mcp.Description("Work title")),
	), s.createWork)

	s.mcp.AddTool(mcp.NewTool("read_work",
		mcp.WithDescription("Read the saved document of a work. Unsaved editor changes are not included; use history_status for the live editor."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Work id")),
	), s.readWork)

	s.mcp.AddTool(mcp.NewTool("search_works",
		mcp.WithDescription("Full-text search through work titles and component text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchWorks)

	s.mcp.AddTool(mcp.NewTool("save_work",
		mcp.WithDescription("Write the live editor state of a work to disk. Set publish to also stamp the publish time."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Work id")),
		mcp.WithString("checksum", mcp.Description("Optional checksum of the document last read; the save fails if the file changed since")),
		mcp.WithBoolean("publish", mcp.Description("Publish after saving")),
	), s.saveWork)
}

func (s *Server) listWorks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, total, err := s.svc.ListWorks(ctx, req.GetInt("limit", 0), req.GetInt("offset", 0), index.SortUpdated)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"works": rows, "total": total})
}

func (s *Server) createWork(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, err := s.svc.CreateWork(ctx, req.GetString("title", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(w)
}

func (s *Server) readWork(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	w, err := s.svc.GetWork(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", id, err)), nil
	}
	return jsonResult(w)
}

func (s *Server) searchWorks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) saveWork(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sum := req.GetString("checksum", "")

	save := s.svc.Save
	if req.GetBool("publish", false) {
		save = s.svc.Publish
	}
	w, err := save(ctx, id, sum)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"id":              w.ID,
		"checksum":        w.Checksum,
		"updatedAt":       w.UpdatedAt,
		"latestPublishAt": w.LatestPublishAt,
		"components":      len(w.Content.Components),
	})
}
