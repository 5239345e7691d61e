package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/pagecraft/internal/editor"
	"github.com/starford/pagecraft/internal/models"
)

func (s *Server) registerEditorTools() {
	s.mcp.AddTool(mcp.NewTool("add_component",
		mcp.WithDescription("Add a component to the live editor of a work. Read the component contract first."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Work id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Component type, e.g. l-text, l-image, l-shape")),
		mcp.WithString("props", mcp.Description(`JSON object of props, e.g. {"text":"Hello","top":"20px"}`)),
	), s.addComponent)

	s.mcp.AddTool(mcp.NewTool("delete_component",
		mcp.WithDescription("Delete a component. The deletion can be undone."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Work id")),
		mcp.WithString("componentId", mcp.Required(), mcp.Description("Component id")),
		mcp.WithDestructiveHintAnnotation(true),
	), s.deleteComponent)

	s.mcp.AddTool(mcp.NewTool("update_component",
		mcp.WithDescription("Set one or more component props. Rapid updates to the same props merge into one undo step. "+
			"With isProps=false the key is an attribute instead: layerName, name, isHidden, isLocked."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Work id")),
		mcp.WithString("componentId", mcp.Description("Component id (defaults to the selected component)")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Prop name, or comma-separated names for a paired update")),
		mcp.WithString("value", mcp.Required(), mcp.Description("JSON value, or a JSON array paired with the keys")),
		mcp.WithBoolean("isProps", mcp.Description("false to set an attribute (default true)")),
	), s.updateComponent)

	s.mcp.AddTool(mcp.NewTool("update_page",
		mcp.WithDescription("Update the page. Level props is undoable; setting and the root level (title, desc, coverImg) are not."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Work id")),
		mcp.WithString("level", mcp.Description("props, setting, or empty for title/desc/coverImg")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Field name")),
		mcp.WithString("value", mcp.Required(), mcp.Description("JSON value")),
	), s.updatePage)

	s.mcp.AddTool(mcp.NewTool("move_component",
		mcp.WithDescription("Select a component and move it by a number of pixels."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Work id")),
		mcp.WithString("componentId", mcp.Required(), mcp.Description("Component id")),
		mcp.WithString("direction", mcp.Required(), mcp.Description("Up, Down, Left or Right")),
		mcp.WithNumber("amount", mcp.Description("Pixels (default 1)")),
	), s.moveComponent)

	s.mcp.AddTool(mcp.NewTool("copy_component",
		mcp.WithDescription("Copy a component for paste_component."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Work id")),
		mcp.WithString("componentId", mcp.Required(), mcp.Description("Component id")),
	), s.copyComponent)

	s.mcp.AddTool(mcp.NewTool("paste_component",
		mcp.WithDescription("Paste the last copied component as a new component."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Work id")),
	), s.pasteComponent)

	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last recorded change in the live editor."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Work id")),
	), s.undo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change in the live editor."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Work id")),
	), s.redo)

	s.mcp.AddTool(mcp.NewTool("history_status",
		mcp.WithDescription("Show the live editor: components, history entries, cursor and whether undo/redo are possible."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Work id")),
	), s.historyStatus)
}

// editorStatus is the compact editor view returned by editor tools.
type editorStatus struct {
	Components     []models.Component `json:"components"`
	Page           models.Page        `json:"page"`
	CurrentElement string             `json:"currentElement,omitempty"`
	IsDirty        bool               `json:"isDirty"`
	History        editor.History     `json:"history"`
	CanUndo        bool               `json:"canUndo"`
	CanRedo        bool               `json:"canRedo"`
}

func status(eng *editor.Engine) editorStatus {
	st := eng.Snapshot()
	return editorStatus{
		Components:     st.Components,
		Page:           st.Page,
		CurrentElement: st.CurrentElement,
		IsDirty:        st.IsDirty,
		History:        eng.History(),
		CanUndo:        st.CanUndo,
		CanRedo:        st.CanRedo,
	}
}

// withEditor resolves the work's editor and runs fn against it.
func (s *Server) withEditor(ctx context.Context, req mcp.CallToolRequest, fn func(*editor.Engine) (any, error)) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	eng, err := s.svc.Editor(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open %s: %v", id, err)), nil
	}
	out, err := fn(eng)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if out == nil {
		out = status(eng)
	}
	return jsonResult(out)
}

// parseValue decodes a JSON tool argument. Text that is not JSON is taken
// as a plain string so that values like 20px need no quoting.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func (s *Server) addComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	props := map[string]any{}
	if raw := req.GetString("props", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &props); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("props must be a JSON object: %v", err)), nil
		}
	}
	return s.withEditor(ctx, req, func(eng *editor.Engine) (any, error) {
		c := eng.AddComponent(models.Component{Name: name, Props: props})
		return map[string]any{"component": c, "historyLength": len(eng.History().Entries)}, nil
	})
}

func (s *Server) deleteComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cid, err := req.RequireString("componentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.withEditor(ctx, req, func(eng *editor.Engine) (any, error) {
		return nil, eng.DeleteComponent(cid)
	})
}

func (s *Server) updateComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cid := req.GetString("componentId", "")
	value := parseValue(raw)

	return s.withEditor(ctx, req, func(eng *editor.Engine) (any, error) {
		if !req.GetBool("isProps", true) {
			return nil, eng.SetComponentAttr(cid, key, value)
		}
		if !strings.Contains(key, ",") {
			return nil, eng.UpdateComponent(cid, editor.Prop(key, value))
		}
		values, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("value must be a JSON array for keys %q: %w", key, editor.ErrKeyValueMismatch)
		}
		keys := strings.Split(key, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
		return nil, eng.UpdateComponent(cid, editor.Props(keys, values))
	})
}

func (s *Server) updatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	level := editor.PageLevel(req.GetString("level", ""))
	return s.withEditor(ctx, req, func(eng *editor.Engine) (any, error) {
		return nil, eng.UpdatePage(level, key, parseValue(raw))
	})
}

func (s *Server) moveComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cid, err := req.RequireString("componentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := req.RequireString("direction")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, err := editor.ParseDirection(d)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount := req.GetInt("amount", 1)

	return s.withEditor(ctx, req, func(eng *editor.Engine) (any, error) {
		if _, ok := eng.Component(cid); !ok {
			return nil, editor.ErrComponentNotFound
		}
		eng.SetActive(cid)
		return nil, eng.Move(dir, amount)
	})
}

func (s *Server) copyComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cid, err := req.RequireString("componentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.withEditor(ctx, req, func(eng *editor.Engine) (any, error) {
		if err := eng.CopyComponent(cid); err != nil {
			return nil, err
		}
		return map[string]string{"copied": cid}, nil
	})
}

func (s *Server) pasteComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withEditor(ctx, req, func(eng *editor.Engine) (any, error) {
		c, err := eng.Paste()
		if err != nil {
			return nil, err
		}
		return map[string]any{"component": c}, nil
	})
}

func (s *Server) undo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withEditor(ctx, req, func(eng *editor.Engine) (any, error) {
		return nil, eng.Undo()
	})
}

func (s *Server) redo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withEditor(ctx, req, func(eng *editor.Engine) (any, error) {
		return nil, eng.Redo()
	})
}

func (s *Server) historyStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withEditor(ctx, req, func(*editor.Engine) (any, error) {
		return nil, nil
	})
}
