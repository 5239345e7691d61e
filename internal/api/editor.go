package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pagecraft/internal/checksum"
	"github.com/starford/pagecraft/internal/editor"
	"github.com/starford/pagecraft/internal/models"
)

// ComponentResponse returns a created component with the resulting editor
// state.
type ComponentResponse struct {
	Component models.Component `json:"component"`
	Editor    EditorResponse   `json:"editor"`
}

func editorResponse(eng *editor.Engine) EditorResponse {
	h := eng.History()
	return EditorResponse{State: eng.Snapshot(), History: h.Entries, Pending: h.Pending}
}

// engine resolves the editor session of the work in the URL. It writes the
// error response itself and returns nil on failure.
func (h *Handler) engine(w http.ResponseWriter, r *http.Request) *editor.Engine {
	id := workID(r)
	eng, err := h.svc.Editor(r.Context(), id)
	if err != nil {
		writeError(w, "open editor", err, slog.String("work_id", id))
		return nil
	}
	return eng
}

// run applies fn to the work's editor and responds with the new state.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, op string, fn func(*editor.Engine) error) {
	eng := h.engine(w, r)
	if eng == nil {
		return
	}
	if err := fn(eng); err != nil {
		writeError(w, op, err, slog.String("work_id", workID(r)))
		return
	}
	writeJSON(w, http.StatusOK, editorResponse(eng))
}

// GetEditor handles GET /api/works/{id}/editor.
//
//	@Summary		Live editor state of a work
//	@Tags			editor
//	@Produce		json
//	@Param			id	path		string	true	"Work id"
//	@Success		200	{object}	EditorResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor [get]
func (h *Handler) GetEditor(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "get editor", func(*editor.Engine) error { return nil })
}

// CloseEditor handles DELETE /api/works/{id}/editor. Unsaved changes are
// dropped.
//
//	@Summary		Close the editor session of a work
//	@Tags			editor
//	@Param			id	path	string	true	"Work id"
//	@Success		204	"Session closed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor [delete]
func (h *Handler) CloseEditor(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseEditor(r.Context(), workID(r)); err != nil {
		writeError(w, "close editor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddComponent handles POST /api/works/{id}/editor/components.
//
//	@Summary		Add a component
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Work id"
//	@Param			body	body		AddComponentRequest	true	"Component"
//	@Success		201		{object}	ComponentResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor/components [post]
func (h *Handler) AddComponent(w http.ResponseWriter, r *http.Request) {
	var req AddComponentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	eng := h.engine(w, r)
	if eng == nil {
		return
	}
	c := eng.AddComponent(req.component())
	writeJSON(w, http.StatusCreated, ComponentResponse{Component: c, Editor: editorResponse(eng)})
}

// DeleteComponent handles DELETE /api/works/{id}/editor/components/{cid}.
//
//	@Summary		Delete a component
//	@Tags			editor
//	@Produce		json
//	@Param			id	path		string	true	"Work id"
//	@Param			cid	path		string	true	"Component id"
//	@Success		200	{object}	EditorResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor/components/{cid} [delete]
func (h *Handler) DeleteComponent(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	h.run(w, r, "delete component", func(eng *editor.Engine) error {
		return eng.DeleteComponent(cid)
	})
}

// UpdateComponent handles PATCH /api/works/{id}/editor/components/{cid}.
//
//	@Summary		Update component props or attributes
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Work id"
//	@Param			cid		path		string					true	"Component id"
//	@Param			body	body		UpdateComponentRequest	true	"Update"
//	@Success		200		{object}	EditorResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor/components/{cid} [patch]
func (h *Handler) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	var req UpdateComponentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cid := chi.URLParam(r, "cid")
	h.run(w, r, "update component", func(eng *editor.Engine) error {
		if !req.props() {
			return eng.SetComponentAttr(cid, req.Key, req.Value)
		}
		return eng.UpdateComponent(cid, req.update())
	})
}

// CopyComponent handles POST /api/works/{id}/editor/components/{cid}/copy.
//
//	@Summary		Copy a component for a later paste
//	@Tags			editor
//	@Produce		json
//	@Param			id	path		string	true	"Work id"
//	@Param			cid	path		string	true	"Component id"
//	@Success		200	{object}	EditorResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor/components/{cid}/copy [post]
func (h *Handler) CopyComponent(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	h.run(w, r, "copy component", func(eng *editor.Engine) error {
		return eng.CopyComponent(cid)
	})
}

// Paste handles POST /api/works/{id}/editor/paste.
//
//	@Summary		Paste the copied component
//	@Tags			editor
//	@Produce		json
//	@Param			id	path		string	true	"Work id"
//	@Success		201	{object}	ComponentResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor/paste [post]
func (h *Handler) Paste(w http.ResponseWriter, r *http.Request) {
	eng := h.engine(w, r)
	if eng == nil {
		return
	}
	c, err := eng.Paste()
	if err != nil {
		writeError(w, "paste", err, slog.String("work_id", workID(r)))
		return
	}
	writeJSON(w, http.StatusCreated, ComponentResponse{Component: c, Editor: editorResponse(eng)})
}

// Select handles POST /api/works/{id}/editor/select.
//
//	@Summary		Select the current element
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Work id"
//	@Param			body	body		SelectRequest	true	"Selection"
//	@Success		200		{object}	EditorResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor/select [post]
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.run(w, r, "select", func(eng *editor.Engine) error {
		if req.ID != "" {
			if _, ok := eng.Component(req.ID); !ok {
				return editor.ErrComponentNotFound
			}
		}
		eng.SetActive(req.ID)
		if req.Editing {
			eng.SetEditing(req.ID)
		} else {
			eng.SetEditing("")
		}
		return nil
	})
}

// Move handles POST /api/works/{id}/editor/move.
//
//	@Summary		Move the selected component
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Work id"
//	@Param			body	body		MoveRequest	true	"Direction and distance in px"
//	@Success		200		{object}	EditorResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor/move [post]
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	dir, _ := editor.ParseDirection(req.Direction)
	h.run(w, r, "move", func(eng *editor.Engine) error {
		return eng.Move(dir, req.Amount)
	})
}

// UpdatePage handles PATCH /api/works/{id}/editor/page.
//
//	@Summary		Update page props, settings or metadata
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Work id"
//	@Param			body	body		PageUpdateRequest	true	"Update"
//	@Success		200		{object}	EditorResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor/page [patch]
func (h *Handler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	var req PageUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.run(w, r, "update page", func(eng *editor.Engine) error {
		return eng.UpdatePage(editor.PageLevel(req.Level), req.Key, req.Value)
	})
}

// Undo handles POST /api/works/{id}/editor/undo.
//
//	@Summary		Undo the last recorded change
//	@Tags			editor
//	@Produce		json
//	@Param			id	path		string	true	"Work id"
//	@Success		200	{object}	EditorResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor/undo [post]
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "undo", (*editor.Engine).Undo)
}

// Redo handles POST /api/works/{id}/editor/redo.
//
//	@Summary		Redo the last undone change
//	@Tags			editor
//	@Produce		json
//	@Param			id	path		string	true	"Work id"
//	@Success		200	{object}	EditorResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor/redo [post]
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "redo", (*editor.Engine).Redo)
}

// Save handles POST /api/works/{id}/editor/save.
//
//	@Summary		Save the editor state with optimistic concurrency
//	@Tags			editor
//	@Produce		json
//	@Param			id			path		string	true	"Work id"
//	@Param			If-Match	header		string	false	"Checksum of the document the client last saw"
//	@Success		200			{object}	WorkDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor/save [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	id := workID(r)
	work, err := h.svc.Save(r.Context(), id, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "save", err, slog.String("work_id", id))
		return
	}
	w.Header().Set("ETag", checksum.ETag(work.Checksum))
	writeJSON(w, http.StatusOK, work)
}

// Publish handles POST /api/works/{id}/editor/publish.
//
//	@Summary		Save and publish the editor state
//	@Tags			editor
//	@Produce		json
//	@Param			id			path		string	true	"Work id"
//	@Param			If-Match	header		string	false	"Checksum of the document the client last saw"
//	@Success		200			{object}	WorkDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id}/editor/publish [post]
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	id := workID(r)
	work, err := h.svc.Publish(r.Context(), id, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "publish", err, slog.String("work_id", id))
		return
	}
	w.Header().Set("ETag", checksum.ETag(work.Checksum))
	writeJSON(w, http.StatusOK, work)
}
