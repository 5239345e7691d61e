package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pagecraft/internal/checksum"
	"github.com/starford/pagecraft/internal/workservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *workservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *workservice.Service) *Handler {
	return &Handler{svc: svc}
}

func workID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// ListWorks handles GET /api/works.
//
//	@Summary		List works with optional pagination
//	@Tags			works
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, title)
//	@Success		200		{object}	WorkListResponse
//	@Security		BearerAuth
//	@Router			/works [get]
func (h *Handler) ListWorks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rows, total, err := h.svc.ListWorks(r.Context(), limit, offset, q.Get("sort"))
	if err != nil {
		writeError(w, "list works", err)
		return
	}
	writeJSON(w, http.StatusOK, WorkListResponse{Works: rows, Total: total})
}

// CreateWork handles POST /api/works.
//
//	@Summary		Create a blank work
//	@Tags			works
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateWorkRequest	true	"Work to create"
//	@Success		201		{object}	WorkDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works [post]
func (h *Handler) CreateWork(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	work, err := h.svc.CreateWork(r.Context(), req.Title)
	if err != nil {
		writeError(w, "create work", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(work.Checksum))
	writeJSON(w, http.StatusCreated, work)
}

// GetWork handles GET /api/works/{id}.
//
//	@Summary		Get the persisted document of a work
//	@Tags			works
//	@Produce		json
//	@Param			id	path		string	true	"Work id"
//	@Success		200	{object}	WorkDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id} [get]
func (h *Handler) GetWork(w http.ResponseWriter, r *http.Request) {
	id := workID(r)
	work, err := h.svc.GetWork(r.Context(), id)
	if err != nil {
		writeError(w, "get work", err, slog.String("work_id", id))
		return
	}
	w.Header().Set("ETag", checksum.ETag(work.Checksum))
	writeJSON(w, http.StatusOK, work)
}

// DeleteWork handles DELETE /api/works/{id}.
//
//	@Summary		Delete a work
//	@Tags			works
//	@Param			id	path	string	true	"Work id"
//	@Success		204	"Work deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/works/{id} [delete]
func (h *Handler) DeleteWork(w http.ResponseWriter, r *http.Request) {
	id := workID(r)
	if err := h.svc.DeleteWork(r.Context(), id); err != nil {
		writeError(w, "delete work", err, slog.String("work_id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across works
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// AssetUsers handles GET /api/assets/users?url=.
//
//	@Summary		List works referencing an asset
//	@Tags			assets
//	@Produce		json
//	@Param			url	query		string	true	"Asset URL"
//	@Success		200	{object}	map[string][]string
//	@Security		BearerAuth
//	@Router			/assets/users [get]
func (h *Handler) AssetUsers(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("url")
	if u == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'url' is required"))
		return
	}
	users, err := h.svc.AssetUsers(r.Context(), u)
	if err != nil {
		writeError(w, "asset users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"works": users})
}
