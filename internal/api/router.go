package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pagecraft/internal/workservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *workservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Works CRUD.
	r.Get("/works", h.ListWorks)
	r.Post("/works", h.CreateWork)
	r.Get("/works/{id}", h.GetWork)
	r.Delete("/works/{id}", h.DeleteWork)

	// Search.
	r.Get("/search", h.Search)

	// Live editor sessions.
	r.Route("/works/{id}/editor", func(r chi.Router) {
		r.Get("/", h.GetEditor)
		r.Delete("/", h.CloseEditor)
		r.Post("/components", h.AddComponent)
		r.Delete("/components/{cid}", h.DeleteComponent)
		r.Patch("/components/{cid}", h.UpdateComponent)
		r.Post("/components/{cid}/copy", h.CopyComponent)
		r.Post("/paste", h.Paste)
		r.Post("/select", h.Select)
		r.Post("/move", h.Move)
		r.Patch("/page", h.UpdatePage)
		r.Post("/undo", h.Undo)
		r.Post("/redo", h.Redo)
		r.Post("/save", h.Save)
		r.Post("/publish", h.Publish)
	})

	// Assets upload (auth-protected).
	r.Post("/assets", h.UploadAsset)
	r.Get("/assets/users", h.AssetUsers)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// NewAssetRouter serves uploaded assets without auth so pages can embed
// them directly.
func NewAssetRouter(svc *workservice.Service) chi.Router {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Get("/{filename}", h.ServeAsset)
	return r
}
