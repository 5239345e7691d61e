package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pagecraft/internal/apperr"
	"github.com/starford/pagecraft/internal/assets"
)

// UploadAsset handles POST /api/assets (multipart/form-data, field "file").
//
//	@Summary		Upload an image for image components
//	@Tags			assets
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Success		201		{object}	AssetUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/assets [post]
func (h *Handler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, assets.MaxSize+1<<20)

	if err := r.ParseMultipartForm(assets.MaxSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	a, err := h.svc.SaveAsset(r.Context(), filepath.Base(header.Filename), "", data)
	if err != nil {
		writeError(w, "upload asset", err)
		return
	}
	writeJSON(w, http.StatusCreated, AssetUploadResponse{Filename: a.Filename, Size: a.Size, URL: a.URL})
}

// ServeAsset handles GET /assets/{filename}.
func (h *Handler) ServeAsset(w http.ResponseWriter, r *http.Request) {
	abs, err := h.svc.AssetPath(chi.URLParam(r, "filename"))
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.NotFound(w, r)
		return
	}
	if _, statErr := os.Stat(abs); statErr != nil {
		http.NotFound(w, r)
		return
	}
	if strings.EqualFold(filepath.Ext(abs), ".svg") {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	}
	http.ServeFile(w, r, abs)
}
