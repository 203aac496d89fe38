package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/starford/mdstrip/internal/apperr"
	"github.com/starford/mdstrip/internal/docservice"
)

// AssetHandler serves and accepts files in the assets directory.
type AssetHandler struct {
	svc       *docservice.Service
	assetsDir string
}

// NewAssetHandler creates a handler for assetsDir (relative to the content root).
func NewAssetHandler(svc *docservice.Service, assetsDir string) *AssetHandler {
	return &AssetHandler{svc: svc, assetsDir: assetsDir}
}

// ServeFile handles GET /assets/{filename}.
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" || filename != docservice.SanitizeFilename(filename) {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	abs := filepath.Join(h.svc.Root(), filepath.FromSlash(h.assetsDir), filename)
	if info, statErr := os.Stat(abs); statErr != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/assets (multipart/form-data, field "file").
//
//	@Summary		Upload an image into the assets directory
//	@Tags			assets
//	@Accept			multipart/form-data
//	@Produce		json
//	@Success		201	{object}	AssetUploadResponse
//	@Failure		400	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/assets [post]
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, docservice.MaxAssetSize+1<<20)

	if err := r.ParseMultipartForm(docservice.MaxAssetSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, docservice.MaxAssetSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	asset, err := h.svc.SaveAsset(h.assetsDir, header.Filename, data)
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("asset already exists"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}
