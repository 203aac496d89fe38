package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/mdstrip/internal/docservice"
	"github.com/starford/mdstrip/internal/ledger"
	"github.com/starford/mdstrip/internal/rewrite"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *docservice.Service
	events EventStream
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *docservice.Service, events EventStream) *Handler {
	return &Handler{svc: svc, events: events}
}

// documentPath extracts the document path from the URL (everything after /api/documents/).
// Supports encoded slashes from OpenAPI clients (e.g. learn%2Fintro.md).
func documentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Rewrite handles POST /api/rewrite.
//
//	@Summary		Rewrite Markdown text without touching the content root
//	@Tags			rewrite
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RewriteRequest	true	"Text and its document path"
//	@Success		200		{object}	RewriteResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rewrite [post]
func (h *Handler) Rewrite(w http.ResponseWriter, r *http.Request) {
	var req RewriteRequest
	if !readJSON(w, r, &req) {
		return
	}
	res := h.svc.RewriteText(r.Context(), req.Path, req.Content)
	writeJSON(w, http.StatusOK, RewriteResponse{
		Content: res.Text,
		Changed: res.Changed(req.Content),
		Report:  res.Report,
	})
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List processed documents
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	docs, total, err := h.svc.ListDocuments(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: total})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get the ledger entry of one document
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.Document(r.Context(), path)
	if err != nil {
		writeServiceError(w, "get document", path, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// RewriteDocument handles POST /api/documents/*.
//
//	@Summary		Rewrite a document in place
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	FileResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [post]
func (h *Handler) RewriteDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.svc.RewriteFile(r.Context(), path)
	if err != nil {
		writeServiceError(w, "rewrite document", path, err)
		return
	}
	if h.events != nil {
		kind := ledger.EventUnchanged
		if res.Changed {
			kind = ledger.EventRewritten
		}
		h.events.PublishDocumentEvent(kind, res.Path)
	}
	writeJSON(w, http.StatusOK, res)
}

// Missing handles GET /api/references/missing.
//
//	@Summary		List terms that link to the remote site
//	@Tags			references
//	@Produce		json
//	@Param			category	query		string	false	"Reference category"	Enums(glossary, api)
//	@Success		200			{object}	MissingResponse
//	@Security		BearerAuth
//	@Router			/references/missing [get]
func (h *Handler) Missing(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = rewrite.CategoryGlossary
	}
	res, err := h.svc.Missing(r.Context(), category)
	if err != nil {
		slog.Error("missing references failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, MissingResponse{Category: category, Resources: res})
}

// Sync handles POST /api/sync.
//
//	@Summary		Rewrite every changed document under the content root
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	models.Run
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.Sync(r.Context())
	if err != nil {
		slog.Error("sync failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, run)
}
