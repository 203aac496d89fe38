package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/mdstrip/internal/docservice"
)

// EventStream is the SSE endpoint plus the hook handlers use to announce
// document changes. *sse.Broker satisfies it.
type EventStream interface {
	http.Handler
	PublishDocumentEvent(kind, path string)
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is mounted at GET /events inside the auth group and
// receives document events from the rewrite handlers.
// assetsDir is the assets directory relative to the content root.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, events EventStream, assetsDir string) chi.Router {
	h := NewHandler(svc, events)
	ah := NewAssetHandler(svc, assetsDir)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Stateless rewrite.
	r.Post("/rewrite", h.Rewrite)

	// Ledger documents.
	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/*", h.GetDocument)
	r.Post("/documents/*", h.RewriteDocument)

	// Unresolved references.
	r.Get("/references/missing", h.Missing)

	// Batch sync.
	r.Post("/sync", h.Sync)

	// Asset upload (auth-protected).
	r.Post("/assets", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
