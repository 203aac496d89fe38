package api

import (
	"github.com/starford/mdstrip/internal/docservice"
	"github.com/starford/mdstrip/internal/models"
	"github.com/starford/mdstrip/internal/rewrite"
)

// RewriteRequest is the request body for a stateless rewrite.
type RewriteRequest struct {
	Path    string `json:"path" example:"learn/html/intro.md"`
	Content string `json:"content" example:"{{Glossary(\"HTML\")}}" validate:"required"`
}

// RewriteResponse is the rewritten text with its report.
type RewriteResponse struct {
	Content string         `json:"content" validate:"required"`
	Changed bool           `json:"changed"`
	Report  rewrite.Report `json:"report"`
}

// DocumentDetail is a ledger row with references (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// FileResult is the outcome of an in-place rewrite (aliased from the domain layer).
type FileResult = docservice.FileResult

// DocumentListResponse wraps paginated ledger listings.
type DocumentListResponse struct {
	Documents []models.Document `json:"documents" validate:"required"`
	Total     int               `json:"total" example:"42" validate:"required"`
}

// MissingResponse lists terms without a local resource.
type MissingResponse struct {
	Category  string                   `json:"category" example:"glossary"`
	Resources []models.MissingResource `json:"resources" validate:"required"`
}

// AssetUploadResponse is returned after a successful asset upload.
type AssetUploadResponse = docservice.Asset
