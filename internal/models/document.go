// Package models defines the domain types for mdstrip.
package models

import "time"

// DocumentMetadata is a lightweight representation of a Markdown file under
// the content root, returned by list operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is the ledger view of a processed file.
type Document struct {
	Path        string    `json:"path"`
	ChecksumIn  string    `json:"checksum_in"`
	ChecksumOut string    `json:"checksum_out"`
	Rewrites    int       `json:"rewrites"`
	Residuals   int       `json:"residuals"`
	RunID       string    `json:"run_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Reference is one resolved macro term inside a document.
type Reference struct {
	Source   string `json:"source"`
	Category string `json:"category"`
	Term     string `json:"term"`
	Target   string `json:"target"`
	Local    bool   `json:"local"`
}

// MissingResource is a term that resolved to the remote site because no
// local resource exists, with the number of documents referring to it.
type MissingResource struct {
	Category  string `json:"category"`
	Term      string `json:"term"`
	Referrers int    `json:"referrers"`
}

// Run summarizes one batch pass over the content root.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Files      int       `json:"files"`
	Rewritten  int       `json:"rewritten"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}
