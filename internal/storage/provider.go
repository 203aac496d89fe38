// Package storage defines access to the content root: the Markdown documents
// being rewritten and the local resource documents they may link to.
package storage

import "github.com/starford/mdstrip/internal/models"

// Provider is the interface for content-root file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to the content root).
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the content root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the content root).
	Write(path string, content []byte) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// Root returns the absolute content root.
	Root() string
}
