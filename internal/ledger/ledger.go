package ledger

import (
	"context"

	"github.com/starford/mdstrip/internal/models"
)

// Ledger defines the operations consumers need from the run ledger.
// Depend on this interface rather than *DB when a fake is useful in tests.
type Ledger interface {
	UpsertDocument(d models.Document, refs []models.Reference) error
	DeleteDocument(path string) error
	GetChecksumOut(path string) (string, error)
	GetDocument(path string) (*models.Document, error)
	ListDocuments(limit, offset int) ([]models.Document, int, error)
	References(path string) ([]models.Reference, error)
	Missing(category string) ([]models.MissingResource, error)
	AllChecksums() (map[string]string, error)
	BeginRun() (*models.Run, error)
	FinishRun(run *models.Run) error
	LatestRun() (*models.Run, error)
	Close() error
}

// Verify *DB satisfies Ledger at compile time.
var _ Ledger = (*DB)(nil)

// Processor rewrites one document under the content root and records the
// outcome in the ledger. changed reports whether the file was written.
type Processor interface {
	ProcessFile(ctx context.Context, path, runID string) (changed bool, err error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, path, runID string) (bool, error)

// ProcessFile calls f.
func (f ProcessorFunc) ProcessFile(ctx context.Context, path, runID string) (bool, error) {
	return f(ctx, path, runID)
}
