// Package docservice coordinates storage, the rewrite pipeline and the
// ledger. Every outer surface (CLI, HTTP, MCP, watcher) goes through it.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/starford/mdstrip/internal/apperr"
	"github.com/starford/mdstrip/internal/checksum"
	"github.com/starford/mdstrip/internal/ledger"
	"github.com/starford/mdstrip/internal/models"
	"github.com/starford/mdstrip/internal/rewrite"
	"github.com/starford/mdstrip/internal/storage"
)

// FileResult is the outcome of rewriting one file under the content root.
type FileResult struct {
	Path    string         `json:"path"`
	Changed bool           `json:"changed"`
	Report  rewrite.Report `json:"report"`
}

// DocumentDetail is a ledger row with its recorded references.
type DocumentDetail struct {
	models.Document
	References []models.Reference `json:"references"`
}

// Service coordinates storage, pipeline and ledger operations.
type Service struct {
	store    storage.Provider
	db       ledger.Ledger
	pipeline *rewrite.Pipeline
	logger   *slog.Logger
	workers  int
}

// NewService creates a new document service.
func NewService(store storage.Provider, db ledger.Ledger, pipeline *rewrite.Pipeline, logger *slog.Logger, workers int) *Service {
	if workers <= 0 {
		workers = ledger.DefaultWorkers
	}
	return &Service{store: store, db: db, pipeline: pipeline, logger: logger, workers: workers}
}

// Verify *Service satisfies ledger.Processor at compile time.
var _ ledger.Processor = (*Service)(nil)

// Root returns the absolute content root.
func (s *Service) Root() string {
	return s.store.Root()
}

// RewriteText runs the pipeline over content as if it were the document at
// docPath. Nothing is read or written.
func (s *Service) RewriteText(_ context.Context, docPath, content string) *rewrite.Result {
	docPath = cleanPath(docPath)
	res := s.pipeline.Run(content, docPath)
	s.logReport(docPath, &res.Report)
	return res
}

// Preview reads the file at path and returns the rewritten text without
// writing it back.
func (s *Service) Preview(ctx context.Context, path string) (*rewrite.Result, error) {
	path = cleanPath(path)
	if path == "" {
		return nil, apperr.ErrNoInput
	}
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.RewriteText(ctx, path, string(data)), nil
}

// RewriteFile rewrites the file at path in place and records the result.
// The file is written only when the text changed.
func (s *Service) RewriteFile(ctx context.Context, path string) (*FileResult, error) {
	return s.rewriteFile(ctx, path, "")
}

// ProcessFile implements ledger.Processor for batch sync and watch mode.
func (s *Service) ProcessFile(ctx context.Context, path, runID string) (bool, error) {
	res, err := s.rewriteFile(ctx, path, runID)
	if err != nil {
		return false, err
	}
	return res.Changed, nil
}

func (s *Service) rewriteFile(_ context.Context, path, runID string) (*FileResult, error) {
	path = cleanPath(path)
	if path == "" {
		return nil, apperr.ErrNoInput
	}
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}

	input := string(data)
	res := s.pipeline.Run(input, path)
	s.logReport(path, &res.Report)

	changed := res.Changed(input)
	if changed {
		if err := s.store.Write(path, []byte(res.Text)); err != nil {
			s.logger.Warn("rewrite: write failed", slog.String("path", path), slog.String("error", err.Error()))
			return nil, err
		}
	}

	doc := models.Document{
		Path:        path,
		ChecksumIn:  checksum.Sum(data),
		ChecksumOut: checksum.SumString(res.Text),
		Rewrites:    res.Report.Rewrites(),
		Residuals:   len(res.Report.Residuals),
		RunID:       runID,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.db.UpsertDocument(doc, toModelRefs(path, res.Report.References)); err != nil {
		return nil, fmt.Errorf("docservice: record %s: %w", path, err)
	}

	return &FileResult{Path: path, Changed: changed, Report: res.Report}, nil
}

// Document returns the ledger row and references for one document.
func (s *Service) Document(_ context.Context, path string) (*DocumentDetail, error) {
	path = cleanPath(path)
	doc, err := s.db.GetDocument(path)
	if err != nil {
		return nil, err
	}
	refs, err := s.db.References(path)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{Document: *doc, References: refs}, nil
}

// ListDocuments returns a page of ledger rows and the total count.
func (s *Service) ListDocuments(_ context.Context, limit, offset int) ([]models.Document, int, error) {
	return s.db.ListDocuments(limit, offset)
}

// Missing lists terms in category that no local resource covers.
func (s *Service) Missing(_ context.Context, category string) ([]models.MissingResource, error) {
	return s.db.Missing(category)
}

// LatestRun returns the last recorded batch run.
func (s *Service) LatestRun(_ context.Context) (*models.Run, error) {
	return s.db.LatestRun()
}

// Sync rewrites every changed document under the content root.
func (s *Service) Sync(ctx context.Context) (*models.Run, error) {
	return ledger.Sync(ctx, s.db, s.store, s, s.workers, s.logger)
}

// Watch follows file changes under the content root until ctx is done.
func (s *Service) Watch(ctx context.Context, cb ledger.EventCallback) error {
	return ledger.Watch(ctx, s.db, s.store, s, s.logger, cb)
}

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		s.logger.Warn("rewrite: read failed", slog.String("path", path), slog.String("error", err.Error()))
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
		}
		return nil, err
	}
	return data, nil
}

func (s *Service) logReport(path string, report *rewrite.Report) {
	for _, st := range report.Stages {
		if st.Count > 0 {
			s.logger.Debug("rewrite: stage applied",
				slog.String("path", path),
				slog.String("stage", st.Stage),
				slog.Int("count", st.Count))
		}
	}
	for _, r := range report.Residuals {
		s.logger.Info("rewrite: macro left in place",
			slog.String("path", path),
			slog.String("macro", r.Name),
			slog.Int("line", r.Line))
	}
}

func toModelRefs(source string, refs []rewrite.Reference) []models.Reference {
	out := make([]models.Reference, 0, len(refs))
	for _, r := range refs {
		out = append(out, models.Reference{
			Source:   source,
			Category: r.Category,
			Term:     r.Term,
			Target:   r.Target,
			Local:    r.Local,
		})
	}
	return out
}

// cleanPath normalizes a document path to slash form relative to the root.
func cleanPath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	if p == "" {
		return ""
	}
	p = strings.TrimLeft(path.Clean("/"+p), "/")
	return p
}
