package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/starford/mdstrip/internal/apperr"
	"github.com/starford/mdstrip/internal/docservice"
	"github.com/starford/mdstrip/internal/models"
)

// Report output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

const reportPageSize = 200

// ledgerReport is the JSON shape of the document report.
type ledgerReport struct {
	LatestRun *models.Run       `json:"latest_run,omitempty"`
	Documents []models.Document `json:"documents"`
}

// Report prints what the ledger knows: processed documents and the latest
// run, or with missing set, the terms that still link to the remote site.
func Report(ctx context.Context, missing bool, format string, opts ...Option) error {
	if format != FormatTable && format != FormatJSON {
		return fmt.Errorf("unknown format %q (want %s or %s)", format, FormatTable, FormatJSON)
	}

	rt, err := start(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	if missing {
		items, err := rt.svc.Missing(ctx, "")
		if err != nil {
			return err
		}
		if format == FormatJSON {
			return renderJSON(rt.out, items)
		}
		return renderMissing(rt.out, items)
	}

	docs, err := allDocuments(ctx, rt.svc)
	if err != nil {
		return err
	}
	run, err := rt.svc.LatestRun(ctx)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	if format == FormatJSON {
		return renderJSON(rt.out, ledgerReport{LatestRun: run, Documents: docs})
	}
	renderRun(rt.out, run)
	return renderDocuments(rt.out, docs)
}

func allDocuments(ctx context.Context, svc *docservice.Service) ([]models.Document, error) {
	var out []models.Document
	for {
		page, total, err := svc.ListDocuments(ctx, reportPageSize, len(out))
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) == 0 || len(out) >= total {
			return out, nil
		}
	}
}

func renderRun(w io.Writer, run *models.Run) {
	if run == nil {
		_, _ = fmt.Fprintln(w, "no runs recorded")
		return
	}
	_, _ = fmt.Fprintf(w, "latest run %s at %s (%s): %d files, %d rewritten, %d skipped, %d failed\n",
		run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
		run.Files, run.Rewritten, run.Skipped, run.Failed)
}

func renderDocuments(w io.Writer, docs []models.Document) error {
	if len(docs) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"path", "rewrites", "residuals", "checksum", "updated"})
	for _, d := range docs {
		t.AppendRow(table.Row{d.Path, d.Rewrites, d.Residuals, shortSum(d.ChecksumOut), d.UpdatedAt.UTC().Format(time.RFC3339)})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(docs))
	return nil
}

func renderMissing(w io.Writer, items []models.MissingResource) error {
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"category", "term", "referrers"})
	for _, m := range items {
		t.AppendRow(table.Row{m.Category, m.Term, m.Referrers})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(items))
	return nil
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortSum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
