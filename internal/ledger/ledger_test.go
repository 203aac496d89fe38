package ledger

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/mdstrip/internal/apperr"
	"github.com/starford/mdstrip/internal/checksum"
	"github.com/starford/mdstrip/internal/models"
	"github.com/starford/mdstrip/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "mdstrip-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// macroProcessor is a stand-in rewrite: it strips the "{{x}}" marker and
// records the result the way the document service does.
func macroProcessor(db *DB, store storage.Provider) ProcessorFunc {
	return func(_ context.Context, path, runID string) (bool, error) {
		data, err := store.Read(path)
		if err != nil {
			return false, err
		}
		out := strings.ReplaceAll(string(data), "{{x}}", "x")
		changed := out != string(data)
		if changed {
			if err := store.Write(path, []byte(out)); err != nil {
				return false, err
			}
		}
		err = db.UpsertDocument(models.Document{
			Path:        path,
			ChecksumIn:  checksum.Sum(data),
			ChecksumOut: checksum.SumString(out),
			RunID:       runID,
		}, nil)
		return changed, err
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"documents", "refs", "runs"} {
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetChecksumOut(t *testing.T) {
	db := testDB(t)
	doc := models.Document{Path: "learn/a.md", ChecksumIn: "in1", ChecksumOut: "out1", Rewrites: 3, UpdatedAt: time.Now()}
	if err := db.UpsertDocument(doc, nil); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksumOut("learn/a.md")
	if err != nil {
		t.Fatalf("GetChecksumOut: %v", err)
	}
	if cs != "out1" {
		t.Errorf("checksum = %q, want %q", cs, "out1")
	}

	got, err := db.GetDocument("learn/a.md")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Rewrites != 3 || got.ChecksumIn != "in1" {
		t.Errorf("unexpected document: %+v", got)
	}
}

func TestGetChecksumOut_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksumOut("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetDocument("nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReferencesReplacedAndKept(t *testing.T) {
	db := testDB(t)
	refs := []models.Reference{
		{Category: "glossary", Term: "HTML", Target: "../resources/glossary/HTML.md", Local: true},
		{Category: "glossary", Term: "CSS", Target: "https://developer.mozilla.org/en-US/docs/Glossary/CSS"},
	}
	_ = db.UpsertDocument(models.Document{Path: "a/b.md", ChecksumOut: "1"}, refs)

	got, err := db.References("a/b.md")
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Term != "CSS" || got[0].Local || got[0].Source != "a/b.md" {
		t.Errorf("unexpected first ref: %+v", got[0])
	}

	// A rerun over already rewritten output has no references to report.
	_ = db.UpsertDocument(models.Document{Path: "a/b.md", ChecksumOut: "1"}, nil)
	got, _ = db.References("a/b.md")
	if len(got) != 2 {
		t.Errorf("references should be kept, got %d", len(got))
	}

	_ = db.UpsertDocument(models.Document{Path: "a/b.md", ChecksumOut: "2"}, refs[:1])
	got, _ = db.References("a/b.md")
	if len(got) != 1 {
		t.Errorf("references should be replaced, got %d", len(got))
	}
}

func TestMissing(t *testing.T) {
	db := testDB(t)
	remote := func(term string) models.Reference {
		return models.Reference{Category: "glossary", Term: term, Target: "https://x/" + term}
	}
	_ = db.UpsertDocument(models.Document{Path: "a.md"}, []models.Reference{remote("CSS"), remote("DOM")})
	_ = db.UpsertDocument(models.Document{Path: "b.md"}, []models.Reference{
		remote("CSS"),
		{Category: "glossary", Term: "HTML", Target: "resources/glossary/HTML.md", Local: true},
		{Category: "api", Term: "Node", Target: "https://x/Node"},
	})

	got, err := db.Missing("glossary")
	if err != nil {
		t.Fatalf("Missing: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].Term != "CSS" || got[0].Referrers != 2 {
		t.Errorf("first = %+v, want CSS with 2 referrers", got[0])
	}

	all, _ := db.Missing("")
	if len(all) != 3 {
		t.Errorf("all categories: len = %d, want 3", len(all))
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(models.Document{Path: "del.md", ChecksumOut: "x"},
		[]models.Reference{{Category: "glossary", Term: "HTML", Target: "t"}})

	if err := db.DeleteDocument("del.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	cs, _ := db.GetChecksumOut("del.md")
	if cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	refs, _ := db.References("del.md")
	if len(refs) != 0 {
		t.Errorf("expected 0 references after delete, got %d", len(refs))
	}
}

func TestListDocuments(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"c.md", "a.md", "b.md"} {
		_ = db.UpsertDocument(models.Document{Path: p}, nil)
	}
	docs, total, err := db.ListDocuments(2, 0)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 3 || len(docs) != 2 {
		t.Fatalf("total=%d len=%d", total, len(docs))
	}
	if docs[0].Path != "a.md" || docs[1].Path != "b.md" {
		t.Errorf("unexpected order: %s, %s", docs[0].Path, docs[1].Path)
	}
	docs, _, _ = db.ListDocuments(2, 2)
	if len(docs) != 1 || docs[0].Path != "c.md" {
		t.Errorf("second page = %+v", docs)
	}
}

func TestRuns(t *testing.T) {
	db := testDB(t)
	if _, err := db.LatestRun(); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before any run, got %v", err)
	}
	run, err := db.BeginRun()
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if run.ID == "" {
		t.Fatal("empty run id")
	}
	run.Files, run.Rewritten, run.Skipped = 3, 2, 1
	if err := db.FinishRun(run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	latest, err := db.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != run.ID || latest.Rewritten != 2 || latest.Skipped != 1 {
		t.Errorf("latest = %+v", latest)
	}
}
