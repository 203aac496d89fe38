package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/starford/mdstrip/internal/apperr"
	"github.com/starford/mdstrip/internal/models"
)

// UpsertDocument inserts or replaces a document row and its references
// within a transaction.
func (db *DB) UpsertDocument(d models.Document, refs []models.Reference) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO documents (path, checksum_in, checksum_out, rewrites, residuals, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum_in  = excluded.checksum_in,
			checksum_out = excluded.checksum_out,
			rewrites     = excluded.rewrites,
			residuals    = excluded.residuals,
			run_id       = excluded.run_id,
			updated_at   = excluded.updated_at
	`, d.Path, d.ChecksumIn, d.ChecksumOut, d.Rewrites, d.Residuals, d.RunID, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ledger: upsert document: %w", err)
	}

	// An unchanged rerun carries no references; keep the ones recorded
	// when the macros were still present.
	if len(refs) == 0 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`DELETE FROM refs WHERE source = ?`, d.Path); err != nil {
		return fmt.Errorf("ledger: clear refs: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO refs (source, category, term, target, local) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("ledger: prepare ref insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range refs {
		if _, err := stmt.Exec(d.Path, r.Category, r.Term, r.Target, r.Local); err != nil {
			return fmt.Errorf("ledger: insert ref: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document row and its references.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM refs WHERE source = ?`, path); err != nil {
		return fmt.Errorf("ledger: delete refs: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("ledger: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksumOut returns the checksum of the last written output for a
// document, or empty string if the document was never processed.
func (db *DB) GetChecksumOut(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum_out FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ledger: checksum: %w", err)
	}
	return cs, nil
}

// GetDocument returns one ledger row or apperr.ErrNotFound.
func (db *DB) GetDocument(path string) (*models.Document, error) {
	var d models.Document
	err := db.conn.QueryRow(`
		SELECT path, checksum_in, checksum_out, rewrites, residuals, run_id, updated_at
		FROM documents WHERE path = ?
	`, path).Scan(&d.Path, &d.ChecksumIn, &d.ChecksumOut, &d.Rewrites, &d.Residuals, &d.RunID, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns a page of documents ordered by path and the total count.
func (db *DB) ListDocuments(limit, offset int) ([]models.Document, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ledger: count documents: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, checksum_in, checksum_out, rewrites, residuals, run_id, updated_at
		FROM documents ORDER BY path LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ledger: list documents: %w", err)
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.Path, &d.ChecksumIn, &d.ChecksumOut, &d.Rewrites, &d.Residuals, &d.RunID, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// References returns the references recorded for one document.
func (db *DB) References(path string) ([]models.Reference, error) {
	rows, err := db.conn.Query(`
		SELECT source, category, term, target, local
		FROM refs WHERE source = ? ORDER BY category, term
	`, path)
	if err != nil {
		return nil, fmt.Errorf("ledger: references: %w", err)
	}
	defer rows.Close()

	out := []models.Reference{}
	for rows.Next() {
		var r models.Reference
		if err := rows.Scan(&r.Source, &r.Category, &r.Term, &r.Target, &r.Local); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Missing lists terms that resolved to the remote site, most referenced
// first. An empty category matches all categories.
func (db *DB) Missing(category string) ([]models.MissingResource, error) {
	rows, err := db.conn.Query(`
		SELECT category, term, count(DISTINCT source) AS n
		FROM refs
		WHERE local = 0 AND (? = '' OR category = ?)
		GROUP BY category, term
		ORDER BY n DESC, category, term
	`, category, category)
	if err != nil {
		return nil, fmt.Errorf("ledger: missing: %w", err)
	}
	defer rows.Close()

	out := []models.MissingResource{}
	for rows.Next() {
		var m models.MissingResource
		if err := rows.Scan(&m.Category, &m.Term, &m.Referrers); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AllChecksums returns path → output checksum for every recorded document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum_out FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("ledger: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// BeginRun records the start of a batch pass.
func (db *DB) BeginRun() (*models.Run, error) {
	now := time.Now().UTC()
	run := &models.Run{ID: uuid.NewString(), StartedAt: now, FinishedAt: now}
	_, err := db.conn.Exec(`INSERT INTO runs (id, started_at, finished_at) VALUES (?, ?, ?)`,
		run.ID, run.StartedAt, run.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("ledger: begin run: %w", err)
	}
	return run, nil
}

// FinishRun stores the counters of a completed batch pass.
func (db *DB) FinishRun(run *models.Run) error {
	if run.FinishedAt.Equal(run.StartedAt) || run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		UPDATE runs SET finished_at = ?, files = ?, rewritten = ?, skipped = ?, failed = ?
		WHERE id = ?
	`, run.FinishedAt, run.Files, run.Rewritten, run.Skipped, run.Failed, run.ID)
	if err != nil {
		return fmt.Errorf("ledger: finish run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently started run or apperr.ErrNotFound.
func (db *DB) LatestRun() (*models.Run, error) {
	var r models.Run
	err := db.conn.QueryRow(`
		SELECT id, started_at, finished_at, files, rewritten, skipped, failed
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1
	`).Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Files, &r.Rewritten, &r.Skipped, &r.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: latest run: %w", err)
	}
	return &r, nil
}
