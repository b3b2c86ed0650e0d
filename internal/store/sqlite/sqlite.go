// Package sqlite implements the tab store on an embedded SQLite database so
// the link index survives service restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/openrecap/recapd/internal/store"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;

CREATE TABLE IF NOT EXISTS tabs (
    tab_id   TEXT PRIMARY KEY,
    case_id  TEXT NOT NULL DEFAULT '',
    pdf_blob BLOB
);

CREATE TABLE IF NOT EXISTS docs_to_cases (
    tab_id  TEXT NOT NULL,
    doc_id  TEXT NOT NULL,
    case_id TEXT NOT NULL,
    PRIMARY KEY (tab_id, doc_id)
);

CREATE INDEX IF NOT EXISTS idx_docs_to_cases_tab ON docs_to_cases(tab_id);
`

// Store is a TabStore backed by modernc.org/sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the database at path. ":memory:"
// works for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The delegate serializes same-tab access; a single connection keeps
	// the merge transaction semantics simple.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get loads the tab's state, or ErrNotFound when the tab has no row.
func (s *Store) Get(ctx context.Context, tabID string) (store.TabState, error) {
	var state store.TabState
	err := s.db.QueryRowContext(ctx,
		`SELECT case_id, pdf_blob FROM tabs WHERE tab_id = ?`, tabID,
	).Scan(&state.CaseID, &state.PDFBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return store.TabState{}, store.ErrNotFound
	}
	if err != nil {
		return store.TabState{}, fmt.Errorf("load tab %s: %w", tabID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, case_id FROM docs_to_cases WHERE tab_id = ?`, tabID)
	if err != nil {
		return store.TabState{}, fmt.Errorf("load link index for tab %s: %w", tabID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var docID, caseID string
		if err := rows.Scan(&docID, &caseID); err != nil {
			return store.TabState{}, fmt.Errorf("scan link index row: %w", err)
		}
		if state.DocsToCases == nil {
			state.DocsToCases = make(map[string]string)
		}
		state.DocsToCases[docID] = caseID
	}
	if err := rows.Err(); err != nil {
		return store.TabState{}, fmt.Errorf("iterate link index: %w", err)
	}
	return state, nil
}

// SetCaseID records the tab's current case id.
func (s *Store) SetCaseID(ctx context.Context, tabID, caseID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tabs (tab_id, case_id) VALUES (?, ?)
		ON CONFLICT(tab_id) DO UPDATE SET case_id = excluded.case_id`,
		tabID, caseID)
	if err != nil {
		return fmt.Errorf("set case id for tab %s: %w", tabID, err)
	}
	return nil
}

// MergeDocsToCases upserts each mapping entry inside one transaction. The
// upsert itself is the read-modify-write: existing keys are superseded only
// by an explicit new value, never dropped.
func (s *Store) MergeDocsToCases(ctx context.Context, tabID string, docs map[string]string) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tabs (tab_id) VALUES (?) ON CONFLICT(tab_id) DO NOTHING`, tabID); err != nil {
		return fmt.Errorf("ensure tab row: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO docs_to_cases (tab_id, doc_id, case_id) VALUES (?, ?, ?)
		ON CONFLICT(tab_id, doc_id) DO UPDATE SET case_id = excluded.case_id`)
	if err != nil {
		return fmt.Errorf("prepare merge: %w", err)
	}
	defer stmt.Close()
	for docID, caseID := range docs {
		if docID == "" || caseID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, tabID, docID, caseID); err != nil {
			return fmt.Errorf("merge doc %s: %w", docID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}
	return nil
}

// SetPDFBlob stages captured document bytes for the tab.
func (s *Store) SetPDFBlob(ctx context.Context, tabID string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tabs (tab_id, pdf_blob) VALUES (?, ?)
		ON CONFLICT(tab_id) DO UPDATE SET pdf_blob = excluded.pdf_blob`,
		tabID, blob)
	if err != nil {
		return fmt.Errorf("set pdf blob for tab %s: %w", tabID, err)
	}
	return nil
}

// Remove clears all state for the tab.
func (s *Store) Remove(ctx context.Context, tabID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM docs_to_cases WHERE tab_id = ?`, tabID); err != nil {
		return fmt.Errorf("remove link index for tab %s: %w", tabID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tabs WHERE tab_id = ?`, tabID); err != nil {
		return fmt.Errorf("remove tab %s: %w", tabID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove: %w", err)
	}
	return nil
}
