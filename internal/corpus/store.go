// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus persists structured documents in a SQLite database.
//
// Documents are upserted by identifier: re-parsing the same artifact
// replaces the prior record deterministically instead of appending
// duplicates. Fetch outcomes are recorded per identifier so later runs
// can skip identifiers that already resolved.
package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

const dbFile = "corpus.db"

// Store manages the corpus SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the corpus database at corpusDir/corpus.db
// and creates the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.CorpusDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating corpus directory: %w", err)
	}

	dbPath := filepath.Join(cfg.CorpusDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			batch TEXT,
			title TEXT,
			authors TEXT,
			venue TEXT,
			year INTEGER,
			publisher TEXT,
			confidence REAL,
			stored_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			ord INTEGER NOT NULL,
			title TEXT,
			kind TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sections_document ON sections(document_id)`,
		`CREATE TABLE IF NOT EXISTS paragraphs (
			section_id INTEGER NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
			ord INTEGER NOT NULL,
			text TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paragraphs_section ON paragraphs(section_id)`,
		`CREATE TABLE IF NOT EXISTS fetch_outcomes (
			identifier TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			format TEXT,
			artifact_key TEXT,
			route TEXT,
			reason TEXT,
			attempts TEXT,
			fetched_at TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Upsert writes a document, replacing any prior record for the same
// identifier. The document row is upserted and its sections and
// paragraphs deleted and reinserted under one transaction, so readers
// never observe a half-written record and writing the same document
// twice yields identical stored state.
func (s *Store) Upsert(ctx context.Context, doc *types.StructuredDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	authorsJSON, _ := json.Marshal(doc.Metadata.Authors)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, batch, title, authors, venue, year, publisher, confidence, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			batch=excluded.batch, title=excluded.title, authors=excluded.authors,
			venue=excluded.venue, year=excluded.year, publisher=excluded.publisher,
			confidence=excluded.confidence, stored_at=excluded.stored_at`,
		doc.Identifier, doc.Batch, doc.Metadata.Title, string(authorsJSON),
		doc.Metadata.Venue, doc.Metadata.Year, doc.Metadata.Publisher,
		doc.Metadata.Confidence, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	// Cascade removes the old paragraphs with their sections.
	if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE document_id = ?`, doc.Identifier); err != nil {
		return fmt.Errorf("deleting old sections: %w", err)
	}

	paraStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO paragraphs (section_id, ord, text) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing paragraph insert: %w", err)
	}
	defer paraStmt.Close()

	for _, sec := range doc.Sections {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO sections (document_id, ord, title, kind) VALUES (?, ?, ?, ?)`,
			doc.Identifier, sec.Order, sec.Title, string(sec.Kind),
		)
		if err != nil {
			return fmt.Errorf("inserting section %d: %w", sec.Order, err)
		}
		sectionID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading section id: %w", err)
		}
		for _, para := range sec.Paragraphs {
			if _, err := paraStmt.ExecContext(ctx, sectionID, para.Order, para.Text); err != nil {
				return fmt.Errorf("inserting paragraph %d.%d: %w", sec.Order, para.Order, err)
			}
		}
	}

	return tx.Commit()
}

// Document reads back a stored document. Returns sql.ErrNoRows wrapped
// when the identifier has no record.
func (s *Store) Document(ctx context.Context, identifier string) (*types.StructuredDocument, error) {
	doc := &types.StructuredDocument{Identifier: identifier}

	var authorsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT batch, title, authors, venue, year, publisher, confidence
		 FROM documents WHERE id = ?`, identifier,
	).Scan(&doc.Batch, &doc.Metadata.Title, &authorsJSON, &doc.Metadata.Venue,
		&doc.Metadata.Year, &doc.Metadata.Publisher, &doc.Metadata.Confidence)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", identifier, err)
	}
	if authorsJSON != "" {
		if err := json.Unmarshal([]byte(authorsJSON), &doc.Metadata.Authors); err != nil {
			return nil, fmt.Errorf("parsing authors for %s: %w", identifier, err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ord, title, kind FROM sections WHERE document_id = ? ORDER BY ord`, identifier)
	if err != nil {
		return nil, fmt.Errorf("reading sections for %s: %w", identifier, err)
	}
	defer rows.Close()

	var sectionIDs []int64
	for rows.Next() {
		var sec types.Section
		var sectionID int64
		if err := rows.Scan(&sectionID, &sec.Order, &sec.Title, (*string)(&sec.Kind)); err != nil {
			return nil, fmt.Errorf("scanning section: %w", err)
		}
		doc.Sections = append(doc.Sections, sec)
		sectionIDs = append(sectionIDs, sectionID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sections: %w", err)
	}

	for i, sectionID := range sectionIDs {
		paras, err := s.sectionParagraphs(ctx, sectionID)
		if err != nil {
			return nil, err
		}
		doc.Sections[i].Paragraphs = paras
	}
	return doc, nil
}

func (s *Store) sectionParagraphs(ctx context.Context, sectionID int64) ([]types.Paragraph, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ord, text FROM paragraphs WHERE section_id = ? ORDER BY ord`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("reading paragraphs: %w", err)
	}
	defer rows.Close()

	var paras []types.Paragraph
	for rows.Next() {
		var p types.Paragraph
		if err := rows.Scan(&p.Order, &p.Text); err != nil {
			return nil, fmt.Errorf("scanning paragraph: %w", err)
		}
		paras = append(paras, p)
	}
	return paras, rows.Err()
}

// DocumentCount returns the number of stored documents.
func (s *Store) DocumentCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}
