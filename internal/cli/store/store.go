// Package store is the durable local store: committed note blobs,
// transient draft blobs and fast per-note metadata, all in one SQLite
// file. Every operation is individually atomic; there are no cross-key
// transactions. Callers treat any failure as "content unknown".
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	// NotePrefix and DraftPrefix are the key namespaces reported by
	// ListAllKeys.
	NotePrefix  = "note:"
	DraftPrefix = "draft:"
)

// Store wraps the client SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the note database under dir.
// The database path is returned alongside the store.
func Open(dir string) (*Store, string, error) {
	if dir == "" {
		return nil, "", errors.New("empty data dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", err
	}
	dbPath := filepath.Join(dir, "notes.sqlite")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, "", err
	}
	s := &Store{db: db}
	return s, dbPath, nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate ensures the required tables exist.
func (s *Store) Migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS notes (
  id TEXT PRIMARY KEY,
  content TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS drafts (
  id TEXT PRIMARY KEY,
  content TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS note_meta (
  id TEXT PRIMARY KEY,
  updated_at INTEGER NOT NULL DEFAULT 0,
  preview TEXT NOT NULL DEFAULT ''
);
`
	_, err := s.db.Exec(ddl)
	return err
}

// GetNote returns committed content for id. ok is false when absent.
func (s *Store) GetNote(ctx context.Context, id string) (string, bool, error) {
	return s.getBlob(ctx, "notes", id)
}

// SetNote writes committed content for id.
func (s *Store) SetNote(ctx context.Context, id, content string) error {
	return s.setBlob(ctx, "notes", id, content)
}

// DeleteNote removes the committed content for id.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	return s.deleteBlob(ctx, "notes", id)
}

// GetDraft returns draft content for id. ok is false when absent.
func (s *Store) GetDraft(ctx context.Context, id string) (string, bool, error) {
	return s.getBlob(ctx, "drafts", id)
}

// SetDraft writes draft content for id.
func (s *Store) SetDraft(ctx context.Context, id, content string) error {
	return s.setBlob(ctx, "drafts", id, content)
}

// DeleteDraft removes the draft for id.
func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	return s.deleteBlob(ctx, "drafts", id)
}

// ListAllKeys enumerates both namespaces as "note:<id>" and
// "draft:<id>" strings.
func (s *Store) ListAllKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT 'note:' || id FROM notes UNION ALL SELECT 'draft:' || id FROM drafts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Meta is the fast per-note metadata row: the last committed timestamp
// and the cached preview. It lets lists render without reading blobs.
type Meta struct {
	UpdatedAt int64
	Preview   string
}

// GetMeta returns the metadata for id. ok is false when absent.
func (s *Store) GetMeta(ctx context.Context, id string) (Meta, bool, error) {
	var m Meta
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at, preview FROM note_meta WHERE id = ?`, id).
		Scan(&m.UpdatedAt, &m.Preview)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Meta{}, false, nil
		}
		return Meta{}, false, err
	}
	return m, true, nil
}

// SetMeta writes the metadata for id.
func (s *Store) SetMeta(ctx context.Context, id string, m Meta) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO note_meta(id, updated_at, preview) VALUES(?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, preview = excluded.preview`,
		id, m.UpdatedAt, m.Preview)
	return err
}

// DeleteMeta removes the metadata for id.
func (s *Store) DeleteMeta(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM note_meta WHERE id = ?`, id)
	return err
}

func (s *Store) getBlob(ctx context.Context, table, id string) (string, bool, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM `+table+` WHERE id = ?`, id).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return content, true, nil
}

func (s *Store) setBlob(ctx context.Context, table, id, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+table+`(id, content) VALUES(?, ?)
		 ON CONFLICT(id) DO UPDATE SET content = excluded.content`,
		id, content)
	return err
}

func (s *Store) deleteBlob(ctx context.Context, table, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	return err
}
