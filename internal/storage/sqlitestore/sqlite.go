//go:build sqlite

// Package sqlitestore implements storage.Store using SQLite. Build with
// -tags sqlite to select it as the file backend.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"pastrami/internal/storage"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Open initializes the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := initialize(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initialize(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS texts (
    id TEXT PRIMARY KEY,
    ciphertext BLOB NOT NULL,
    nonce BLOB NOT NULL,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_texts_created_at ON texts (created_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Put inserts a text. INSERT OR IGNORE keeps the operation atomic; zero rows
// affected means the id already existed.
func (s *Store) Put(ctx context.Context, text *storage.Text) error {
	if text == nil {
		return errors.New("text is nil")
	}

	const q = `
INSERT OR IGNORE INTO texts (id, ciphertext, nonce, created_at)
VALUES (?, ?, ?, ?);
`
	res, err := s.db.ExecContext(ctx, q, text.ID, text.Ciphertext, text.Nonce, text.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save text: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrConflict
	}
	return nil
}

// Get fetches a text by id.
func (s *Store) Get(ctx context.Context, id string) (*storage.Text, error) {
	const q = `SELECT id, ciphertext, nonce, created_at FROM texts WHERE id = ?;`
	row := s.db.QueryRowContext(ctx, q, id)

	var text storage.Text
	if err := row.Scan(&text.ID, &text.Ciphertext, &text.Nonce, &text.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query text: %w", err)
	}
	text.CreatedAt = text.CreatedAt.UTC()
	return &text, nil
}

// Delete removes a text by id. Absent ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM texts WHERE id = ?;`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("delete text: %w", err)
	}
	return nil
}

// ListExpired returns up to limit ids created before cutoff, oldest first.
func (s *Store) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	const q = `SELECT id FROM texts WHERE created_at < ? ORDER BY created_at LIMIT ?;`
	rows, err := s.db.QueryContext(ctx, q, cutoff.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query expired: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired: %w", err)
	}
	return ids, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
