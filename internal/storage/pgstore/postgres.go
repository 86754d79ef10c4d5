// Package pgstore implements storage.Store on PostgreSQL. It is the backend
// for deployments where multiple server processes share one database.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"pastrami/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements storage.Store over a PostgreSQL connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to the database at dsn and applies pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an existing database handle. Used by tests; Open is the
// production entry point.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Put inserts a text. ON CONFLICT DO NOTHING keeps the insert atomic; zero
// rows affected means the id already existed.
func (s *Store) Put(ctx context.Context, text *storage.Text) error {
	if text == nil {
		return errors.New("text is nil")
	}

	const q = `
INSERT INTO texts (id, ciphertext, nonce, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING;
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
	const q = `SELECT id, ciphertext, nonce, created_at FROM texts WHERE id = $1;`
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
	const q = `DELETE FROM texts WHERE id = $1;`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("delete text: %w", err)
	}
	return nil
}

// ListExpired returns up to limit ids created before cutoff, oldest first.
func (s *Store) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	const q = `SELECT id FROM texts WHERE created_at < $1 ORDER BY created_at LIMIT $2;`
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

// Close closes the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
