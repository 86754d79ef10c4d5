// Package memstore provides a process-local storage.Store for deployments
// that explicitly do not need durability. All texts are lost on restart.
package memstore

import (
	"context"
	"sync"
	"time"

	"pastrami/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store with an in-process map.
type Store struct {
	mu    sync.RWMutex
	texts map[string]storage.Text
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{texts: make(map[string]storage.Text)}
}

// Put inserts a text, failing with storage.ErrConflict if the id exists.
func (s *Store) Put(ctx context.Context, text *storage.Text) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.texts[text.ID]; exists {
		return storage.ErrConflict
	}
	s.texts[text.ID] = clone(text)
	return nil
}

// Get fetches a text by id.
func (s *Store) Get(ctx context.Context, id string) (*storage.Text, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.texts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := clone(&text)
	return &out, nil
}

// Delete removes a text. Deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.texts, id)
	return nil
}

// ListExpired returns up to limit ids created before cutoff.
func (s *Store) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, text := range s.texts {
		if limit > 0 && len(ids) >= limit {
			break
		}
		if text.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Close releases nothing; it exists to satisfy storage.Store.
func (s *Store) Close() error {
	return nil
}

// clone copies the record so callers cannot mutate stored state through
// shared byte slices.
func clone(t *storage.Text) storage.Text {
	out := *t
	out.Ciphertext = append([]byte(nil), t.Ciphertext...)
	out.Nonce = append([]byte(nil), t.Nonce...)
	return out
}
