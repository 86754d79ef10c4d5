package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a text does not exist.
var ErrNotFound = errors.New("text not found")

// ErrConflict is returned by Put when the id already exists. The caller
// retries with a freshly allocated id.
var ErrConflict = errors.New("text id already exists")

// Text is a stored entry. Content is persisted only in encrypted form;
// CreatedAt is set once at persistence time and never updated.
type Text struct {
	ID         string    `json:"id"`
	Ciphertext []byte    `json:"ciphertext"`
	Nonce      []byte    `json:"nonce"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines the storage backend contract.
//
// Put is atomic: at most one row per id ever exists, and a duplicate id
// yields ErrConflict. Delete is idempotent; deleting an absent id is not an
// error. ListExpired returns at most limit ids created strictly before
// cutoff, so sweeps proceed in bounded batches.
type Store interface {
	Put(ctx context.Context, text *Text) error
	Get(ctx context.Context, id string) (*Text, error)
	Delete(ctx context.Context, id string) error
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	Close() error
}
