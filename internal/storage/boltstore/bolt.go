// Package boltstore implements storage.Store on a single BoltDB file. It is
// the default durable backend for single-process deployments.
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"pastrami/internal/storage"
)

var (
	textBucket    = []byte("texts")
	createdBucket = []byte("created")
)

// Store implements storage.Store backed by BoltDB. Alongside the text
// records it maintains a created-at index bucket keyed by big-endian
// timestamp, so expiry listing is a bounded cursor walk instead of a full
// scan.
type Store struct {
	db *bolt.DB
}

// Open initializes a BoltDB-backed store located at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(textBucket); err != nil {
			return fmt.Errorf("create text bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(createdBucket); err != nil {
			return fmt.Errorf("create created bucket: %w", err)
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Put persists a text. The insert is atomic within a single update
// transaction; an existing id yields storage.ErrConflict.
func (s *Store) Put(ctx context.Context, text *storage.Text) error {
	if text == nil {
		return errors.New("text is nil")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	record := *text
	record.CreatedAt = record.CreatedAt.UTC()

	data, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("marshal text: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		tBucket := tx.Bucket(textBucket)
		cBucket := tx.Bucket(createdBucket)
		if tBucket == nil || cBucket == nil {
			return errors.New("buckets not initialized")
		}
		if existing := tBucket.Get([]byte(record.ID)); existing != nil {
			return storage.ErrConflict
		}
		if err := tBucket.Put([]byte(record.ID), data); err != nil {
			return fmt.Errorf("save text: %w", err)
		}
		if err := cBucket.Put(createdKey(record.CreatedAt, record.ID), []byte(record.ID)); err != nil {
			return fmt.Errorf("index created_at: %w", err)
		}
		return nil
	})
}

// Get retrieves a text by id.
func (s *Store) Get(ctx context.Context, id string) (*storage.Text, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var out *storage.Text
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(textBucket)
		if bucket == nil {
			return errors.New("texts bucket missing")
		}
		raw := bucket.Get([]byte(id))
		if raw == nil {
			return storage.ErrNotFound
		}
		var text storage.Text
		if err := json.Unmarshal(raw, &text); err != nil {
			return fmt.Errorf("unmarshal text: %w", err)
		}
		out = &text
		return nil
	})

	return out, err
}

// Delete removes a text and its index entry. Absent ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		tBucket := tx.Bucket(textBucket)
		cBucket := tx.Bucket(createdBucket)
		if tBucket == nil || cBucket == nil {
			return errors.New("buckets not initialized")
		}
		raw := tBucket.Get([]byte(id))
		if raw == nil {
			return nil
		}
		var text storage.Text
		if err := json.Unmarshal(raw, &text); err == nil {
			if err := cBucket.Delete(createdKey(text.CreatedAt, text.ID)); err != nil {
				return fmt.Errorf("delete created index: %w", err)
			}
		}
		if err := tBucket.Delete([]byte(id)); err != nil {
			return fmt.Errorf("delete text: %w", err)
		}
		return nil
	})
}

// ListExpired returns up to limit ids created before cutoff, oldest first.
func (s *Store) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(createdBucket)
		if bucket == nil {
			return errors.New("created bucket missing")
		}
		cursor := bucket.Cursor()
		limitTs := toTimestamp(cutoff.UTC())
		for key, val := cursor.First(); key != nil; key, val = cursor.Next() {
			if limit > 0 && len(ids) >= limit {
				break
			}
			ts := binary.BigEndian.Uint64(key[:8])
			if ts >= limitTs {
				break
			}
			ids = append(ids, string(val))
		}
		return nil
	})

	return ids, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func createdKey(t time.Time, id string) []byte {
	key := make([]byte, 8+len(id))
	binary.BigEndian.PutUint64(key, toTimestamp(t))
	copy(key[8:], id)
	return key
}

func toTimestamp(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UTC().UnixNano())
}
