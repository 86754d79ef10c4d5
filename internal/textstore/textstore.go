// Package textstore composes the id allocator, the cipher, and a storage
// backend into the store/retrieve service the HTTP layer consumes. Texts are
// immutable once written and expire after a configured number of days.
package textstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pastrami/internal/crypto"
	"pastrami/internal/id"
	"pastrami/internal/storage"
)

var (
	// ErrNotFound covers absent, expired, and tampered texts alike, so the
	// error cannot be used as an existence or tamper oracle.
	ErrNotFound = storage.ErrNotFound

	// ErrTooLarge is returned before any allocation or encryption when the
	// text exceeds the configured maximum length.
	ErrTooLarge = errors.New("text exceeds maximum length")

	// ErrInvalidID is returned for identifiers that do not match the
	// generated charset and length.
	ErrInvalidID = errors.New("malformed text id")

	// ErrAllocatorExhausted is returned when repeated id collisions exhaust
	// the retry budget.
	ErrAllocatorExhausted = errors.New("id allocation retries exhausted")
)

// Put collisions are vanishingly rare at the configured id length, so a
// small budget is plenty.
const allocAttempts = 5

// Config captures the dependencies and limits of a TextStore.
type Config struct {
	Store     storage.Store
	IDGen     *id.Generator
	Cipher    *crypto.Cipher
	MaxLength int
	DaySpan   int
	Logger    *slog.Logger
}

// TextStore is the secure text store facade.
type TextStore struct {
	store   storage.Store
	idGen   *id.Generator
	cipher  *crypto.Cipher
	maxLen  int
	horizon time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// New constructs a TextStore from cfg. MaxLength and DaySpan must be
// positive.
func New(cfg Config) (*TextStore, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.MaxLength <= 0 {
		return nil, errors.New("maxlength must be positive")
	}
	if cfg.DaySpan <= 0 {
		return nil, errors.New("dayspan must be positive")
	}
	if cfg.IDGen == nil {
		cfg.IDGen = id.New(0)
	}
	if cfg.Cipher == nil {
		cfg.Cipher = crypto.New()
	}
	return &TextStore{
		store:   cfg.Store,
		idGen:   cfg.IDGen,
		cipher:  cfg.Cipher,
		maxLen:  cfg.MaxLength,
		horizon: time.Duration(cfg.DaySpan) * 24 * time.Hour,
		logger:  cfg.Logger,
		now:     time.Now,
	}, nil
}

// Store encrypts text under a freshly allocated id, persists it, and
// returns the id. The size check runs before any allocation or encryption,
// so an oversized text leaves no side effects.
func (s *TextStore) Store(ctx context.Context, text string) (string, error) {
	if len(text) > s.maxLen {
		return "", ErrTooLarge
	}

	for attempt := 0; attempt < allocAttempts; attempt++ {
		textID, err := s.idGen.Generate(ctx)
		if err != nil {
			return "", fmt.Errorf("allocate id: %w", err)
		}
		ciphertext, nonce, err := s.cipher.Encrypt(textID, []byte(text))
		if err != nil {
			return "", fmt.Errorf("encrypt text: %w", err)
		}
		err = s.store.Put(ctx, &storage.Text{
			ID:         textID,
			Ciphertext: ciphertext,
			Nonce:      nonce,
			CreatedAt:  s.now().UTC(),
		})
		if errors.Is(err, storage.ErrConflict) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("persist text: %w", err)
		}
		return textID, nil
	}
	return "", ErrAllocatorExhausted
}

// Retrieve decrypts and returns the text stored under textID. Expired texts
// are lazily deleted and reported as not found; so are texts whose
// ciphertext fails authentication.
func (s *TextStore) Retrieve(ctx context.Context, textID string) (string, error) {
	if !s.idGen.Valid(textID) {
		return "", ErrInvalidID
	}

	text, err := s.store.Get(ctx, textID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("fetch text: %w", err)
	}

	if s.expired(text.CreatedAt) {
		// Best effort: the read must not fail because cleanup did.
		if err := s.store.Delete(ctx, textID); err != nil && s.logger != nil {
			s.logger.Warn("lazy delete of expired text failed", "id", textID, "error", err)
		}
		return "", ErrNotFound
	}

	plaintext, err := s.cipher.Decrypt(textID, text.Ciphertext, text.Nonce)
	if err != nil {
		if errors.Is(err, crypto.ErrIntegrity) {
			if s.logger != nil {
				s.logger.Error("stored ciphertext failed authentication", "id", textID)
			}
			return "", ErrNotFound
		}
		return "", fmt.Errorf("decrypt text: %w", err)
	}
	return string(plaintext), nil
}

// Delete removes the text stored under textID. Absent ids are a no-op.
func (s *TextStore) Delete(ctx context.Context, textID string) error {
	if !s.idGen.Valid(textID) {
		return ErrInvalidID
	}
	if err := s.store.Delete(ctx, textID); err != nil {
		return fmt.Errorf("delete text: %w", err)
	}
	return nil
}

// Horizon returns the retention horizon derived from the configured dayspan.
func (s *TextStore) Horizon() time.Duration {
	return s.horizon
}

// MaxLength returns the maximum accepted text size in bytes.
func (s *TextStore) MaxLength() int {
	return s.maxLen
}

func (s *TextStore) expired(createdAt time.Time) bool {
	return s.now().Sub(createdAt) > s.horizon
}
