// Package crypto derives per-text encryption keys from identifiers and
// performs authenticated encryption of text content. The identifier is both
// the address of a text and its unlocking secret: a database dump is
// unreadable without the ids, which are never persisted alongside the rows
// they unlock.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrIntegrity is returned when authentication fails during decryption:
// wrong id, corrupted storage, or tampering.
var ErrIntegrity = errors.New("ciphertext failed authentication")

const (
	keySize   = 32
	nonceSize = 12
)

// HKDF salt and info pin derived keys to this application. Both are public;
// key secrecy rests entirely on the id.
var (
	kdfSalt = []byte("pastrami/texts/v1")
	kdfInfo = []byte("per-text content key")
)

// DeriveKey expands an identifier into a 256-bit AES key using HKDF-SHA256.
// It is a pure function of the id and shares no state with Encrypt, so the
// two are independently testable.
func DeriveKey(id string) ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(id), kdfSalt, kdfInfo), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// Cipher encrypts and decrypts text content under id-derived keys using
// AES-256-GCM with the id bound as associated data.
type Cipher struct {
	rand io.Reader
}

// New returns a Cipher backed by the system random source.
func New() *Cipher {
	return &Cipher{rand: rand.Reader}
}

// Encrypt seals plaintext under a key derived from id, with a fresh random
// nonce. The id is bound as associated data, so a ciphertext moved to another
// id's row will not decrypt.
func (c *Cipher) Encrypt(id string, plaintext []byte) (ciphertext, nonce []byte, err error) {
	aead, err := c.aead(id)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, nonceSize)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nil, nonce, plaintext, []byte(id)), nonce, nil
}

// Decrypt opens ciphertext sealed by Encrypt under the same id and nonce.
// It returns ErrIntegrity when the authentication tag does not verify.
func (c *Cipher) Decrypt(id string, ciphertext, nonce []byte) ([]byte, error) {
	aead, err := c.aead(id)
	if err != nil {
		return nil, err
	}
	if len(nonce) != nonceSize {
		return nil, ErrIntegrity
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(id))
	if err != nil {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

func (c *Cipher) aead(id string) (cipher.AEAD, error) {
	key, err := DeriveKey(id)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aead, nil
}
