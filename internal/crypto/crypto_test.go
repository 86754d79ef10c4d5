package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	a, err := DeriveKey("abc123")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := DeriveKey("abc123")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("same id produced different keys")
	}
	if len(a) != keySize {
		t.Fatalf("expected %d-byte key, got %d", keySize, len(a))
	}
	other, err := DeriveKey("abc124")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if bytes.Equal(a, other) {
		t.Fatal("different ids produced the same key")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := New()
	plaintext := []byte("hello world")
	ciphertext, nonce, err := c.Encrypt("someid", plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Fatal("ciphertext contains plaintext")
	}
	out, err := c.Decrypt("someid", ciphertext, nonce)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(out, plaintext) {
		t.Fatalf("round trip mismatch: %q", out)
	}
}

func TestEncryptNonceFreshPerCall(t *testing.T) {
	c := New()
	_, n1, err := c.Encrypt("id", []byte("x"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	_, n2, err := c.Encrypt("id", []byte("x"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(n1, n2) {
		t.Fatal("nonce reused across encryptions")
	}
}

func TestDecryptWrongID(t *testing.T) {
	c := New()
	ciphertext, nonce, err := c.Encrypt("first", []byte("secret"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := c.Decrypt("second", ciphertext, nonce); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	c := New()
	ciphertext, nonce, err := c.Encrypt("tamper", []byte("secret"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	for i := range ciphertext {
		mangled := append([]byte(nil), ciphertext...)
		mangled[i] ^= 0x01
		if _, err := c.Decrypt("tamper", mangled, nonce); !errors.Is(err, ErrIntegrity) {
			t.Fatalf("byte %d: expected ErrIntegrity, got %v", i, err)
		}
	}
}

func TestDecryptBadNonce(t *testing.T) {
	c := New()
	ciphertext, _, err := c.Encrypt("id", []byte("x"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := c.Decrypt("id", ciphertext, []byte("short")); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	c := New()
	ciphertext, nonce, err := c.Encrypt("empty", nil)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	out, err := c.Decrypt("empty", ciphertext, nonce)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty plaintext, got %q", out)
	}
}
