package id

import (
	"context"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the identifier charset: URL-safe alphanumerics plus dash.
const Alphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Length 22 over a 63-character alphabet gives about 131 bits of entropy,
// keeping the birthday collision probability negligible for any realistic
// number of live texts.
const Length = 22

// Generator produces unguessable, URL-safe identifiers from a
// cryptographically secure random source.
type Generator struct {
	length int
}

// New returns a Generator with the provided length. If length <= 0, the
// default is used.
func New(length int) *Generator {
	if length <= 0 {
		length = Length
	}
	return &Generator{length: length}
}

// Generate returns a new identifier.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return gonanoid.Generate(Alphabet, g.length)
}

// Valid reports whether s has the exact length and charset of a generated
// identifier.
func (g *Generator) Valid(s string) bool {
	if len(s) != g.length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}
	return true
}
