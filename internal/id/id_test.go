package id

import (
	"context"
	"strings"
	"testing"
)

func TestGenerateCharsetAndLength(t *testing.T) {
	g := New(0)
	for i := 0; i < 100; i++ {
		id, err := g.Generate(context.Background())
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(id) != Length {
			t.Fatalf("expected length %d, got %d (%q)", Length, len(id), id)
		}
		for _, c := range id {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("unexpected character %q in %q", c, id)
			}
		}
	}
}

func TestGenerateUnique(t *testing.T) {
	g := New(0)
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id, err := g.Generate(context.Background())
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d generations", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(0).Generate(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestValid(t *testing.T) {
	g := New(0)
	ok, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	cases := []struct {
		name string
		id   string
		want bool
	}{
		{"generated", ok, true},
		{"empty", "", false},
		{"short", ok[:Length-1], false},
		{"long", ok + "a", false},
		{"underscore", strings.Repeat("_", Length), false},
		{"space", ok[:Length-1] + " ", false},
		{"dashes", strings.Repeat("-", Length), true},
	}
	for _, tc := range cases {
		if got := g.Valid(tc.id); got != tc.want {
			t.Errorf("%s: Valid(%q) = %v, want %v", tc.name, tc.id, got, tc.want)
		}
	}
}
