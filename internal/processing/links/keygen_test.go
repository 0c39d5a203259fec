package links

import (
	"strings"
	"testing"
)

func TestCryptoKeyGeneratorGenerate(t *testing.T) {
	g := NewCryptoKeyGenerator()

	t.Run("correct length", func(t *testing.T) {
		key, err := g.Generate(8)
		if err != nil {
			t.Fatal(err)
		}
		if len(key) != 8 {
			t.Errorf("got length %d, want 8", len(key))
		}
	})

	t.Run("restricted alphabet only", func(t *testing.T) {
		key, err := g.Generate(200)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range key {
			if !strings.ContainsRune(keyAlphabet, c) {
				t.Errorf("key contains out-of-alphabet char: %q", c)
			}
		}
	})

	t.Run("no ambiguous characters", func(t *testing.T) {
		for _, c := range "0O1lI" {
			if strings.ContainsRune(keyAlphabet, c) {
				t.Errorf("alphabet contains ambiguous char %q", c)
			}
		}
	})

	t.Run("zero length uses default", func(t *testing.T) {
		key, err := g.Generate(0)
		if err != nil {
			t.Fatal(err)
		}
		if len(key) != DefaultKeyLength {
			t.Errorf("got length %d, want %d", len(key), DefaultKeyLength)
		}
	})

	t.Run("uniqueness over 100 calls", func(t *testing.T) {
		seen := make(map[string]struct{}, 100)
		for range 100 {
			key, err := g.Generate(10)
			if err != nil {
				t.Fatal(err)
			}
			if _, exists := seen[key]; exists {
				t.Fatalf("duplicate key generated: %q", key)
			}
			seen[key] = struct{}{}
		}
	})
}

func TestValidateCustomKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"simple word", "promo", false},
		{"with hyphen and underscore", "black-friday_24", false},
		{"minimum length", "abc", false},
		{"maximum length", strings.Repeat("a", 20), false},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", 21), true},
		{"contains slash", "a/b/c", true},
		{"contains space", "my key", true},
		{"contains unicode", "prömo", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCustomKey(tt.key)
			if tt.wantErr && err == nil {
				t.Errorf("expected error for %q", tt.key)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for %q: %v", tt.key, err)
			}
		})
	}
}
