package security

import (
	"bytes"
	"errors"
	"testing"
)

func TestNewAcceptanceTokenShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		token, err := NewAcceptanceToken()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !IsAcceptanceToken(token) {
			t.Fatalf("unexpected token shape %q", token)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = struct{}{}
	}
}

func TestNewAcceptanceTokenDeterministicReader(t *testing.T) {
	token, err := newAcceptanceToken(bytes.NewReader(bytes.Repeat([]byte{0xab}, AcceptanceTokenBytes)))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if token != "abababababababababababababababab" {
		t.Fatalf("unexpected token %q", token)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestNewAcceptanceTokenPropagatesReaderError(t *testing.T) {
	if _, err := newAcceptanceToken(failingReader{}); err == nil {
		t.Fatal("expected error from failing reader")
	}
}

func TestIsAcceptanceTokenRejectsMalformed(t *testing.T) {
	for _, value := range []string{"", "abc", "ABABABABABABABABABABABABABABABAB", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		if IsAcceptanceToken(value) {
			t.Fatalf("expected %q to be rejected", value)
		}
	}
}
