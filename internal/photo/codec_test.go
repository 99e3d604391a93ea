package photo

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	encoded := Encode(raw)

	tests := []struct {
		name  string
		input string
	}{
		{"plain", encoded},
		{"surrounding whitespace", "  \n" + encoded + "\r\n"},
		{"data url", "data:image/jpeg;base64," + encoded},
		{"missing padding", strings.TrimRight(encoded, "=")},
		{"data url missing padding", "data:image/jpeg;base64," + strings.TrimRight(encoded, "=")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, raw) {
				t.Errorf("Decode() = %v; want %v", got, raw)
			}
		})
	}
}

func TestDecode_UnpaddedSingleByte(t *testing.T) {
	got, err := Decode("QUJDRA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "ABCD" {
		t.Errorf("Decode() = %q; want %q", got, "ABCD")
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"invalid characters", "not*base64!"},
		{"truncated padding", "QUJDRA="},
		{"data url without base64", "data:image/jpeg,abc"},
		{"data url with empty payload", "data:image/png;base64,"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.input)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("expected ErrDecode, got %v", err)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("photo-a"))
	b := Fingerprint([]byte("photo-b"))

	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}
	if a != Fingerprint([]byte("photo-a")) {
		t.Error("expected fingerprint to be deterministic")
	}
	if a == b {
		t.Error("expected different content to produce different fingerprints")
	}
}
