// Package photo converts photos between their transport encoding and raw image bytes.
package photo

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrDecode is returned for photos whose transport encoding is missing or malformed.
var ErrDecode = errors.New("malformed photo encoding")

// Decode converts a base64 encoded photo into raw image bytes.
// Surrounding whitespace, missing padding and a data URL prefix (data:image/jpeg;base64,...) are accepted.
func Decode(encoded string) ([]byte, error) {
	s := strings.TrimSpace(encoded)
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ";base64,")
		if idx < 0 {
			return nil, fmt.Errorf("%w: data URL is not base64 encoded", ErrDecode)
		}
		s = s[idx+len(";base64,"):]
	}
	if s == "" {
		return nil, fmt.Errorf("%w: photo is empty", ErrDecode)
	}

	// Padding is optional, but when present it must be complete.
	enc := base64.StdEncoding
	if !strings.HasSuffix(s, "=") {
		enc = base64.RawStdEncoding
	}
	data, err := enc.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: photo is empty", ErrDecode)
	}
	return data, nil
}

// Encode is the inverse of Decode.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Fingerprint returns the hex SHA-256 digest of the raw image bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
