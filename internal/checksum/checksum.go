// Package checksum computes the content hashes used as blob keys.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
)

// Pattern matches a digest produced by Sum.
var Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumReader hashes r to EOF and returns the digest and the number of bytes read.
func SumReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("checksum: read: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Valid reports whether s has the shape of a digest produced by Sum.
func Valid(s string) bool {
	return Pattern.MatchString(s)
}
