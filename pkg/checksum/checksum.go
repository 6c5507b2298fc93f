// Package checksum holds the SHA-256 helpers shared by the storage backends.
// Blobs are hashed at upload time and the hex digest travels with the file
// record, so later downloads and metadata reads can detect corruption without
// each backend wiring crypto/sha256 itself.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// CalculateSHA256 streams the reader through SHA-256 and returns the lowercase
// hex digest.
func CalculateSHA256(reader io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, reader); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifySHA256 reports whether the reader's contents hash to expectedChecksum.
func VerifySHA256(reader io.Reader, expectedChecksum string) (bool, error) {
	actual, err := CalculateSHA256(reader)
	if err != nil {
		return false, err
	}
	return actual == expectedChecksum, nil
}
