package utils

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Digest returns a short hex blake2b-256 fingerprint of b. It keys cached OCR
// results and names archived snapshots, so identical frames collapse.
func Digest(b []byte) string {
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:16])
}

// DigestString is Digest over the bytes of s.
func DigestString(s string) string {
	return Digest([]byte(s))
}
