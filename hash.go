package sitetrans

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint computes the cache key for a source text: the SHA-256 hash of
// the trimmed, lowercased text. Texts that differ only in case or surrounding
// whitespace share a fingerprint.
func Fingerprint(text string) string {
	folded := strings.ToLower(strings.TrimSpace(text))
	hash := sha256.Sum256([]byte(folded))
	return hex.EncodeToString(hash[:])
}

// Normalize returns the text as it is stored in a cache entry.
// Only surrounding whitespace is removed; case is preserved.
func Normalize(text string) string {
	return strings.TrimSpace(text)
}
