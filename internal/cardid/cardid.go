package cardid

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize cleans a headword for identity purposes. It trims whitespace,
// lowercases, and collapses inner runs of whitespace to a single space so
// that "Take  Off" and "take off" name the same card.
func Normalize(word string) string {
	return strings.Join(strings.Fields(strings.ToLower(word)), " ")
}

// FromWord returns the card id for a headword: the SHA-256 of the normalized
// word, hex encoded and shortened to 16 characters.
func FromWord(word string) string {
	hashBytes := sha256.Sum256([]byte(Normalize(word)))
	return fmt.Sprintf("%x", hashBytes)[:16]
}
