package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// FlashcardHash identifies a card by its normalised question and answer, so the
// same card produced twice maps to the same Anki note.
func FlashcardHash(question, answer string) string {
	hasher := sha256.New()
	hasher.Write([]byte(normalize(question)))
	hasher.Write([]byte{0})
	hasher.Write([]byte(normalize(answer)))
	return hex.EncodeToString(hasher.Sum(nil))
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
