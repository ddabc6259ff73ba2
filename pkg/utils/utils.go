package utils

import (
	"path/filepath"
	"strings"
)

// DefaultOutputPaths derives the text and deck file names written next to each
// other for a given PDF.
func DefaultOutputPaths(outputDir, pdfPath string) (textPath, deckPath string) {
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	if outputDir == "" {
		outputDir = "."
	}
	return filepath.Join(outputDir, base+"_flashcards.txt"),
		filepath.Join(outputDir, base+"_anki.txt")
}
