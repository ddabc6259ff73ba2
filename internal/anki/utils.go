package anki

import (
	"path/filepath"
	"strings"
)

const (
	ANKI_CONNECT_VERSION = 6
)

// GetDeckNameFromPath builds a nested Anki deck name from a PDF's path
// relative to the scanned root, e.g. "Root::biology::cells".
func GetDeckNameFromPath(rootPrefix string, relativePath string) string {
	dirPath := filepath.Dir(relativePath)
	if dirPath == "." {
		dirPath = ""
	}

	fileName := strings.TrimSuffix(filepath.Base(relativePath), filepath.Ext(relativePath))

	var parts []string
	if rootPrefix != "" {
		parts = append(parts, rootPrefix)
	}
	if dirPath != "" {
		parts = append(parts, strings.Split(dirPath, string(filepath.Separator))...)
	}
	parts = append(parts, fileName)

	return strings.Join(parts, "::")
}

func tagFromDeckName(deckName string) string {
	return strings.ReplaceAll(strings.TrimSpace(deckName), " ", "_")
}
