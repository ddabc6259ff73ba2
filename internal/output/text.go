// Package output writes generated cards to plain-text files.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kpauljoseph/highlightankify/pkg/models"
)

// WriteText writes cards to path in the Q:/A:/--- format the model is asked
// to produce, creating parent directories as needed.
func WriteText(path string, cards []models.Flashcard) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := EncodeText(f, cards); err != nil {
		return fmt.Errorf("failed to write flashcards to %s: %w", path, err)
	}
	return f.Close()
}

func EncodeText(w io.Writer, cards []models.Flashcard) error {
	bw := bufio.NewWriter(w)
	for _, card := range cards {
		fmt.Fprintf(bw, "Q: %s\n", field(card.Question))
		fmt.Fprintf(bw, "A: %s\n", field(card.Answer))
		bw.WriteString("---\n")
	}
	return bw.Flush()
}

// field drops blank lines, which would otherwise end the field when read back.
func field(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
