package anki

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kpauljoseph/highlightankify/pkg/models"
)

// WriteDeckFile writes cards as an Anki text import file for the Basic note
// type. File > Import in Anki reads the header lines and puts the cards in
// deckName.
func WriteDeckFile(path, deckName string, cards []models.Flashcard) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create deck file: %w", err)
	}
	defer f.Close()

	if err := EncodeDeck(f, deckName, cards); err != nil {
		return fmt.Errorf("failed to write deck %s: %w", path, err)
	}
	return f.Close()
}

func EncodeDeck(w io.Writer, deckName string, cards []models.Flashcard) error {
	bw := bufio.NewWriter(w)
	headers := []string{
		"#separator:tab",
		"#html:false",
		"#notetype:Basic",
		"#deck:" + strings.ReplaceAll(deckName, "\n", " "),
		"#columns:Front\tBack\tTags",
		"#tags column:3",
	}
	for _, h := range headers {
		bw.WriteString(h + "\n")
	}

	cw := csv.NewWriter(bw)
	cw.Comma = '\t'
	deckTag := tagFromDeckName(deckName)
	for _, card := range cards {
		tags := []string{"highlightankify"}
		if deckTag != "" {
			tags = append(tags, deckTag)
		}
		if card.SourceContext != nil {
			tags = append(tags, fmt.Sprintf("page_%d", card.SourceContext.PageIndex+1))
		}
		if err := cw.Write([]string{card.Question, card.Answer, strings.Join(tags, " ")}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
