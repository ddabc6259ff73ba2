package flashcard

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/kpauljoseph/highlightankify/internal/config"
	"github.com/kpauljoseph/highlightankify/pkg/models"
)

// ErrEmptyHighlight is returned when a context has no highlighted text to ask about.
var ErrEmptyHighlight = errors.New("highlight has no text")

//go:embed prompt.tmpl
var defaultPrompt string

type promptData struct {
	HighlightedText string
	SurroundingText string
	Note            string
	Page            int
}

func DefaultTemplate() *template.Template {
	return template.Must(template.New("flashcard").Parse(defaultPrompt))
}

// LoadTemplate parses the prompt template at path, or returns the built-in one
// when path is empty.
func LoadTemplate(path string) (*template.Template, error) {
	if path == "" {
		return DefaultTemplate(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v", config.ErrInvalidConfig, path, err)
	}

	tmpl, err := template.New("flashcard").Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", config.ErrInvalidConfig, err)
	}
	return tmpl, nil
}

func BuildPrompt(tmpl *template.Template, c models.Context) (string, error) {
	if strings.TrimSpace(c.HighlightedText) == "" {
		return "", ErrEmptyHighlight
	}

	surrounding := c.SurroundingText
	if strings.TrimSpace(surrounding) == "" {
		surrounding = c.HighlightedText
	}

	data := promptData{
		HighlightedText: c.HighlightedText,
		SurroundingText: surrounding,
		Note:            strings.TrimSpace(c.Highlight.Note),
		Page:            c.PageIndex + 1,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
