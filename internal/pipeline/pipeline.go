// Package pipeline runs one PDF through extraction, generation and output.
package pipeline

import (
	"context"
	"fmt"

	"github.com/kpauljoseph/highlightankify/internal/anki"
	"github.com/kpauljoseph/highlightankify/internal/config"
	"github.com/kpauljoseph/highlightankify/internal/flashcard"
	"github.com/kpauljoseph/highlightankify/internal/highlight"
	"github.com/kpauljoseph/highlightankify/internal/llm"
	"github.com/kpauljoseph/highlightankify/internal/output"
	"github.com/kpauljoseph/highlightankify/internal/pdf"
	"github.com/kpauljoseph/highlightankify/pkg/logger"
	"github.com/kpauljoseph/highlightankify/pkg/models"
	"github.com/kpauljoseph/highlightankify/pkg/utils"
)

// Document is the part of a parsed PDF the pipeline reads.
type Document interface {
	pdf.HighlightSource
	pdf.PageAccessor
	Close() error
}

type Opener func(path string) (Document, error)

type Pipeline struct {
	cfg       *config.Config
	open      Opener
	generator *flashcard.Generator
	anki      *anki.Service
	logger    *logger.Logger
}

type Option func(*Pipeline)

func WithOpener(open Opener) Option {
	return func(p *Pipeline) {
		p.open = open
	}
}

// WithAnki pushes generated cards to a running Anki through AnkiConnect.
func WithAnki(service *anki.Service) Option {
	return func(p *Pipeline) {
		p.anki = service
	}
}

type Result struct {
	Highlights int
	Contexts   []models.Context
	Cards      []models.Flashcard
	Stats      flashcard.Stats
	TextPath   string
	DeckPath   string
}

// New builds a pipeline. provider may be nil when only Extract is used.
func New(cfg *config.Config, provider llm.Provider, log *logger.Logger, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:    cfg,
		logger: log,
	}
	p.open = func(path string) (Document, error) {
		return pdf.Open(path, log, pdf.WithMarkup(cfg.Extraction.IncludeMarkup))
	}
	for _, opt := range opts {
		opt(p)
	}

	if provider != nil {
		tmpl, err := flashcard.LoadTemplate(cfg.Generation.PromptTemplatePath)
		if err != nil {
			return nil, err
		}
		p.generator = flashcard.NewGenerator(provider, flashcard.Options{
			Workers:        cfg.Generation.Workers,
			MaxRetries:     cfg.Generation.MaxRetries,
			RetryBaseDelay: cfg.Generation.RetryBaseDelay,
			RequestTimeout: cfg.Generation.RequestTimeout,
			Template:       tmpl,
		}, log)
	}
	return p, nil
}

// Extract resolves every highlight in the PDF at path to its context.
func (p *Pipeline) Extract(ctx context.Context, path string) ([]models.Context, error) {
	doc, err := p.open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	highlights, err := doc.Highlights()
	if err != nil {
		return nil, fmt.Errorf("failed to read highlights: %w", err)
	}
	p.logger.Debug("Found %d highlights in %s", len(highlights), path)
	if len(highlights) == 0 {
		return nil, nil
	}

	extractor := highlight.NewExtractor(doc, highlight.Options{
		WindowChars:      p.cfg.Extraction.WindowChars,
		OverlapThreshold: p.cfg.Extraction.OverlapThreshold,
		SnapToSentences:  !p.cfg.Extraction.DisableSentenceSnap,
	}, p.logger)
	return extractor.GetContexts(ctx, highlights)
}

// Process generates cards for one PDF and writes them next to each other in
// the output directory. A canceled run still writes the cards produced so far.
func (p *Pipeline) Process(ctx context.Context, path, deckName string, report *anki.ProcessingReport) (*Result, error) {
	if p.generator == nil {
		return nil, fmt.Errorf("no language model provider configured")
	}
	if report == nil {
		report = &anki.ProcessingReport{}
	}

	contexts, err := p.Extract(ctx, path)
	result := &Result{Highlights: len(contexts), Contexts: contexts}
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("failed to extract highlights from %s: %w", path, err)
	}
	report.ProcessedPDFs++
	report.TotalHighlights += len(contexts)

	if len(contexts) == 0 {
		p.logger.Info("No highlights in %s", path)
		return result, ctx.Err()
	}

	var genErr error
	if ctx.Err() == nil {
		result.Cards, result.Stats, genErr = p.generator.GenerateFlashcards(ctx, contexts)
	}
	report.SkippedHighlights += result.Stats.Skipped + result.Stats.Unresolved
	report.FailedHighlights += result.Stats.Failed
	report.TotalFlashcards += len(result.Cards)

	if len(result.Cards) == 0 {
		p.logger.Info("No flashcards generated for %s", path)
		return result, genErr
	}

	result.TextPath, result.DeckPath = utils.DefaultOutputPaths(p.cfg.OutputDir, path)
	if err := output.WriteText(result.TextPath, result.Cards); err != nil {
		return result, err
	}
	if err := anki.WriteDeckFile(result.DeckPath, deckName, result.Cards); err != nil {
		return result, err
	}
	p.logger.Info("Wrote %d flashcards to %s and %s", len(result.Cards), result.TextPath, result.DeckPath)

	if genErr != nil {
		return result, genErr
	}

	if p.anki != nil {
		if err := p.anki.CreateDeck(ctx, deckName); err != nil {
			return result, fmt.Errorf("failed to create deck %s: %w", deckName, err)
		}
		if err := p.anki.AddAllFlashcards(ctx, deckName, result.Cards, report); err != nil {
			return result, fmt.Errorf("failed to add flashcards to deck %s: %w", deckName, err)
		}
	}
	return result, nil
}
