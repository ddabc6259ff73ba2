package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/highlightankify/internal/anki"
	"github.com/kpauljoseph/highlightankify/internal/config"
	"github.com/kpauljoseph/highlightankify/internal/flashcard"
	"github.com/kpauljoseph/highlightankify/internal/pipeline"
	"github.com/kpauljoseph/highlightankify/pkg/logger"
	"github.com/kpauljoseph/highlightankify/pkg/models"
)

type fakeDocument struct {
	highlights []models.Highlight
	pages      map[int][]models.Glyph
	closed     bool
}

func (d *fakeDocument) Highlights() ([]models.Highlight, error) { return d.highlights, nil }

func (d *fakeDocument) PageGlyphs(pageIndex int) ([]models.Glyph, error) {
	glyphs, ok := d.pages[pageIndex]
	if !ok {
		return nil, errors.New("no such page")
	}
	return glyphs, nil
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

type echoProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *echoProvider) Name() string { return "echo" }

func (p *echoProvider) Complete(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if strings.Contains(prompt, "Mitochondria produce ATP") {
		return "Q: What do mitochondria produce?\nA: ATP\n---\n", nil
	}
	return "nothing useful", nil
}

// textLine lays out one 5pt glyph per rune on the given baseline.
func textLine(text string, baseline float64) []models.Glyph {
	var glyphs []models.Glyph
	x := 10.0
	for _, r := range text {
		glyphs = append(glyphs, models.Glyph{
			Text:     string(r),
			FontSize: 10,
			Box:      models.Rect{X0: x, Y0: baseline - 2, X1: x + 5, Y1: baseline + 8},
		})
		x += 5
	}
	return glyphs
}

var _ = Describe("Pipeline", func() {
	const sentence = "Cells require energy. Mitochondria produce ATP through oxidative phosphorylation."

	var (
		tempDir  string
		cfg      *config.Config
		doc      *fakeDocument
		provider *echoProvider
		log      *logger.Logger
		ctx      context.Context
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "pipeline-test-*")
		Expect(err).NotTo(HaveOccurred())

		cfg = config.Default()
		cfg.OutputDir = tempDir
		cfg.Generation.RetryBaseDelay = 1

		start := strings.Index(sentence, "Mitochondria")
		end := start + len("Mitochondria produce ATP")
		doc = &fakeDocument{
			highlights: []models.Highlight{
				{PageIndex: 0, Regions: []models.Rect{{X0: 10 + 5*float64(start), Y0: 698, X1: 10 + 5*float64(end), Y1: 710}}},
				{PageIndex: 0, Regions: []models.Rect{{X0: 600, Y0: 100, X1: 650, Y1: 110}}},
				{PageIndex: 3, Regions: []models.Rect{{X0: 10, Y0: 698, X1: 100, Y1: 710}}},
			},
			pages: map[int][]models.Glyph{0: textLine(sentence, 700)},
		}
		provider = &echoProvider{}
		log = logger.New(logger.WithOutput(GinkgoWriter), logger.WithPrefix("[pipeline-test] "), logger.WithFlags(0))
		ctx = context.Background()
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	opener := func() pipeline.Option {
		return pipeline.WithOpener(func(string) (pipeline.Document, error) { return doc, nil })
	}

	It("should extract one context per highlight without a provider", func() {
		p, err := pipeline.New(cfg, nil, log, opener())
		Expect(err).NotTo(HaveOccurred())

		contexts, err := p.Extract(ctx, "cells.pdf")
		Expect(err).NotTo(HaveOccurred())
		Expect(contexts).To(HaveLen(3))
		Expect(contexts[0].HighlightedText).To(Equal("Mitochondria produce ATP"))
		Expect(contexts[1].HighlightedText).To(BeEmpty())
		Expect(contexts[2].Err).To(HaveOccurred())
		Expect(doc.closed).To(BeTrue())
	})

	It("should write matching text and deck files", func() {
		p, err := pipeline.New(cfg, provider, log, opener())
		Expect(err).NotTo(HaveOccurred())

		report := &anki.ProcessingReport{}
		result, err := p.Process(ctx, filepath.Join("notes", "cells.pdf"), "Biology", report)
		Expect(err).NotTo(HaveOccurred())

		Expect(provider.calls).To(Equal(1))
		Expect(result.Cards).To(HaveLen(1))
		Expect(result.Stats.Skipped).To(Equal(1))
		Expect(result.Stats.Unresolved).To(Equal(1))
		Expect(result.TextPath).To(Equal(filepath.Join(tempDir, "cells_flashcards.txt")))
		Expect(result.DeckPath).To(Equal(filepath.Join(tempDir, "cells_anki.txt")))

		text, err := os.ReadFile(result.TextPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(flashcard.ParseCompletion(string(text))).To(Equal([]flashcard.QA{
			{Question: "What do mitochondria produce?", Answer: "ATP"},
		}))

		deck, err := os.ReadFile(result.DeckPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(deck)).To(ContainSubstring("#deck:Biology\n"))
		Expect(string(deck)).To(ContainSubstring("What do mitochondria produce?\tATP\t"))

		Expect(report.ProcessedPDFs).To(Equal(1))
		Expect(report.TotalHighlights).To(Equal(3))
		Expect(report.SkippedHighlights).To(Equal(2))
		Expect(report.TotalFlashcards).To(Equal(1))
	})

	It("should not write files when no cards come back", func() {
		doc.highlights = doc.highlights[1:]
		p, err := pipeline.New(cfg, provider, log, opener())
		Expect(err).NotTo(HaveOccurred())

		result, err := p.Process(ctx, "cells.pdf", "Biology", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Cards).To(BeEmpty())
		Expect(provider.calls).To(BeZero())

		entries, err := os.ReadDir(tempDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("should report a PDF that cannot be opened", func() {
		p, err := pipeline.New(cfg, provider, log, pipeline.WithOpener(func(string) (pipeline.Document, error) {
			return nil, errors.New("failed to open PDF: not a PDF")
		}))
		Expect(err).NotTo(HaveOccurred())

		_, err = p.Process(ctx, "broken.pdf", "Biology", nil)
		Expect(err).To(MatchError(ContainSubstring("not a PDF")))
	})

	It("should reject an unreadable prompt template", func() {
		cfg.Generation.PromptTemplatePath = filepath.Join(tempDir, "missing.tmpl")
		_, err := pipeline.New(cfg, provider, log, opener())
		Expect(errors.Is(err, config.ErrInvalidConfig)).To(BeTrue())
	})
})
