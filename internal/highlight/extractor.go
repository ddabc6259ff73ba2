package highlight

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/kpauljoseph/highlightankify/internal/pdf"
	"github.com/kpauljoseph/highlightankify/pkg/logger"
	"github.com/kpauljoseph/highlightankify/pkg/models"
)

type Options struct {
	WindowChars      int
	OverlapThreshold float64
	SnapToSentences  bool
}

func DefaultOptions() Options {
	return Options{
		WindowChars:      300,
		OverlapThreshold: 0.5,
		SnapToSentences:  true,
	}
}

// ExtractionError records a highlight whose page could not be read.
type ExtractionError struct {
	PageIndex int
	Regions   []models.Rect
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("highlight on page %d at %s: %v", e.PageIndex+1, describeRegions(e.Regions), e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

type Extractor struct {
	pages  pdf.PageAccessor
	opts   Options
	logger *logger.Logger
}

func NewExtractor(pages pdf.PageAccessor, opts Options, logger *logger.Logger) *Extractor {
	if opts.OverlapThreshold <= 0 || opts.OverlapThreshold >= 1 {
		opts.OverlapThreshold = DefaultOptions().OverlapThreshold
	}
	if opts.WindowChars < 0 {
		opts.WindowChars = 0
	}
	return &Extractor{
		pages:  pages,
		opts:   opts,
		logger: logger,
	}
}

// GetContexts resolves every highlight to a Context. The result always has one
// entry per highlight, in the same order; highlights that cannot be resolved
// carry an ExtractionError and empty text.
func (e *Extractor) GetContexts(ctx context.Context, highlights []models.Highlight) ([]models.Context, error) {
	contexts := make([]models.Context, 0, len(highlights))
	pages := make(map[int]pdf.PageText)
	failed := make(map[int]error)

	for i, h := range highlights {
		select {
		case <-ctx.Done():
			return contexts, ctx.Err()
		default:
		}

		c := models.Context{Highlight: h, PageIndex: h.PageIndex}

		if err, ok := failed[h.PageIndex]; ok {
			c.Err = &ExtractionError{PageIndex: h.PageIndex, Regions: h.Regions, Err: err}
			contexts = append(contexts, c)
			continue
		}

		page, ok := pages[h.PageIndex]
		if !ok {
			glyphs, err := e.pages.PageGlyphs(h.PageIndex)
			if err != nil {
				failed[h.PageIndex] = err
				c.Err = &ExtractionError{PageIndex: h.PageIndex, Regions: h.Regions, Err: err}
				e.logger.Warn("Skipping highlight %d: %v", i+1, c.Err)
				contexts = append(contexts, c)
				continue
			}
			page = pdf.BuildPageText(glyphs)
			pages[h.PageIndex] = page
		}

		c.HighlightedText, c.SurroundingText = e.resolve(page, h.Regions)
		if c.HighlightedText == "" {
			e.logger.Info("Highlight %d on page %d at %s covers no text", i+1, h.PageIndex+1, describeRegions(h.Regions))
		} else {
			e.logger.Trace("Highlight %d: %q", i+1, c.HighlightedText)
		}
		contexts = append(contexts, c)
	}

	return contexts, nil
}

// Markers delimit the highlighted runs inside the surrounding text when the
// highlight is not one contiguous passage.
const (
	MarkOpen  = "«"
	MarkClose = "»"
)

func (e *Extractor) resolve(page pdf.PageText, regions []models.Rect) (highlighted, surrounding string) {
	runs := page.CoveredRuns(regions, e.opts.OverlapThreshold)
	if len(runs) == 0 {
		return "", ""
	}

	parts := make([]string, 0, len(runs))
	covered := runs[0]
	for _, r := range runs {
		parts = append(parts, page.Slice(r))
		if r.Start < covered.Start {
			covered.Start = r.Start
		}
		if r.End > covered.End {
			covered.End = r.End
		}
	}
	highlighted = strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if highlighted == "" {
		return "", ""
	}

	window := Window(page.Text, covered, e.opts.WindowChars, e.opts.SnapToSentences)
	if len(runs) == 1 {
		surrounding = strings.TrimSpace(page.Text[window.Start:window.End])
	} else {
		surrounding = strings.TrimSpace(markRuns(page.Text, window, runs))
	}
	if surrounding == "" {
		surrounding = highlighted
	}
	return highlighted, surrounding
}

// markRuns returns the window of text with every run wrapped in markers.
func markRuns(text string, window pdf.Span, runs []pdf.Span) string {
	ordered := append([]pdf.Span(nil), runs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	var b strings.Builder
	pos := window.Start
	for _, r := range ordered {
		b.WriteString(text[pos:r.Start])
		b.WriteString(MarkOpen)
		b.WriteString(text[r.Start:r.End])
		b.WriteString(MarkClose)
		pos = r.End
	}
	b.WriteString(text[pos:window.End])
	return b.String()
}

// Window grows span by up to n bytes on each side, clipped to the text. With
// snap set, each side is pulled in to the outermost sentence boundary inside
// the added margin so the context starts and ends on whole sentences.
func Window(text string, span pdf.Span, n int, snap bool) pdf.Span {
	lo := span.Start - n
	if lo < 0 {
		lo = 0
	}
	hi := span.End + n
	if hi > len(text) {
		hi = len(text)
	}

	lo = alignStart(text, lo, span.Start)
	hi = alignEnd(text, hi, span.End)

	if snap {
		if s := sentenceStartAfter(text, lo, span.Start); s >= 0 {
			lo = s
		}
		if s := sentenceEndBefore(text, span.End, hi); s >= 0 {
			hi = s
		}
	}
	return pdf.Span{Start: lo, End: hi}
}

// alignStart moves lo forward to the next word start, never past limit.
func alignStart(text string, lo, limit int) int {
	if lo == 0 || text[lo-1] == ' ' {
		return lo
	}
	for lo < limit && text[lo] != ' ' {
		lo++
	}
	return lo
}

// alignEnd moves hi back to the previous word end, never before limit.
func alignEnd(text string, hi, limit int) int {
	if hi == len(text) || text[hi] == ' ' {
		return hi
	}
	for hi > limit && text[hi-1] != ' ' {
		hi--
	}
	return hi
}

// sentenceStartAfter finds the earliest sentence start in [from, limit].
func sentenceStartAfter(text string, from, limit int) int {
	if from == 0 {
		return -1
	}
	for i := from; i <= limit && i < len(text); i++ {
		if i >= 2 && text[i-1] == ' ' && isTerminal(text[i-2]) {
			return i
		}
	}
	return -1
}

// sentenceEndBefore finds the last sentence end in [from, limit].
func sentenceEndBefore(text string, from, limit int) int {
	if limit == len(text) {
		return -1
	}
	for i := limit; i > from; i-- {
		if isTerminal(text[i-1]) && (i == len(text) || text[i] == ' ') {
			return i
		}
	}
	return -1
}

func isTerminal(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func describeRegions(regions []models.Rect) string {
	if len(regions) == 0 {
		return "(no regions)"
	}
	r := pdf.Normalize(regions[0])
	s := fmt.Sprintf("(%.0f,%.0f)-(%.0f,%.0f)", r.X0, r.Y0, r.X1, r.Y1)
	if len(regions) > 1 {
		s += fmt.Sprintf(" +%d", len(regions)-1)
	}
	return s
}

// Preview shortens text to at most n runes for log lines.
func Preview(text string, n int) string {
	text = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, text)
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "…"
}
