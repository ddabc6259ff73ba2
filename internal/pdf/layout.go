package pdf

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/kpauljoseph/highlightankify/pkg/models"
)

const (
	// A horizontal gap wider than this fraction of the font size is a word break.
	wordGapRatio = 0.15
	// A baseline shift larger than this fraction of the font size is a new line.
	lineShiftRatio = 0.5
)

// Span is a half-open byte range into PageText.Text.
type Span struct {
	Start int
	End   int
}

func (s Span) Empty() bool {
	return s.End <= s.Start
}

// PageText is the linear text of a page with the position of every glyph in it.
// Lines are joined by a single space so that text spanning a line break reads
// the same as the highlighted text joined from per-line regions.
type PageText struct {
	Text   string
	Glyphs []models.Glyph
	Spans  []Span
}

// BuildPageText lays glyphs out in content-stream order, which follows the
// author's reading order for multi-column pages better than sorting by position.
func BuildPageText(glyphs []models.Glyph) PageText {
	var b strings.Builder
	spans := make([]Span, len(glyphs))
	pendingSpace := false

	for i, g := range glyphs {
		if i > 0 && breaksFrom(glyphs[i-1], g) {
			pendingSpace = true
		}

		text := g.Text
		if strings.TrimSpace(text) == "" {
			pendingSpace = true
			spans[i] = Span{Start: b.Len(), End: b.Len()}
			continue
		}

		if strings.IndexFunc(text, unicode.IsSpace) >= 0 {
			text = strings.Join(strings.Fields(text), " ")
		}

		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false

		start := b.Len()
		b.WriteString(text)
		spans[i] = Span{Start: start, End: b.Len()}
	}

	return PageText{Text: b.String(), Glyphs: glyphs, Spans: spans}
}

func breaksFrom(prev, cur models.Glyph) bool {
	size := math.Max(math.Max(prev.FontSize, cur.FontSize), 1)

	prevBase := prev.Box.Y0
	curBase := cur.Box.Y0
	if math.Abs(prevBase-curBase) > lineShiftRatio*size {
		return true
	}
	// Moving left on the same baseline means a new line or column.
	if cur.Box.X0 < prev.Box.X0 {
		return true
	}
	return cur.Box.X0-prev.Box.X1 > wordGapRatio*size
}

// CoveredRuns returns the runs of page text covered by glyphs inside any of
// the regions. A glyph under several overlapping regions is counted once.
// Glyphs separated only by whitespace form one run. Runs are ordered
// top-to-bottom, then left-to-right, by their first glyph.
func (p PageText) CoveredRuns(regions []models.Rect, threshold float64) []Span {
	type run struct {
		span  Span
		first models.Rect
	}
	var runs []run

	for i, g := range p.Glyphs {
		sp := p.Spans[i]
		if sp.Empty() || !insideAny(g.Box, regions, threshold) {
			continue
		}
		if n := len(runs); n > 0 {
			last := &runs[n-1].span
			if sp.Start >= last.Start && sp.End <= last.End {
				continue
			}
			if sp.Start >= last.End && strings.TrimSpace(p.Text[last.End:sp.Start]) == "" {
				last.End = sp.End
				continue
			}
		}
		runs = append(runs, run{span: sp, first: Normalize(g.Box)})
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return visualLess(runs[i].first, runs[j].first)
	})
	spans := make([]Span, len(runs))
	for i, r := range runs {
		spans[i] = r.span
	}
	return spans
}

func insideAny(box models.Rect, regions []models.Rect, threshold float64) bool {
	for _, r := range regions {
		if Inside(box, r, threshold) {
			return true
		}
	}
	return false
}

func (p PageText) Slice(s Span) string {
	if s.Empty() {
		return ""
	}
	return strings.TrimSpace(p.Text[s.Start:s.End])
}
