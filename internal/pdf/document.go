package pdf

import (
	"fmt"
	"os"
	"sync"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/kpauljoseph/highlightankify/pkg/logger"
	"github.com/kpauljoseph/highlightankify/pkg/models"
)

const (
	SubtypeHighlight = "Highlight"
	SubtypeUnderline = "Underline"
	SubtypeSquiggly  = "Squiggly"
	SubtypeStrikeOut = "StrikeOut"

	// Glyph boxes span from the descender to the ascender of the font.
	descentRatio = 0.2
	ascentRatio  = 0.8
)

var disableConfigDir sync.Once

// Document reads highlight annotations and positioned text from a PDF file.
type Document struct {
	path          string
	file          *os.File
	reader        *lpdf.Reader
	dims          []types.Dim
	includeMarkup bool
	logger        *logger.Logger

	mu     sync.Mutex
	glyphs map[int][]models.Glyph
}

type Option func(*Document)

// WithMarkup also reports underline, squiggly and strike-out annotations.
func WithMarkup(include bool) Option {
	return func(d *Document) {
		d.includeMarkup = include
	}
}

func Open(path string, log *logger.Logger, opts ...Option) (*Document, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	if err := api.ValidateFile(path, model.NewDefaultConfiguration()); err != nil {
		log.Warn("PDF %s did not validate cleanly, continuing: %v", path, err)
	}

	dims, err := api.PageDimsFile(path)
	if err != nil {
		log.Debug("Could not read page dimensions for %s: %v", path, err)
	}

	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	d := &Document{
		path:   path,
		file:   f,
		reader: r,
		dims:   dims,
		logger: log,
		glyphs: make(map[int][]models.Glyph),
	}
	for _, opt := range opts {
		opt(d)
	}

	log.Debug("Opened %s with %d pages", path, r.NumPage())
	return d, nil
}

func (d *Document) Path() string {
	return d.path
}

func (d *Document) PageCount() int {
	return d.reader.NumPage()
}

// PageSize prefers the dimensions reported by pdfcpu and falls back to the
// page MediaBox.
func (d *Document) PageSize(pageIndex int) (dims models.PageDimensions, err error) {
	if pageIndex >= 0 && pageIndex < len(d.dims) {
		return models.PageDimensions{Width: d.dims[pageIndex].Width, Height: d.dims[pageIndex].Height}, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	defer recoverGeometry(pageIndex, &err)

	page, err := d.page(pageIndex)
	if err != nil {
		return models.PageDimensions{}, err
	}
	box := rectFromArray(page.V.Key("MediaBox"))
	if Area(box) == 0 {
		return models.PageDimensions{}, fmt.Errorf("%w: page %d has no MediaBox", ErrPageGeometry, pageIndex)
	}
	return models.PageDimensions{Width: box.X1 - box.X0, Height: box.Y1 - box.Y0}, nil
}

// Highlights returns all highlight annotations sorted in reading order. A page
// or annotation the reader cannot decode is skipped.
func (d *Document) Highlights() ([]models.Highlight, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var highlights []models.Highlight
	for pageIndex := 0; pageIndex < d.reader.NumPage(); pageIndex++ {
		found, err := d.pageHighlights(pageIndex)
		if err != nil {
			d.logger.Warn("Skipping annotations on page %d: %v", pageIndex+1, err)
		}
		highlights = append(highlights, found...)
	}

	SortHighlights(highlights)
	return highlights, nil
}

func (d *Document) pageHighlights(pageIndex int) (highlights []models.Highlight, err error) {
	defer recoverGeometry(pageIndex, &err)

	page, err := d.page(pageIndex)
	if err != nil {
		return nil, err
	}

	annots := page.V.Key("Annots")
	for i := 0; i < annots.Len(); i++ {
		h, ok, err := d.annotation(annots, pageIndex, i)
		if err != nil {
			d.logger.Warn("Skipping annotation %d on page %d: %v", i, pageIndex+1, err)
			continue
		}
		if ok {
			highlights = append(highlights, h)
		}
	}
	return highlights, nil
}

func (d *Document) annotation(annots lpdf.Value, pageIndex, i int) (h models.Highlight, ok bool, err error) {
	defer recoverGeometry(pageIndex, &err)

	annot := annots.Index(i)
	subtype := annot.Key("Subtype").Name()
	if !d.wanted(subtype) {
		return models.Highlight{}, false, nil
	}

	h = models.Highlight{
		PageIndex: pageIndex,
		Regions:   annotationRegions(annot),
		Color:     annotationColor(annot.Key("C")),
		Note:      annot.Key("Contents").Text(),
		Subtype:   subtype,
	}
	if len(h.Regions) == 0 {
		d.logger.Warn("Highlight %d on page %d has no geometry", i, pageIndex+1)
	}
	d.logger.Trace("Found %s on page %d with %d regions", subtype, pageIndex+1, len(h.Regions))
	return h, true, nil
}

// recoverGeometry turns a panic from the PDF reader into ErrPageGeometry.
// It must be deferred directly.
func recoverGeometry(pageIndex int, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: page %d: %v", ErrPageGeometry, pageIndex, r)
	}
}

func (d *Document) wanted(subtype string) bool {
	switch subtype {
	case SubtypeHighlight:
		return true
	case SubtypeUnderline, SubtypeSquiggly, SubtypeStrikeOut:
		return d.includeMarkup
	default:
		return false
	}
}

// PageGlyphs returns positioned characters for a page in content-stream order.
func (d *Document) PageGlyphs(pageIndex int) (glyphs []models.Glyph, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cached, ok := d.glyphs[pageIndex]; ok {
		return cached, nil
	}

	// The content stream interpreter panics on malformed streams.
	defer recoverGeometry(pageIndex, &err)

	page, err := d.page(pageIndex)
	if err != nil {
		return nil, err
	}

	content := page.Content()
	glyphs = make([]models.Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, glyphFromText(t))
	}

	d.glyphs[pageIndex] = glyphs
	d.logger.Trace("Page %d has %d glyphs", pageIndex, len(glyphs))
	return glyphs, nil
}

func (d *Document) page(pageIndex int) (lpdf.Page, error) {
	if pageIndex < 0 || pageIndex >= d.reader.NumPage() {
		return lpdf.Page{}, fmt.Errorf("%w: page %d out of range", ErrPageGeometry, pageIndex)
	}
	page := d.reader.Page(pageIndex + 1)
	if page.V.IsNull() {
		return lpdf.Page{}, fmt.Errorf("%w: page %d missing", ErrPageGeometry, pageIndex)
	}
	return page, nil
}

func (d *Document) Close() error {
	return d.file.Close()
}

func glyphFromText(t lpdf.Text) models.Glyph {
	size := t.FontSize
	if size <= 0 {
		size = 1
	}
	width := t.W
	if width <= 0 {
		width = size * 0.5
	}
	return models.Glyph{
		Text:     t.S,
		FontSize: size,
		Box: models.Rect{
			X0: t.X,
			Y0: t.Y - descentRatio*size,
			X1: t.X + width,
			Y1: t.Y + ascentRatio*size,
		},
	}
}

func annotationRegions(annot lpdf.Value) []models.Rect {
	qp := annot.Key("QuadPoints")
	if qp.Len() >= 8 {
		values := make([]float64, qp.Len())
		for i := range values {
			values[i] = qp.Index(i).Float64()
		}
		return QuadPointsToRects(values)
	}

	rect := rectFromArray(annot.Key("Rect"))
	if Area(rect) == 0 {
		return nil
	}
	return []models.Rect{rect}
}

func rectFromArray(v lpdf.Value) models.Rect {
	if v.Len() != 4 {
		return models.Rect{}
	}
	return Normalize(models.Rect{
		X0: v.Index(0).Float64(),
		Y0: v.Index(1).Float64(),
		X1: v.Index(2).Float64(),
		Y1: v.Index(3).Float64(),
	})
}

func annotationColor(v lpdf.Value) *models.Color {
	switch v.Len() {
	case 1:
		g := v.Index(0).Float64()
		return &models.Color{R: g, G: g, B: g}
	case 3:
		return &models.Color{R: v.Index(0).Float64(), G: v.Index(1).Float64(), B: v.Index(2).Float64()}
	case 4:
		c, m, y, k := v.Index(0).Float64(), v.Index(1).Float64(), v.Index(2).Float64(), v.Index(3).Float64()
		return &models.Color{R: (1 - c) * (1 - k), G: (1 - m) * (1 - k), B: (1 - y) * (1 - k)}
	default:
		return nil
	}
}
