package pdf

import (
	"errors"

	"github.com/kpauljoseph/highlightankify/pkg/models"
)

// ErrPageGeometry is returned when a page's text geometry cannot be recovered.
var ErrPageGeometry = errors.New("page geometry unavailable")

// PageAccessor provides positioned text for a page. Page indexes are zero based.
type PageAccessor interface {
	PageGlyphs(pageIndex int) ([]models.Glyph, error)
}

// HighlightSource lists highlight annotations in reading order.
type HighlightSource interface {
	Highlights() ([]models.Highlight, error)
}
