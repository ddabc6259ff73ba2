package models

// Point is a position in PDF user space (origin bottom-left, y grows upwards).
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned box in PDF user space.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

type PageDimensions struct {
	Width  float64
	Height float64
}

type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Highlight is one markup annotation found in the source document.
type Highlight struct {
	PageIndex int    `json:"page_index"`
	Regions   []Rect `json:"regions"`
	Color     *Color `json:"color,omitempty"`
	Note      string `json:"note,omitempty"`
	Subtype   string `json:"subtype"`
}

// Glyph is the smallest positioned text unit on a page.
type Glyph struct {
	Text     string
	Box      Rect
	FontSize float64
}

// Context is a highlight together with enough page text to read it standalone.
// A non-nil Err means the highlight could not be resolved against its page.
type Context struct {
	Highlight       Highlight `json:"highlight"`
	HighlightedText string    `json:"highlighted_text"`
	SurroundingText string    `json:"surrounding_text"`
	PageIndex       int       `json:"page_index"`
	Err             error     `json:"-"`
}

type Flashcard struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Answer        string   `json:"answer"`
	Hash          string   `json:"hash"`
	SourceContext *Context `json:"-"`
}
