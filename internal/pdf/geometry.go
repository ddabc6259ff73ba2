package pdf

import (
	"math"
	"sort"

	"github.com/kpauljoseph/highlightankify/pkg/models"
)

// Normalize orders the corners so that X0<=X1 and Y0<=Y1.
func Normalize(r models.Rect) models.Rect {
	return models.Rect{
		X0: math.Min(r.X0, r.X1),
		Y0: math.Min(r.Y0, r.Y1),
		X1: math.Max(r.X0, r.X1),
		Y1: math.Max(r.Y0, r.Y1),
	}
}

func Area(r models.Rect) float64 {
	w := r.X1 - r.X0
	h := r.Y1 - r.Y0
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Intersect returns the common box of a and b, or an empty rect.
func Intersect(a, b models.Rect) models.Rect {
	a, b = Normalize(a), Normalize(b)
	r := models.Rect{
		X0: math.Max(a.X0, b.X0),
		Y0: math.Max(a.Y0, b.Y0),
		X1: math.Min(a.X1, b.X1),
		Y1: math.Min(a.Y1, b.Y1),
	}
	if r.X0 >= r.X1 || r.Y0 >= r.Y1 {
		return models.Rect{}
	}
	return r
}

// OverlapRatio is the fraction of the glyph box covered by the region.
func OverlapRatio(glyph, region models.Rect) float64 {
	ga := Area(Normalize(glyph))
	if ga == 0 {
		return 0
	}
	return Area(Intersect(glyph, region)) / ga
}

// Inside reports whether the glyph counts as part of the region.
func Inside(glyph, region models.Rect, threshold float64) bool {
	return OverlapRatio(glyph, region) > threshold
}

// QuadBounds converts a quadrilateral to its axis-aligned bounding box.
func QuadBounds(quad [4]models.Point) models.Rect {
	r := models.Rect{X0: quad[0].X, Y0: quad[0].Y, X1: quad[0].X, Y1: quad[0].Y}
	for _, p := range quad[1:] {
		r.X0 = math.Min(r.X0, p.X)
		r.Y0 = math.Min(r.Y0, p.Y)
		r.X1 = math.Max(r.X1, p.X)
		r.Y1 = math.Max(r.Y1, p.Y)
	}
	return r
}

// QuadPointsToRects groups a flat QuadPoints array into one box per quad.
// Trailing values that do not form a full quad are ignored.
func QuadPointsToRects(values []float64) []models.Rect {
	rects := make([]models.Rect, 0, len(values)/8)
	for i := 0; i+8 <= len(values); i += 8 {
		var quad [4]models.Point
		for j := 0; j < 4; j++ {
			quad[j] = models.Point{X: values[i+2*j], Y: values[i+2*j+1]}
		}
		rects = append(rects, QuadBounds(quad))
	}
	return rects
}

// SortRegionsVisual orders regions top-to-bottom, then left-to-right. Regions
// whose vertical centres lie within half a line height count as the same row.
func SortRegionsVisual(regions []models.Rect) []models.Rect {
	sorted := make([]models.Rect, len(regions))
	for i, r := range regions {
		sorted[i] = Normalize(r)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return visualLess(sorted[i], sorted[j])
	})
	return sorted
}

func visualLess(a, b models.Rect) bool {
	ca, cb := (a.Y0+a.Y1)/2, (b.Y0+b.Y1)/2
	tol := math.Min(a.Y1-a.Y0, b.Y1-b.Y0) / 2
	if math.Abs(ca-cb) > tol {
		return ca > cb
	}
	return a.X0 < b.X0
}

// Top is the upper edge of the highest region, used for reading order.
func Top(regions []models.Rect) float64 {
	top := math.Inf(-1)
	for _, r := range regions {
		top = math.Max(top, Normalize(r).Y1)
	}
	return top
}

// Left is the leftmost edge of all regions.
func Left(regions []models.Rect) float64 {
	left := math.Inf(1)
	for _, r := range regions {
		left = math.Min(left, Normalize(r).X0)
	}
	return left
}

// SortHighlights puts highlights in document reading order.
func SortHighlights(highlights []models.Highlight) {
	sort.SliceStable(highlights, func(i, j int) bool {
		a, b := highlights[i], highlights[j]
		if a.PageIndex != b.PageIndex {
			return a.PageIndex < b.PageIndex
		}
		ta, tb := Top(a.Regions), Top(b.Regions)
		if ta != tb {
			return ta > tb
		}
		return Left(a.Regions) < Left(b.Regions)
	})
}
