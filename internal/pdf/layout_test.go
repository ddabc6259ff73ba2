package pdf_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/highlightankify/internal/pdf"
	"github.com/kpauljoseph/highlightankify/pkg/models"
)

var _ = Describe("Page layout", func() {
	It("should join words and lines with single spaces", func() {
		var glyphs []models.Glyph
		glyphs = append(glyphs, line("Cells", 10, 700)...)
		glyphs = append(glyphs, line("need", 50, 700)...)
		glyphs = append(glyphs, line("energy.", 10, 686)...)

		page := pdf.BuildPageText(glyphs)
		Expect(page.Text).To(Equal("Cells need energy."))
		Expect(page.Spans).To(HaveLen(len(glyphs)))
	})

	It("should collapse explicit whitespace glyphs", func() {
		glyphs := line("a  b", 10, 700)
		page := pdf.BuildPageText(glyphs)
		Expect(page.Text).To(Equal("a b"))
	})

	It("should map a region to the text it covers", func() {
		var glyphs []models.Glyph
		glyphs = append(glyphs, line("skip", 10, 700)...)
		glyphs = append(glyphs, line("keep", 40, 700)...)
		page := pdf.BuildPageText(glyphs)

		runs := page.CoveredRuns([]models.Rect{{X0: 39, Y0: 697, X1: 61, Y1: 709}}, 0.5)
		Expect(runs).To(HaveLen(1))
		Expect(page.Slice(runs[0])).To(Equal("keep"))
	})

	It("should find no text under a region over blank space", func() {
		page := pdf.BuildPageText(line("text", 10, 700))
		runs := page.CoveredRuns([]models.Rect{{X0: 300, Y0: 300, X1: 400, Y1: 320}}, 0.5)
		Expect(runs).To(BeEmpty())
		Expect(page.Slice(pdf.Span{})).To(BeEmpty())
	})

	Context("CoveredRuns", func() {
		var page pdf.PageText

		BeforeEach(func() {
			page = pdf.BuildPageText(line("one two three", 10, 700))
		})

		slices := func(spans []pdf.Span) []string {
			out := make([]string, 0, len(spans))
			for _, sp := range spans {
				out = append(out, page.Slice(sp))
			}
			return out
		}

		It("should count glyphs under overlapping regions once", func() {
			one := models.Rect{X0: 9, Y0: 697, X1: 26, Y1: 709}
			runs := page.CoveredRuns([]models.Rect{one, one, {X0: 12, Y0: 697, X1: 26, Y1: 709}}, 0.5)
			Expect(slices(runs)).To(Equal([]string{"one"}))
		})

		It("should split pieces separated by uncovered text", func() {
			three := models.Rect{X0: 49, Y0: 697, X1: 76, Y1: 709}
			one := models.Rect{X0: 9, Y0: 697, X1: 26, Y1: 709}
			runs := page.CoveredRuns([]models.Rect{three, one}, 0.5)
			Expect(slices(runs)).To(Equal([]string{"one", "three"}))
		})

		It("should merge pieces separated only by whitespace", func() {
			one := models.Rect{X0: 9, Y0: 697, X1: 26, Y1: 709}
			two := models.Rect{X0: 29, Y0: 697, X1: 46, Y1: 709}
			runs := page.CoveredRuns([]models.Rect{two, one}, 0.5)
			Expect(slices(runs)).To(Equal([]string{"one two"}))
		})
	})
})
