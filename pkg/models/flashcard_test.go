package models_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/highlightankify/pkg/models"
)

var _ = Describe("Flashcard Models", func() {
	Context("Highlight", func() {
		It("should keep regions in the order they were given", func() {
			h := models.Highlight{
				PageIndex: 2,
				Regions: []models.Rect{
					{X0: 10, Y0: 700, X1: 200, Y1: 712},
					{X0: 10, Y0: 686, X1: 120, Y1: 698},
				},
				Color:   &models.Color{R: 1, G: 1, B: 0},
				Note:    "check this",
				Subtype: "Highlight",
			}

			Expect(h.PageIndex).To(Equal(2))
			Expect(h.Regions).To(HaveLen(2))
			Expect(h.Regions[0].Y1).To(BeNumerically(">", h.Regions[1].Y1))
			Expect(h.Color.G).To(Equal(1.0))
			Expect(h.Note).To(Equal("check this"))
		})
	})

	Context("Context", func() {
		It("should carry the resolution error separately from the text", func() {
			c := models.Context{
				PageIndex: 4,
				Err:       errors.New("no geometry"),
			}

			Expect(c.HighlightedText).To(BeEmpty())
			Expect(c.Err).To(MatchError("no geometry"))
		})
	})

	Context("Flashcard", func() {
		It("should point back at the context it came from", func() {
			source := &models.Context{HighlightedText: "Mitochondria produce ATP"}
			card := models.Flashcard{
				ID:            "card1",
				Question:      "What do mitochondria produce?",
				Answer:        "ATP",
				Hash:          "hash123",
				SourceContext: source,
			}

			Expect(card.Question).To(Equal("What do mitochondria produce?"))
			Expect(card.Answer).To(Equal("ATP"))
			Expect(card.SourceContext).To(BeIdenticalTo(source))
		})
	})
})
