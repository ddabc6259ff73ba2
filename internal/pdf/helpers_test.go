package pdf_test

import (
	. "github.com/onsi/ginkgo/v2"

	"github.com/kpauljoseph/highlightankify/pkg/logger"
	"github.com/kpauljoseph/highlightankify/pkg/models"
)

func pdfTestLogger() *logger.Logger {
	log := logger.New(
		logger.WithOutput(GinkgoWriter),
		logger.WithPrefix("[pdf-test] "),
		logger.WithFlags(0),
	)
	log.SetVerbose(true)
	log.SetLevel(logger.LevelTrace)
	return log
}

// line lays out one glyph per rune on a baseline, 5pt wide, 10pt font.
func line(text string, x, baseline float64) []models.Glyph {
	glyphs := make([]models.Glyph, 0, len(text))
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
