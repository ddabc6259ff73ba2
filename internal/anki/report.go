package anki

import (
	"time"

	"github.com/kpauljoseph/highlightankify/pkg/logger"
)

type SkippedCard struct {
	DeckName   string
	PageNumber int
	Hash       string
	Question   string
}

// ProcessingReport summarises one run over a set of PDFs.
type ProcessingReport struct {
	StartTime time.Time
	EndTime   time.Time

	ProcessedPDFs     int
	TotalHighlights   int
	SkippedHighlights int
	FailedHighlights  int
	TotalFlashcards   int

	AddedCount   int
	SkippedCount int
	FailedCount  int
	SkippedCards []SkippedCard
}

func (r *ProcessingReport) TimeTaken() time.Duration {
	end := r.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(r.StartTime).Round(time.Millisecond)
}

func (r *ProcessingReport) Print(log *logger.Logger) {
	log.Info("Processing complete:")
	log.Info("- Total PDFs processed: %d", r.ProcessedPDFs)
	log.Info("- Highlights found: %d (%d empty or unreadable, %d failed)", r.TotalHighlights, r.SkippedHighlights, r.FailedHighlights)
	log.Info("- Total flashcards generated: %d", r.TotalFlashcards)
	if r.AddedCount > 0 || r.SkippedCount > 0 || r.FailedCount > 0 {
		log.Info("- Cards added to Anki: %d", r.AddedCount)
		log.Info("- Cards skipped as duplicates: %d", r.SkippedCount)
		if r.FailedCount > 0 {
			log.Info("- Cards that could not be added: %d", r.FailedCount)
		}
	}
	log.Info("- Time taken: %v", r.TimeTaken())

	for _, card := range r.SkippedCards {
		log.Debug("Skipped %s (Page %d, Hash:%s): %s", card.DeckName, card.PageNumber, card.Hash, card.Question)
	}
}
