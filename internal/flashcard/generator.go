package flashcard

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/kpauljoseph/highlightankify/internal/llm"
	"github.com/kpauljoseph/highlightankify/pkg/logger"
	"github.com/kpauljoseph/highlightankify/pkg/models"
	"github.com/kpauljoseph/highlightankify/pkg/utils"
)

var cardNamespace = uuid.MustParse("6f1c9a52-3d0b-4c8e-9a8d-2b7e5f41c0d3")

type Options struct {
	Workers        int
	MaxRetries     int
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
	Template       *template.Template
}

func DefaultOptions() Options {
	return Options{
		Workers:        1,
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
		RequestTimeout: 90 * time.Second,
	}
}

// Stats counts what happened to each context during one run.
type Stats struct {
	Contexts      int
	Skipped       int
	Unresolved    int
	Failed        int
	Cards         int
	DroppedBlocks int
}

type outcome int

const (
	outcomeCards outcome = iota
	outcomeSkipped
	outcomeUnresolved
	outcomeFailed
	outcomePending
)

type result struct {
	cards   []models.Flashcard
	dropped int
	outcome outcome
}

type Generator struct {
	provider llm.Provider
	opts     Options
	logger   *logger.Logger
}

func NewGenerator(provider llm.Provider, opts Options, logger *logger.Logger) *Generator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = time.Millisecond
	}
	if opts.Template == nil {
		opts.Template = DefaultTemplate()
	}
	return &Generator{
		provider: provider,
		opts:     opts,
		logger:   logger,
	}
}

// GenerateFlashcards produces cards for every context, keeping input order.
// A context whose provider calls keep failing contributes no cards and does
// not stop the run. When ctx is canceled the cards finished so far are
// returned together with the context error.
func (g *Generator) GenerateFlashcards(ctx context.Context, contexts []models.Context) ([]models.Flashcard, Stats, error) {
	results := make([]result, len(contexts))
	for i := range results {
		results[i].outcome = outcomePending
	}

	var eg errgroup.Group
	eg.SetLimit(g.opts.Workers)

	for i := range contexts {
		if ctx.Err() != nil {
			break
		}
		i := i
		eg.Go(func() error {
			results[i] = g.generateOne(ctx, i, &contexts[i])
			return nil
		})
	}
	_ = eg.Wait()

	stats := Stats{Contexts: len(contexts)}
	var cards []models.Flashcard
	for _, r := range results {
		switch r.outcome {
		case outcomeSkipped:
			stats.Skipped++
		case outcomeUnresolved:
			stats.Unresolved++
		case outcomeFailed:
			stats.Failed++
		}
		stats.DroppedBlocks += r.dropped
		cards = append(cards, r.cards...)
	}
	stats.Cards = len(cards)

	if err := ctx.Err(); err != nil {
		g.logger.Info("Generation interrupted, keeping %d cards", len(cards))
		return cards, stats, err
	}

	g.logger.Debug("Generated %d cards from %d contexts (%d skipped, %d unresolved, %d failed)",
		stats.Cards, stats.Contexts, stats.Skipped, stats.Unresolved, stats.Failed)
	return cards, stats, nil
}

func (g *Generator) generateOne(ctx context.Context, index int, c *models.Context) result {
	if ctx.Err() != nil {
		return result{outcome: outcomePending}
	}
	if c.Err != nil {
		g.logger.Debug("Skipping unresolved highlight %d: %v", index+1, c.Err)
		return result{outcome: outcomeUnresolved}
	}
	if strings.TrimSpace(c.HighlightedText) == "" {
		g.logger.Debug("Skipping empty highlight %d on page %d", index+1, c.PageIndex+1)
		return result{outcome: outcomeSkipped}
	}

	prompt, err := BuildPrompt(g.opts.Template, *c)
	if err != nil {
		g.logger.Warn("Dropping highlight %d %s: %v", index+1, location(c), err)
		return result{outcome: outcomeFailed}
	}
	g.logger.Trace("Prompt for highlight %d:\n%s", index+1, prompt)

	completion, err := g.complete(ctx, index, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return result{outcome: outcomePending}
		}
		g.logger.Warn("Dropping cards for highlight %d %s: %v", index+1, location(c), err)
		return result{outcome: outcomeFailed}
	}
	g.logger.Trace("Completion for highlight %d:\n%s", index+1, completion)

	pairs, dropped := parseBlocks(completion)
	if dropped > 0 {
		g.logger.Debug("Discarded %d incomplete blocks for highlight %d", dropped, index+1)
	}
	if len(pairs) == 0 {
		g.logger.Info("No cards produced for highlight %d %s", index+1, location(c))
	}

	cards := make([]models.Flashcard, 0, len(pairs))
	for _, qa := range pairs {
		cards = append(cards, NewFlashcard(qa, c))
	}
	return result{cards: cards, dropped: dropped, outcome: outcomeCards}
}

// complete calls the provider with a per-call timeout, retrying retryable
// failures with exponential backoff.
func (g *Generator) complete(ctx context.Context, index int, prompt string) (string, error) {
	backoff := retry.NewExponential(g.opts.RetryBaseDelay)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(uint64(g.opts.MaxRetries), backoff)

	var text string
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		callCtx := ctx
		if g.opts.RequestTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.opts.RequestTimeout)
			defer cancel()
		}

		out, err := g.provider.Complete(callCtx, prompt)
		if err == nil {
			text = out
			return nil
		}

		var perr *llm.ProviderError
		if !errors.As(err, &perr) {
			err = &llm.ProviderError{Provider: g.provider.Name(), Kind: llm.KindNetwork, Err: err}
		}
		if ctx.Err() != nil || !llm.IsRetryable(err) {
			return err
		}
		g.logger.Debug("Attempt %d for highlight %d failed, retrying: %v", attempt, index+1, err)
		return retry.RetryableError(err)
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// NewFlashcard builds a card with a content hash and a stable ID derived from it.
func NewFlashcard(qa QA, source *models.Context) models.Flashcard {
	hash := utils.FlashcardHash(qa.Question, qa.Answer)
	hashBytes, err := hex.DecodeString(hash)
	if err != nil {
		hashBytes = []byte(hash)
	}
	return models.Flashcard{
		ID:            uuid.NewSHA1(cardNamespace, hashBytes).String(),
		Question:      qa.Question,
		Answer:        qa.Answer,
		Hash:          hash,
		SourceContext: source,
	}
}

func location(c *models.Context) string {
	if len(c.Highlight.Regions) == 0 {
		return fmt.Sprintf("on page %d", c.PageIndex+1)
	}
	r := c.Highlight.Regions[0]
	return fmt.Sprintf("on page %d at (%.0f, %.0f)", c.PageIndex+1, r.X0, r.Y1)
}
