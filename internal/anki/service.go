package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/kpauljoseph/highlightankify/pkg/logger"
	"github.com/kpauljoseph/highlightankify/pkg/models"
)

const (
	DefaultAnkiConnectURL    = "http://localhost:8765"
	HighlightAnkifyModelName = "HighlightAnkify"
	MaxRetries               = 3
	RetryDelay               = 500 * time.Millisecond
)

type Service struct {
	ankiConnectURL string
	client         *http.Client
	retryDelay     time.Duration
	logger         *logger.Logger

	modelMu sync.Mutex
	modelOK bool
}

type ServiceOption func(*Service)

func WithURL(url string) ServiceOption {
	return func(s *Service) {
		if url != "" {
			s.ankiConnectURL = url
		}
	}
}

// WithRetryDelay sets the pause between attempts of a failed request.
func WithRetryDelay(delay time.Duration) ServiceOption {
	return func(s *Service) {
		if delay > 0 {
			s.retryDelay = delay
		}
	}
}

func WithHTTPClient(client *http.Client) ServiceOption {
	return func(s *Service) {
		s.client = client
	}
}

type AnkiConnectRequest struct {
	Action  string      `json:"action"`
	Version int         `json:"version"`
	Params  interface{} `json:"params"`
}

type Note struct {
	DeckName  string                 `json:"deckName"`
	ModelName string                 `json:"modelName"`
	Fields    map[string]string      `json:"fields"`
	Options   map[string]interface{} `json:"options"`
	Tags      []string               `json:"tags"`
}

func NewService(logger *logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		ankiConnectURL: DefaultAnkiConnectURL,
		client:         &http.Client{Timeout: 30 * time.Second},
		retryDelay:     RetryDelay,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ensureModelExists(ctx context.Context) error {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	if s.modelOK {
		return nil
	}

	result, err := s.sendRequest(ctx, AnkiConnectRequest{
		Action:  "modelNames",
		Version: ANKI_CONNECT_VERSION,
		Params:  map[string]interface{}{},
	})
	if err != nil {
		return fmt.Errorf("failed to get models: %w", err)
	}

	var modelNames []string
	if err := json.Unmarshal(result, &modelNames); err != nil {
		return fmt.Errorf("failed to parse model names: %w", err)
	}

	for _, name := range modelNames {
		if name == HighlightAnkifyModelName {
			s.logger.Debug("HighlightAnkify model already exists")
			s.modelOK = true
			return nil
		}
	}

	createRequest := AnkiConnectRequest{
		Action:  "createModel",
		Version: ANKI_CONNECT_VERSION,
		Params: map[string]interface{}{
			"modelName": HighlightAnkifyModelName,
			"inOrderFields": []string{
				"Front",
				"Back",
				"Context",
				"Hash",
			},
			"css": `.card {
                font-family: arial;
                font-size: 20px;
                text-align: center;
                color: black;
                background-color: white;
            }
            .context { font-size: 14px; color: #555; text-align: left; }
            .hash { display: none; }`,
			"cardTemplates": []map[string]interface{}{
				{
					"Name": "Card 1",
					"Front": `{{Front}}
                        <div class="hash">{{Hash}}</div>`,
					"Back": `{{FrontSide}}
                        <hr id="answer">
                        {{Back}}
                        {{#Context}}<div class="context">{{Context}}</div>{{/Context}}`,
				},
			},
		},
	}

	if _, err := s.sendRequest(ctx, createRequest); err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}

	s.logger.Info("Created HighlightAnkify model")
	s.modelOK = true
	return nil
}

func (s *Service) CheckConnection(ctx context.Context) error {
	_, err := s.sendRequest(ctx, AnkiConnectRequest{
		Action:  "version",
		Version: ANKI_CONNECT_VERSION,
		Params:  map[string]interface{}{},
	})
	if err != nil {
		s.logger.Info("Error sending request to Anki: %v", err)
		return fmt.Errorf("could not connect to Anki. Please ensure:\n" +
			"1. Anki is running https://apps.ankiweb.net/#download\n" +
			"2. AnkiConnect add-on is installed (code: 2055492159) https://ankiweb.net/shared/info/2055492159\n" +
			"3. Anki has been restarted after installing AnkiConnect")
	}
	return nil
}

func (s *Service) CreateDeck(ctx context.Context, deckName string) error {
	s.logger.Info("Creating deck: %s", deckName)
	_, err := s.sendRequest(ctx, AnkiConnectRequest{
		Action:  "createDeck",
		Version: ANKI_CONNECT_VERSION,
		Params: map[string]string{
			"deck": deckName,
		},
	})
	return err
}

func (s *Service) findExistingNoteByHash(ctx context.Context, hash string) (int64, error) {
	result, err := s.sendRequest(ctx, AnkiConnectRequest{
		Action:  "findNotes",
		Version: ANKI_CONNECT_VERSION,
		Params: map[string]interface{}{
			"query": fmt.Sprintf("Hash:%s", hash),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to search notes: %w", err)
	}

	var noteIds []int64
	if err := json.Unmarshal(result, &noteIds); err != nil {
		return 0, fmt.Errorf("failed to parse note IDs: %w", err)
	}

	if len(noteIds) > 0 {
		return noteIds[0], nil
	}
	return 0, nil
}

// AddFlashcard adds card to deckName unless a note with the same hash exists.
// It reports whether a note was added.
func (s *Service) AddFlashcard(ctx context.Context, deckName string, card models.Flashcard) (bool, error) {
	if err := s.ensureModelExists(ctx); err != nil {
		return false, fmt.Errorf("failed to ensure model exists: %w", err)
	}

	s.logger.Debug("Processing new flashcard for deck: %s", deckName)
	s.logger.Trace("Question: %s", card.Question)

	existingNoteId, err := s.findExistingNoteByHash(ctx, card.Hash)
	if err != nil {
		s.logger.Debug("Warning: failed to check for existing note: %v", err)
	} else if existingNoteId != 0 {
		s.logger.Info("Skipping duplicate flashcard with hash: %s", card.Hash)
		return false, nil
	}

	tags := []string{"highlightankify", tagFromDeckName(deckName)}
	surrounding := ""
	if card.SourceContext != nil {
		tags = append(tags, fmt.Sprintf("page_%d", card.SourceContext.PageIndex+1))
		surrounding = card.SourceContext.SurroundingText
	}

	note := Note{
		DeckName:  deckName,
		ModelName: HighlightAnkifyModelName,
		Fields: map[string]string{
			"Front":   toHTML(card.Question),
			"Back":    toHTML(card.Answer),
			"Context": toHTML(surrounding),
			"Hash":    card.Hash,
		},
		Options: map[string]interface{}{
			"allowDuplicate": false,
		},
		Tags: tags,
	}

	_, err = s.sendRequest(ctx, AnkiConnectRequest{
		Action:  "addNote",
		Version: ANKI_CONNECT_VERSION,
		Params: map[string]interface{}{
			"note": note,
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to add note: %w", err)
	}

	s.logger.Debug("Successfully added new flashcard with hash: %s", card.Hash)
	return true, nil
}

func (s *Service) AddAllFlashcards(ctx context.Context, deckName string, cards []models.Flashcard, report *ProcessingReport) error {
	if report == nil {
		report = &ProcessingReport{}
	}
	var failCount int

	for _, card := range cards {
		if err := ctx.Err(); err != nil {
			return err
		}

		added, err := s.AddFlashcard(ctx, deckName, card)
		switch {
		case err != nil:
			s.logger.Debug("Error adding flashcard: %v", err)
			failCount++
			report.FailedCount++
		case added:
			report.AddedCount++
		default:
			report.SkippedCount++
			page := 0
			if card.SourceContext != nil {
				page = card.SourceContext.PageIndex + 1
			}
			report.SkippedCards = append(report.SkippedCards, SkippedCard{
				DeckName:   deckName,
				PageNumber: page,
				Hash:       card.Hash,
				Question:   card.Question,
			})
		}
	}

	if failCount > 0 {
		return fmt.Errorf("failed to add %d out of %d flashcards", failCount, len(cards))
	}

	s.logger.Debug("Successfully processed %d flashcards", len(cards))
	return nil
}

func (s *Service) sendRequest(ctx context.Context, req AnkiConnectRequest) (json.RawMessage, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	backoff := retry.WithMaxRetries(MaxRetries-1, retry.NewConstant(s.retryDelay))

	var result json.RawMessage
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			s.logger.Info("Retrying request (attempt %d/%d)...", attempt, MaxRetries)
		}
		out, err := s.post(ctx, reqBody)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.RetryableError(err)
		}
		result = out
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("after %d attempts: %w", attempt, err)
	}
	return result, nil
}

func (s *Service) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.ankiConnectURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result struct {
		Error  *string         `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("anki error: %s", *result.Error)
	}
	return result.Result, nil
}

func toHTML(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}
