package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	cfg    Config
}

func NewGemini(ctx context.Context, cfg Config) (Provider, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(float32(cfg.Temperature))
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}

	return &Gemini{client: client, model: model, cfg: cfg}, nil
}

func (g *Gemini) Name() string {
	return ProviderGemini
}

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", &ProviderError{Provider: ProviderGemini, Kind: KindBadRequest, Err: err, secret: g.cfg.APIKey}
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return "", newProviderError(ProviderGemini, geminiStatus(err), err, g.cfg.APIKey)
	}

	if len(resp.Candidates) == 0 {
		return "", malformed(ProviderGemini, "no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", malformed(ProviderGemini, "empty content returned from Gemini (finish reason %s)", candidate.FinishReason)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// geminiStatus maps an API error onto the HTTP status it stands for.
func geminiStatus(err error) int {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		return 0
	}
	if code := apiErr.HTTPCode(); code > 0 {
		return code
	}
	if st := apiErr.GRPCStatus(); st != nil {
		switch st.Code() {
		case codes.Unauthenticated:
			return http.StatusUnauthorized
		case codes.PermissionDenied:
			return http.StatusForbidden
		case codes.ResourceExhausted:
			return http.StatusTooManyRequests
		case codes.InvalidArgument, codes.FailedPrecondition, codes.NotFound:
			return http.StatusBadRequest
		case codes.DeadlineExceeded:
			return http.StatusRequestTimeout
		case codes.Unavailable, codes.Internal, codes.Unknown:
			return http.StatusServiceUnavailable
		}
	}
	return 0
}
