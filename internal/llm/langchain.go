package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

// chatProvider serves every vendor that langchaingo speaks to over HTTP.
type chatProvider struct {
	name  string
	model llms.Model
	cfg   Config
}

func NewOpenAI(_ context.Context, cfg Config) (Provider, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(httpClient(cfg)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return &chatProvider{name: ProviderOpenAI, model: model, cfg: cfg}, nil
}

func NewAnthropic(_ context.Context, cfg Config) (Provider, error) {
	opts := []anthropic.Option{
		anthropic.WithToken(cfg.APIKey),
		anthropic.WithModel(cfg.Model),
		anthropic.WithHTTPClient(httpClient(cfg)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	model, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}
	return &chatProvider{name: ProviderAnthropic, model: model, cfg: cfg}, nil
}

func (p *chatProvider) Name() string {
	return p.name
}

func (p *chatProvider) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, info := withCallInfo(ctx)

	opts := []llms.CallOption{llms.WithTemperature(p.cfg.Temperature)}
	if p.cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(p.cfg.MaxTokens))
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, p.model, prompt, opts...)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return "", newProviderError(p.name, info.Status(), err, p.cfg.APIKey)
	}
	return text, nil
}
