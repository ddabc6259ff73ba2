// Package llm hides language-model vendors behind a single completion call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ErrUnsupportedProvider is returned by New for names missing from Registry.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Provider turns a prompt into completion text. Complete blocks until the
// completion is known or the call fails with a *ProviderError.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

type Config struct {
	Name          string
	APIKey        string
	Model         string
	BaseURL       string
	Temperature   float64
	MaxTokens     int
	MaxRetryAfter time.Duration
	// HTTPClient overrides the client used by HTTP based vendors.
	HTTPClient *http.Client
}

// Factory builds a provider from validated configuration.
type Factory func(ctx context.Context, cfg Config) (Provider, error)

// Registry maps configuration names to provider constructors.
var Registry = map[string]Factory{
	ProviderOpenAI:    NewOpenAI,
	ProviderAnthropic: NewAnthropic,
	ProviderGemini:    NewGemini,
}

// DefaultModels is used when the configuration leaves the model empty.
var DefaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderGemini:    "gemini-1.5-flash",
}

func New(ctx context.Context, cfg Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	factory, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q, the options are: %s", ErrUnsupportedProvider, cfg.Name, strings.Join(Names(), ", "))
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing API key for provider %s", name)
	}
	cfg.Name = name
	if cfg.Model == "" {
		cfg.Model = DefaultModels[name]
	}
	return factory(ctx, cfg)
}

// Names lists the registered providers in a stable order.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func httpClient(cfg Config) *http.Client {
	base := http.DefaultTransport
	if cfg.HTTPClient != nil {
		if cfg.HTTPClient.Transport != nil {
			base = cfg.HTTPClient.Transport
		}
		c := *cfg.HTTPClient
		c.Transport = newStatusTransport(base, cfg.MaxRetryAfter)
		return &c
	}
	return &http.Client{Transport: newStatusTransport(base, cfg.MaxRetryAfter)}
}
