package llm

import (
	"context"

	"github.com/kpauljoseph/highlightankify/internal/config"
)

// FromConfig builds the configured provider with rate limiting and, when a
// cache path is set, an on-disk completion cache in front of it.
func FromConfig(ctx context.Context, cfg config.LLMConfig, cacheOpts ...CacheOption) (Provider, error) {
	provider, err := New(ctx, Config{
		Name:          cfg.Provider,
		APIKey:        cfg.APIKey,
		Model:         cfg.Model,
		BaseURL:       cfg.BaseURL,
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
		MaxRetryAfter: cfg.MaxRetryAfter,
	})
	if err != nil {
		return nil, err
	}

	provider = NewRateLimited(provider, cfg.RequestsPerMinute)

	if cfg.CachePath == "" {
		return provider, nil
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModels[provider.Name()]
	}
	cacheOpts = append([]CacheOption{WithCacheRefresh(cfg.CacheRefresh)}, cacheOpts...)
	cached, err := NewCachedProvider(provider, model, cfg.CachePath, cacheOpts...)
	if err != nil {
		Close(provider)
		return nil, err
	}
	return cached, nil
}

// Close releases resources held by p, if any.
func Close(p Provider) error {
	if closer, ok := p.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
