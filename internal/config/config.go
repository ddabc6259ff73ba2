// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

// ErrInvalidConfig marks configuration problems that must stop the run before
// any document is processed.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	PDFSourceDir string `yaml:"pdf_source_dir"`
	OutputDir    string `yaml:"output_dir"`
	AnkiDeckName string `yaml:"anki_deck_name" validate:"required"`
	AnkiConnect  struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url" validate:"omitempty,url"`
	} `yaml:"anki_connect"`
	LLM        LLMConfig        `yaml:"llm"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Generation GenerationConfig `yaml:"generation"`
}

type LLMConfig struct {
	Provider          string        `yaml:"provider" validate:"required,oneof=openai anthropic gemini"`
	APIKey            string        `yaml:"api_key" validate:"required"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url" validate:"omitempty,url"`
	Temperature       float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens         int           `yaml:"max_tokens" validate:"gte=0"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"gte=0"`
	MaxRetryAfter     time.Duration `yaml:"max_retry_after" validate:"gte=0"`
	CachePath         string        `yaml:"cache_path"`
	CacheRefresh      bool          `yaml:"cache_refresh"`
}

type ExtractionConfig struct {
	WindowChars         int     `yaml:"window_chars" validate:"gte=0"`
	OverlapThreshold    float64 `yaml:"overlap_threshold" validate:"gt=0,lt=1"`
	DisableSentenceSnap bool    `yaml:"disable_sentence_snap"`
	IncludeMarkup       bool    `yaml:"include_markup"`
}

type GenerationConfig struct {
	Workers            int           `yaml:"workers" validate:"gte=1,lte=64"`
	MaxRetries         int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	RetryBaseDelay     time.Duration `yaml:"retry_base_delay" validate:"gt=0"`
	RequestTimeout     time.Duration `yaml:"request_timeout" validate:"gt=0"`
	PromptTemplatePath string        `yaml:"prompt_template_path"`
}

// Default returns a configuration with every optional value filled in.
func Default() *Config {
	cfg := &Config{
		AnkiDeckName: "HighlightAnkify",
		OutputDir:    "flashcards",
		LLM: LLMConfig{
			Temperature:   0.2,
			MaxTokens:     1024,
			MaxRetryAfter: 30 * time.Second,
		},
		Extraction: ExtractionConfig{
			WindowChars:      300,
			OverlapThreshold: 0.5,
		},
		Generation: GenerationConfig{
			Workers:        1,
			MaxRetries:     3,
			RetryBaseDelay: time.Second,
			RequestTimeout: 90 * time.Second,
		},
	}
	cfg.AnkiConnect.URL = "http://localhost:8765"
	return cfg
}

// Load reads a YAML config file over the defaults, so a value written in the
// file, zero included, wins. A missing file is not an error: the defaults
// plus environment are enough to run.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overlays process environment on top of the file values. The
// vendor-specific key variable is consulted when API_KEY is unset.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))

	if v := os.Getenv("API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if c.LLM.APIKey == "" && c.LLM.Provider != "" {
		c.LLM.APIKey = os.Getenv(strings.ToUpper(c.LLM.Provider) + "_API_KEY")
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
}

// Validate checks the whole configuration. All violations are reported in one
// error wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		if field == "LLM.APIKey" {
			return "LLM.APIKey is required (set API_KEY or llm.api_key)"
		}
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("unsupported provider %q, the options are: %s", fe.Value(), fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}
