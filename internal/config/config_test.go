package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/highlightankify/internal/config"
)

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())

		for _, key := range []string{"LLM_PROVIDER", "API_KEY", "LLM_MODEL", "LLM_BASE_URL", "OPENAI_API_KEY", "GEMINI_API_KEY"} {
			GinkgoT().Setenv(key, "")
		}
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	writeConfig := func(body string) string {
		path := filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(path, []byte(body), 0644)).To(Succeed())
		return path
	}

	Context("Load", func() {
		It("should fill defaults when the file is missing", func() {
			cfg, err := config.Load(filepath.Join(tempDir, "absent.yaml"))
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.AnkiDeckName).To(Equal("HighlightAnkify"))
			Expect(cfg.OutputDir).To(Equal("flashcards"))
			Expect(cfg.Extraction.WindowChars).To(Equal(300))
			Expect(cfg.Extraction.OverlapThreshold).To(Equal(0.5))
			Expect(cfg.Generation.Workers).To(Equal(1))
			Expect(cfg.Generation.MaxRetries).To(Equal(3))
			Expect(cfg.Generation.RequestTimeout).To(Equal(90 * time.Second))
		})

		It("should read values from YAML", func() {
			path := writeConfig(`
anki_deck_name: Biology
llm:
  provider: anthropic
  api_key: from-file
  model: claude-test
  requests_per_minute: 30
extraction:
  window_chars: 120
generation:
  workers: 4
  request_timeout: 15s
`)
			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.AnkiDeckName).To(Equal("Biology"))
			Expect(cfg.LLM.Provider).To(Equal("anthropic"))
			Expect(cfg.LLM.Model).To(Equal("claude-test"))
			Expect(cfg.LLM.RequestsPerMinute).To(Equal(30))
			Expect(cfg.Extraction.WindowChars).To(Equal(120))
			Expect(cfg.Generation.Workers).To(Equal(4))
			Expect(cfg.Generation.RequestTimeout).To(Equal(15 * time.Second))
		})

		It("should keep zero values written in the file", func() {
			path := writeConfig(`
llm:
  provider: openai
  api_key: from-file
  temperature: 0
  max_retry_after: 0s
extraction:
  window_chars: 0
generation:
  max_retries: 0
`)
			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.LLM.Temperature).To(BeZero())
			Expect(cfg.LLM.MaxRetryAfter).To(BeZero())
			Expect(cfg.Extraction.WindowChars).To(BeZero())
			Expect(cfg.Generation.MaxRetries).To(BeZero())
			Expect(cfg.LLM.MaxTokens).To(Equal(1024))
			Expect(cfg.Generation.Workers).To(Equal(1))
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject malformed YAML", func() {
			path := writeConfig("llm: [unterminated")
			_, err := config.Load(path)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to parse config"))
		})
	})

	Context("ApplyEnv", func() {
		It("should let the environment override the file", func() {
			GinkgoT().Setenv("LLM_PROVIDER", " OpenAI ")
			GinkgoT().Setenv("API_KEY", "env-key")

			cfg := config.Default()
			cfg.LLM.Provider = "gemini"
			cfg.LLM.APIKey = "file-key"
			cfg.ApplyEnv()

			Expect(cfg.LLM.Provider).To(Equal("openai"))
			Expect(cfg.LLM.APIKey).To(Equal("env-key"))
		})

		It("should fall back to the vendor specific key variable", func() {
			GinkgoT().Setenv("GEMINI_API_KEY", "gem-key")

			cfg := config.Default()
			cfg.LLM.Provider = "gemini"
			cfg.ApplyEnv()

			Expect(cfg.LLM.APIKey).To(Equal("gem-key"))
		})
	})

	Context("Validate", func() {
		It("should accept a complete configuration", func() {
			cfg := config.Default()
			cfg.LLM.Provider = "openai"
			cfg.LLM.APIKey = "sk-test"
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject an unsupported provider before anything runs", func() {
			cfg := config.Default()
			cfg.LLM.Provider = "llama"
			cfg.LLM.APIKey = "key"

			err := cfg.Validate()
			Expect(err).To(MatchError(config.ErrInvalidConfig))
			Expect(err.Error()).To(ContainSubstring(`unsupported provider "llama"`))
		})

		It("should reject a missing API key", func() {
			cfg := config.Default()
			cfg.LLM.Provider = "anthropic"

			err := cfg.Validate()
			Expect(err).To(MatchError(config.ErrInvalidConfig))
			Expect(err.Error()).To(ContainSubstring("API_KEY"))
		})

		It("should reject an out of range overlap threshold", func() {
			cfg := config.Default()
			cfg.LLM.Provider = "openai"
			cfg.LLM.APIKey = "key"
			cfg.Extraction.OverlapThreshold = 1.5

			Expect(cfg.Validate()).To(MatchError(config.ErrInvalidConfig))
		})
	})
})
