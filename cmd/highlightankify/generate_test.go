package main

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/kpauljoseph/highlightankify/internal/config"
)

var _ = Describe("generate configuration", func() {
	var (
		tempDir    string
		configPath string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "cli-test-*")
		Expect(err).NotTo(HaveOccurred())

		for _, key := range []string{"LLM_PROVIDER", "API_KEY", "LLM_MODEL", "LLM_BASE_URL", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"} {
			GinkgoT().Setenv(key, "")
		}

		configPath = filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(configPath, []byte(`
anki_deck_name: Biology
output_dir: from-file
llm:
  provider: openai
  api_key: file-key
  model: file-model
`), 0644)).To(Succeed())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	parse := func(args ...string) (*config.Config, error) {
		cmd := &cobra.Command{Use: "generate"}
		flags := &generateFlags{}
		bindGenerateFlags(cmd, flags)
		Expect(cmd.ParseFlags(args)).To(Succeed())
		return loadConfig(cmd, configPath, flags)
	}

	It("should use the file when nothing overrides it", func() {
		cfg, err := parse()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.OutputDir).To(Equal("from-file"))
		Expect(cfg.LLM.Model).To(Equal("file-model"))
		Expect(cfg.Generation.Workers).To(Equal(1))
	})

	It("should let the environment override the file and flags override both", func() {
		GinkgoT().Setenv("LLM_MODEL", "env-model")
		GinkgoT().Setenv("API_KEY", "env-key")

		cfg, err := parse("--model", "flag-model", "--workers", "4", "--output", "out")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LLM.Model).To(Equal("flag-model"))
		Expect(cfg.LLM.APIKey).To(Equal("env-key"))
		Expect(cfg.Generation.Workers).To(Equal(4))
		Expect(cfg.OutputDir).To(Equal("out"))
	})

	It("should pick up the vendor key when the provider flag changes", func() {
		GinkgoT().Setenv("GEMINI_API_KEY", "gemini-key")

		cfg, err := parse("--provider", "Gemini")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LLM.Provider).To(Equal("gemini"))
		Expect(cfg.LLM.APIKey).To(Equal("gemini-key"))
	})

	It("should turn on cache refresh from the command line", func() {
		cfg, err := parse()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LLM.CacheRefresh).To(BeFalse())

		cfg, err = parse("--refresh-cache")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LLM.CacheRefresh).To(BeTrue())
	})

	It("should reject an unsupported provider before any work starts", func() {
		_, err := parse("--provider", "mistral")
		Expect(errors.Is(err, config.ErrInvalidConfig)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring(`unsupported provider "mistral"`))
	})
})
