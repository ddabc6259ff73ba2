package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kpauljoseph/highlightankify/internal/anki"
	"github.com/kpauljoseph/highlightankify/internal/config"
	"github.com/kpauljoseph/highlightankify/internal/flashcard"
	"github.com/kpauljoseph/highlightankify/internal/llm"
	"github.com/kpauljoseph/highlightankify/internal/pipeline"
	"github.com/kpauljoseph/highlightankify/internal/scanner"
	"github.com/kpauljoseph/highlightankify/pkg/logger"
)

type generateFlags struct {
	pdfDir      string
	outputDir   string
	deckName    string
	ankiConnect bool
	provider    string
	model       string
	workers     int
	refresh     bool
}

type pdfJob struct {
	path     string
	deckName string
}

func newGenerateCmd(global *globalFlags) *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate [pdf...]",
		Short: "Generate flashcards from the highlights in PDF files",
		Long: `Generate flashcards from the highlights in the given PDF files, or in every PDF
below --pdf-dir (or pdf_source_dir from the config file).

For each PDF a <name>_flashcards.txt and a <name>_anki.txt file are written to
the output directory. With --anki-connect the cards are also added to Anki.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := newLogger(cmd, global)

			cfg, err := loadConfig(cmd, global.configPath, flags)
			if err != nil {
				return err
			}

			provider, err := llm.FromConfig(ctx, cfg.LLM, llm.WithCacheFilter(flashcard.HasCards))
			if err != nil {
				return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
			}
			defer llm.Close(provider)
			log.Debug("Using %s provider", provider.Name())

			jobs, err := collectJobs(cmd, cfg, args, log)
			if err != nil {
				return err
			}

			var opts []pipeline.Option
			if cfg.AnkiConnect.Enabled {
				service := anki.NewService(log, anki.WithURL(cfg.AnkiConnect.URL))
				log.Debug("Checking Anki connection...")
				if err := service.CheckConnection(ctx); err != nil {
					return err
				}
				log.Info("Successfully connected to Anki")
				opts = append(opts, pipeline.WithAnki(service))
			}

			p, err := pipeline.New(cfg, provider, log, opts...)
			if err != nil {
				return err
			}

			report := &anki.ProcessingReport{StartTime: time.Now()}
			for _, job := range jobs {
				if ctx.Err() != nil {
					break
				}
				log.Info("Processing %s", job.path)
				if _, err := p.Process(ctx, job.path, job.deckName, report); err != nil {
					if ctx.Err() != nil {
						break
					}
					log.Info("Error processing %s: %v", job.path, err)
				}
			}

			report.EndTime = time.Now()
			report.Print(log)
			log.Info("- Flashcards saved to: %s", cfg.OutputDir)

			if err := ctx.Err(); err != nil {
				log.Info("Interrupted, partial results were kept")
				return err
			}
			return nil
		},
	}

	bindGenerateFlags(cmd, flags)
	return cmd
}

func bindGenerateFlags(cmd *cobra.Command, flags *generateFlags) {
	cmd.Flags().StringVar(&flags.pdfDir, "pdf-dir", "", "directory containing PDF files (overrides config)")
	cmd.Flags().StringVar(&flags.outputDir, "output", "", "directory to save generated flashcards (overrides config)")
	cmd.Flags().StringVar(&flags.deckName, "deck", "", "Anki deck name, used as the root deck for --pdf-dir")
	cmd.Flags().BoolVar(&flags.ankiConnect, "anki-connect", false, "also add the cards to a running Anki via AnkiConnect")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "language model provider: openai, anthropic or gemini")
	cmd.Flags().StringVar(&flags.model, "model", "", "model name (defaults per provider)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "number of concurrent model calls")
	cmd.Flags().BoolVar(&flags.refresh, "refresh-cache", false, "ask the model again instead of reusing cached completions")
}

// loadConfig layers the config file, the environment and command line flags,
// in that order, and validates the result.
func loadConfig(cmd *cobra.Command, path string, flags *generateFlags) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	cfg.ApplyEnv()

	changed := cmd.Flags().Changed
	if changed("pdf-dir") {
		cfg.PDFSourceDir = flags.pdfDir
	}
	if changed("output") {
		cfg.OutputDir = flags.outputDir
	}
	if changed("deck") {
		cfg.AnkiDeckName = flags.deckName
	}
	if changed("anki-connect") {
		cfg.AnkiConnect.Enabled = flags.ankiConnect
	}
	if changed("provider") {
		cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(flags.provider))
		if key := os.Getenv(strings.ToUpper(cfg.LLM.Provider) + "_API_KEY"); key != "" && os.Getenv("API_KEY") == "" {
			cfg.LLM.APIKey = key
		}
	}
	if changed("model") {
		cfg.LLM.Model = flags.model
	}
	if changed("workers") {
		cfg.Generation.Workers = flags.workers
	}
	if changed("refresh-cache") {
		cfg.LLM.CacheRefresh = flags.refresh
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func collectJobs(cmd *cobra.Command, cfg *config.Config, args []string, log *logger.Logger) ([]pdfJob, error) {
	var jobs []pdfJob
	for _, arg := range args {
		jobs = append(jobs, pdfJob{path: arg, deckName: cfg.AnkiDeckName})
	}
	if len(args) > 0 && !cmd.Flags().Changed("pdf-dir") {
		return jobs, nil
	}

	if cfg.PDFSourceDir == "" {
		return nil, fmt.Errorf("no PDF files given: pass file names or --pdf-dir")
	}

	log.Info("Scanning directory: %s", cfg.PDFSourceDir)
	pdfs, err := scanner.New(log).FindPDFs(cmd.Context(), cfg.PDFSourceDir)
	if err != nil {
		return nil, fmt.Errorf("error finding PDFs: %w", err)
	}
	log.Info("Found %d PDFs to process", len(pdfs))

	for _, f := range pdfs {
		jobs = append(jobs, pdfJob{
			path:     f.AbsolutePath,
			deckName: anki.GetDeckNameFromPath(cfg.AnkiDeckName, f.RelativePath),
		})
	}
	return jobs, nil
}
