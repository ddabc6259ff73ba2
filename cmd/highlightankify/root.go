package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kpauljoseph/highlightankify/internal/config"
	"github.com/kpauljoseph/highlightankify/pkg/logger"
)

type globalFlags struct {
	configPath string
	verbose    bool
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "highlightankify",
		Short: "Turn PDF highlights into Anki flashcards",
		Long: `HighlightAnkify reads the highlights in your PDFs, recovers the text around
each one and asks a language model (OpenAI, Anthropic or Gemini) to write
question and answer flashcards from them.

Cards are written as a plain-text file and an Anki import file, and can be
pushed straight into a running Anki through AnkiConnect.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", config.DefaultPath, "path to config file")
	cmd.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "enable verbose logging")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug mode with trace logging")

	cmd.AddCommand(newGenerateCmd(flags))
	cmd.AddCommand(newHighlightsCmd(flags))

	return cmd
}

func newLogger(cmd *cobra.Command, flags *globalFlags) *logger.Logger {
	log := logger.New(
		logger.WithOutput(cmd.ErrOrStderr()),
		logger.WithPrefix("[highlightankify] "),
	)
	log.SetVerbose(flags.verbose || flags.debug)
	if flags.debug {
		log.SetLevel(logger.LevelTrace)
	}
	if flags.verbose {
		log.Debug("Verbose logging enabled")
	}
	return log
}
