package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kpauljoseph/highlightankify/internal/config"
	"github.com/kpauljoseph/highlightankify/internal/highlight"
	"github.com/kpauljoseph/highlightankify/internal/pipeline"
	"github.com/kpauljoseph/highlightankify/pkg/models"
)

func newHighlightsCmd(global *globalFlags) *cobra.Command {
	var (
		asJSON      bool
		windowChars int
	)

	cmd := &cobra.Command{
		Use:   "highlights <pdf>",
		Short: "List the highlights in a PDF and the context sent to the model",
		Long: `List every highlight found in a PDF together with the highlighted text and
the surrounding text that would be sent to the language model. No model is
called, so no API key is needed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd, global)

			cfg, err := config.Load(global.configPath)
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}
			if cmd.Flags().Changed("window") {
				cfg.Extraction.WindowChars = windowChars
			}

			p, err := pipeline.New(cfg, nil, log)
			if err != nil {
				return err
			}

			contexts, err := p.Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(contextsForJSON(contexts))
			}

			if len(contexts) == 0 {
				fmt.Fprintln(out, "No highlights found")
				return nil
			}
			for i, c := range contexts {
				fmt.Fprintf(out, "#%d page %d\n", i+1, c.PageIndex+1)
				switch {
				case c.Err != nil:
					fmt.Fprintf(out, "  error:   %v\n", c.Err)
				case c.HighlightedText == "":
					fmt.Fprintln(out, "  (no text under highlight)")
				default:
					fmt.Fprintf(out, "  text:    %s\n", c.HighlightedText)
					fmt.Fprintf(out, "  context: %s\n", highlight.Preview(c.SurroundingText, 400))
				}
				if c.Highlight.Note != "" {
					fmt.Fprintf(out, "  note:    %s\n", c.Highlight.Note)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print contexts as JSON")
	cmd.Flags().IntVar(&windowChars, "window", 0, "characters of context on each side (overrides config)")

	return cmd
}

type contextJSON struct {
	models.Context
	Error string `json:"error,omitempty"`
}

func contextsForJSON(contexts []models.Context) []contextJSON {
	out := make([]contextJSON, len(contexts))
	for i, c := range contexts {
		out[i] = contextJSON{Context: c}
		if c.Err != nil {
			out[i].Error = c.Err.Error()
		}
	}
	return out
}
