package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/kpauljoseph/highlightankify/internal/highlight"
	"github.com/kpauljoseph/highlightankify/internal/pdf"
	"github.com/kpauljoseph/highlightankify/pkg/logger"
)

func main() {
	pdfPath := flag.String("file", "", "Path to PDF file")
	pageNum := flag.Int("page", 0, "only inspect this page (1-based)")
	renderDir := flag.String("render", "", "write a PNG of each inspected page to this directory")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	flag.Parse()

	if *pdfPath == "" && flag.NArg() > 0 {
		*pdfPath = flag.Arg(0)
	}
	if *pdfPath == "" {
		fmt.Println("Usage: pdfinspect [-page N] [-render dir] file.pdf")
		os.Exit(1)
	}

	log := logger.New(logger.WithPrefix("[pdfinspect] "), logger.WithOutput(os.Stderr))
	log.SetVerbose(*verbose)

	fmt.Printf("Analyzing PDF: %s\n", *pdfPath)

	dims, err := api.PageDimsFile(*pdfPath)
	if err != nil {
		fmt.Printf("Error getting page dimensions: %v\n", err)
	}

	doc, err := fitz.New(*pdfPath)
	if err != nil {
		fmt.Printf("Error opening PDF: %v\n", err)
		os.Exit(1)
	}
	defer doc.Close()

	annotated, err := pdf.Open(*pdfPath, log, pdf.WithMarkup(true))
	if err != nil {
		fmt.Printf("Error reading annotations: %v\n", err)
		os.Exit(1)
	}
	defer annotated.Close()

	highlights, err := annotated.Highlights()
	if err != nil {
		fmt.Printf("Error listing highlights: %v\n", err)
	}
	perPage := make(map[int]int)
	for _, h := range highlights {
		perPage[h.PageIndex]++
	}

	if *renderDir != "" {
		if err := os.MkdirAll(*renderDir, 0755); err != nil {
			fmt.Printf("Error creating render directory: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Pages: %d, highlights: %d\n", doc.NumPage(), len(highlights))

	for i := 0; i < doc.NumPage(); i++ {
		if *pageNum > 0 && i != *pageNum-1 {
			continue
		}
		fmt.Printf("\nPage %d:\n", i+1)

		if i < len(dims) {
			fmt.Printf("Dimensions (pdfcpu): %.3f x %.3f points\n", dims[i].Width, dims[i].Height)
		}
		if bounds, err := doc.Bound(i); err == nil {
			fmt.Printf("Dimensions (fitz):   %d x %d\n", bounds.Dx(), bounds.Dy())
		}
		fmt.Printf("Highlights: %d\n", perPage[i])

		if text, err := doc.Text(i); err == nil {
			fmt.Printf("Text (fitz): %s\n", highlight.Preview(strings.TrimSpace(text), 200))
		}
		if glyphs, err := annotated.PageGlyphs(i); err != nil {
			fmt.Printf("Text layout error: %v\n", err)
		} else {
			page := pdf.BuildPageText(glyphs)
			fmt.Printf("Text (layout, %d glyphs): %s\n", len(glyphs), highlight.Preview(page.Text, 200))
		}

		if *renderDir != "" {
			if err := renderPage(doc, i, *renderDir); err != nil {
				fmt.Printf("Error rendering page: %v\n", err)
			}
		}
	}
}

func renderPage(doc *fitz.Document, pageIndex int, dir string) error {
	img, err := doc.Image(pageIndex)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, fmt.Sprintf("page-%03d.png", pageIndex+1))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return err
	}
	fmt.Printf("Rendered to %s\n", path)
	return f.Close()
}
