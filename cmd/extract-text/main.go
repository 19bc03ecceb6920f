package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/core/assess"
	"github.com/joseph-ayodele/reports-catalog/internal/core/chunk"
	"github.com/joseph-ayodele/reports-catalog/internal/core/pdftext"
	"github.com/joseph-ayodele/reports-catalog/internal/core/pipeline"
	"github.com/joseph-ayodele/reports-catalog/internal/utils"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		file    = flag.String("file", "", "PDF to extract")
		preview = flag.Int("preview", 500, "characters of text to print (0 = none)")
	)
	flag.Parse()

	if *file == "" {
		printError("usage: extract-text -file report.pdf [-preview N]\n")
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	tuning, err := pipeline.LoadTuning(cfg.Pipeline.TuningFile)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ex := pdftext.NewExtractor(pdftext.Config{
		Pdftotext:      cfg.PDF.Pdftotext,
		EnableFallback: cfg.PDF.EnableFallback,
		ValidatePDF:    cfg.PDF.ValidatePDF,
		MaxPages:       cfg.PDF.MaxPages,
		CommandTimeout: cfg.PDF.CommandTimeout,
	}, logger)

	res, err := ex.Extract(ctx, *file)
	if err != nil {
		printError("Extraction failed: %v\n", err)
		os.Exit(1)
	}

	c := assess.NewAssessor(tuning.Assess).Assess(res.Text, res.Pages)
	chunks := chunk.Split(res.Text, cfg.Pipeline.ChunkSize)

	fmt.Printf("File: %s\n", *file)
	fmt.Printf("- Method: %s\n", res.Method)
	fmt.Printf("- Pages: %d\n", res.Pages)
	fmt.Printf("- Characters: %d\n", len([]rune(res.Text)))
	fmt.Printf("- Chunks: %d (max %d chars)\n", len(chunks), cfg.Pipeline.ChunkSize)
	fmt.Printf("- Text quality: %s (%d chars/page)\n", c.TextQuality, c.CharsPerPage)
	fmt.Printf("- Data intensity: %s (%d metrics)\n", c.DataIntensity, c.MetricMatches)
	fmt.Printf("- Approach: %s\n", c.Approach)
	fmt.Printf("- Duration: %s\n", res.Duration)
	for _, w := range res.Warnings {
		fmt.Printf("  ! %s\n", w)
	}
	if *preview > 0 {
		fmt.Printf("\n%s\n", utils.Truncate(res.Text, *preview))
	}
}
