package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/export"
	repo "github.com/joseph-ayodele/reports-catalog/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		format = flag.String("format", "md", "output format: md or xlsx")
		out    = flag.String("out", "", "output file (default README.md or reports-catalog.xlsx)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := repo.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("close store", "error", cerr)
		}
	}()

	svc := export.NewService(store, logger)
	var data []byte
	path := *out
	switch *format {
	case "md", "markdown":
		data, err = svc.ExportMarkdown(ctx)
		if path == "" {
			path = "README.md"
		}
	case "xlsx":
		data, err = svc.ExportXLSX(ctx)
		if path == "" {
			path = "reports-catalog.xlsx"
		}
	default:
		printError("Error: unknown format %q (want md or xlsx)\n", *format)
		os.Exit(2)
	}
	if err != nil {
		printError("Export failed: %v\n", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		printError("Error writing %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", path, len(data))
}
