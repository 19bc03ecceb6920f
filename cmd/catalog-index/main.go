package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/ingest"
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
		root     = flag.String("root", "", "reports root directory (default REPORTS_ROOT)")
		force    = flag.Bool("force", false, "rebuild documents even when the file hash is unchanged")
		dryRun   = flag.Bool("dry-run", false, "scan and report without writing")
		watch    = flag.Bool("watch", false, "keep running and re-index when PDFs change")
		debounce = flag.Duration("debounce", 2*time.Second, "quiet period before a watched change is indexed")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *root != "" {
		cfg.Store.ReportsRoot = *root
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	if st, err := os.Stat(cfg.Store.ReportsRoot); err != nil || !st.IsDir() {
		printError("Error: reports root %q is not a directory\n", cfg.Store.ReportsRoot)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	ix := ingest.NewIndexer(store, logger)
	if *watch {
		if *dryRun {
			printError("Error: --watch and --dry-run cannot be combined\n")
			os.Exit(2)
		}
		if err := ix.Watch(ctx, cfg.Store.ReportsRoot, *debounce); err != nil {
			printError("Watch failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	stats, err := ix.Index(ctx, cfg.Store.ReportsRoot, ingest.Options{Force: *force, DryRun: *dryRun})
	if err != nil {
		printError("Indexing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Indexing complete!\n")
	if *dryRun {
		fmt.Printf("- Dry run: nothing written\n")
	}
	fmt.Printf("- Total PDFs: %d\n", stats.Total)
	fmt.Printf("- New: %d\n", stats.New)
	fmt.Printf("- Updated: %d\n", stats.Updated)
	fmt.Printf("- Unchanged: %d\n", stats.Skipped)
	fmt.Printf("- Errors: %d\n", stats.Errors)
	if stats.Errors > 0 {
		os.Exit(1)
	}
}
