package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joseph-ayodele/reports-catalog/constants"
	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/core/pipeline"
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
		from     = flag.Int("from", 0, "first collection index to consider (0-based, inclusive)")
		to       = flag.Int("to", 0, "collection index to stop at (exclusive); 0 = end")
		statuses = flag.String("status", "", "comma-separated statuses to select (default pending,failed,completed; unchanged completed documents are skipped)")
		all      = flag.Bool("all", false, "select documents regardless of status")
		files    = flag.String("files", "", "comma-separated file paths or names to select")
		sample   = flag.Int("sample", 0, "process a random sample of N selected documents")
		seed     = flag.Int64("seed", 1, "random seed for --sample")
		force    = flag.Bool("force", false, "reprocess even when the file and version are unchanged")
		dryRun   = flag.Bool("dry-run", false, "list the selection without analyzing or writing")
		workers  = flag.Int("workers", 0, "documents analyzed concurrently per batch (overrides WORKERS)")
		batch    = flag.Int("batch", 0, "documents per checkpoint (overrides BATCH_SIZE)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *workers > 0 {
		cfg.Pipeline.Workers = *workers
	}
	if *batch > 0 {
		cfg.Pipeline.BatchSize = *batch
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	sel := pipeline.Selection{
		From:   *from,
		To:     *to,
		All:    *all,
		Files:  splitList(*files),
		Sample: *sample,
		Seed:   *seed,
		Force:  *force,
	}
	for _, s := range splitList(*statuses) {
		st := constants.ProcessingStatus(s)
		if !st.Valid() {
			printError("Error: unknown status %q\n", s)
			os.Exit(2)
		}
		sel.Statuses = append(sel.Statuses, st)
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

	var orch *pipeline.Orchestrator
	if *dryRun {
		orch = pipeline.NewOrchestrator(store, nil, pipeline.Config{ReportsRoot: cfg.Store.ReportsRoot}, logger)
	} else {
		orch, err = pipeline.NewFromConfig(cfg, store, logger)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(2)
		}
	}

	sum, err := orch.Run(ctx, sel, pipeline.RunOptions{DryRun: *dryRun})
	printSummary(sum)
	if err != nil {
		var pe *common.PersistenceError
		if errors.As(err, &pe) {
			printError("Run aborted, state could not be saved: %v\n", err)
		} else {
			printError("Run stopped: %v\n", err)
		}
		os.Exit(1)
	}
	if sum.Failed > 0 {
		os.Exit(1)
	}
}

func printSummary(sum pipeline.Summary) {
	if sum.DryRun {
		fmt.Printf("Dry run: %d document(s) selected, %d unchanged\n", sum.Selected, sum.Skipped)
		for i, p := range sum.Planned {
			fmt.Printf("%4d. %s (%s)\n", i+1, p.Title, p.FilePath)
		}
		return
	}
	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Run: %s\n", sum.RunID)
	fmt.Printf("- Selected: %d\n", sum.Selected)
	fmt.Printf("- Succeeded: %d\n", sum.Succeeded)
	fmt.Printf("- Failed: %d\n", sum.Failed)
	fmt.Printf("- Skipped: %d\n", sum.Skipped)
	fmt.Printf("- Duration: %s\n", sum.Duration.Round(1e6))
	for _, f := range sum.Failures {
		fmt.Printf("  ! %s (%s): %s\n", f.Title, f.ID, f.Error)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
