package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/reports-catalog/internal/async"
	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/core/pipeline"
	"github.com/joseph-ayodele/reports-catalog/internal/export"
	"github.com/joseph-ayodele/reports-catalog/internal/server"
	"github.com/joseph-ayodele/reports-catalog/internal/services/catalog"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := server.ConnectStore(ctx, cfg, logger)
	if err != nil {
		os.Exit(1)
	}
	defer server.CloseStore(store, logger)

	if err := server.PingStore(ctx, store, logger, 3*time.Second); err != nil {
		os.Exit(1)
	}

	deps := server.Deps{
		Catalog:        catalog.NewService(store, logger),
		Export:         export.NewService(store, logger),
		Health:         store.HealthCheck,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	// Analysis is optional: without LLM settings the catalog still serves
	// reads and edits, and the process route answers 503.
	var queue *async.ProcessorQueue
	orch, err := pipeline.NewFromConfig(cfg, store, logger)
	if err != nil {
		logger.Warn("analysis disabled", "error", err)
	} else {
		queue = async.NewProcessorQueue(orch, logger, async.WithWorkers(cfg.Server.QueueWorkers))
		deps.Claimer = orch
		deps.Queue = queue
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewRouter(deps, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 2)
	go func() {
		logger.Info("http.listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var hs *server.HealthServer
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("grpc listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		hs = server.NewHealthServer(store.HealthCheck, logger)
		go func() {
			if err := hs.Serve(ctx, lis, 15*time.Second); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if hs != nil {
		hs.Stop()
	}
	if queue != nil {
		queue.Shutdown(shutdownCtx)
	}
	logger.Info("stopped")
}
