package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/repository"
)

// ConnectStore opens the configured document store.
func ConnectStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.Store, error) {
	logger.Info("store.connect", "backend", cfg.Store.Backend)
	store, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("store.connect.failed", "backend", cfg.Store.Backend, "error", err)
		return nil, err
	}
	logger.Info("store.connected", "backend", cfg.Store.Backend)
	return store, nil
}

// PingStore runs the store health check with a timeout.
func PingStore(ctx context.Context, store repository.Store, logger *slog.Logger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := store.HealthCheck(ctx); err != nil {
		logger.Error("store.ping.failed", "error", err)
		return err
	}
	logger.Debug("store.ping.ok")
	return nil
}

// CloseStore closes the store, logging any error.
func CloseStore(store repository.Store, logger *slog.Logger) {
	if store == nil {
		return
	}
	logger.Info("store.close")
	if err := store.Close(); err != nil {
		logger.Error("store.close.failed", "error", err)
	}
}
