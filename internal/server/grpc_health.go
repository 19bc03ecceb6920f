package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is reported by the gRPC health service.
const ServiceName = "reports.catalog.v1"

// HealthServer serves the standard gRPC health protocol and keeps its status
// in step with the store health check.
type HealthServer struct {
	srv    *grpc.Server
	hs     *health.Server
	check  func(ctx context.Context) error
	logger *slog.Logger
}

func NewHealthServer(check func(ctx context.Context) error, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return &HealthServer{srv: srv, hs: hs, check: check, logger: logger}
}

// Serve blocks until the listener fails or Stop is called. The status is
// refreshed every interval until ctx is done.
func (h *HealthServer) Serve(ctx context.Context, lis net.Listener, interval time.Duration) error {
	h.refresh(ctx)
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				h.refresh(ctx)
			}
		}
	}()
	h.logger.Info("grpc.health.listening", "addr", lis.Addr().String())
	return h.srv.Serve(lis)
}

func (h *HealthServer) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if h.check != nil {
		cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := h.check(cctx)
		cancel()
		if err != nil {
			h.logger.Warn("grpc.health.not_serving", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.hs.SetServingStatus("", status)
	h.hs.SetServingStatus(ServiceName, status)
}

func (h *HealthServer) Stop() {
	h.hs.Shutdown()
	h.srv.GracefulStop()
}
