package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/md-rashed-zaman/reserva/libs/grpcx"
	"github.com/md-rashed-zaman/reserva/libs/runtime"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const grpcServiceName = "reserva.booking.v1.Booking"

// startGRPC serves the standard health protocol. Status follows the
// required readiness checks.
func startGRPC(ctx context.Context, logger *slog.Logger, port string, checks []runtime.ReadyCheck) (func(), error) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, err
	}
	srv := grpcx.NewServer(logger)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	go watchHealth(ctx, hs, checks)
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	return func() {
		hs.Shutdown()
		srv.GracefulStop()
		logger.Info("grpc server stopped")
	}, nil
}

func watchHealth(ctx context.Context, hs *health.Server, checks []runtime.ReadyCheck) {
	set := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if !runtime.Healthy(ctx, checks...) {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(grpcServiceName, status)
	}
	set()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			set()
		}
	}
}
