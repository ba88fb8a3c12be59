package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/grpcx"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/handlers"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const grpcHealthService = "barberbook.booking.v1.Booking"

// serveGRPC exposes grpc.health.v1 on lis. Both the overall status and the
// booking service entry follow the store's Ping.
func serveGRPC(ctx context.Context, logger *slog.Logger, lis net.Listener, store handlers.Pinger, every time.Duration) {
	srv := grpcx.NewServer(logger)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	go watchStoreHealth(ctx, logger, hs, store, every)
	grpcx.Serve(ctx, srv, lis, logger)
}

func watchStoreHealth(ctx context.Context, logger *slog.Logger, hs *health.Server, store handlers.Pinger, every time.Duration) {
	if every <= 0 {
		every = 10 * time.Second
	}
	last := healthpb.HealthCheckResponse_UNKNOWN
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err := store.Ping(pingCtx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		if status != last {
			logger.Info("grpc health status changed", "status", status.String())
			last = status
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(grpcHealthService, status)
	}

	check()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			check()
		}
	}
}
