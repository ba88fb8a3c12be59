package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/barberbook/libs/config"
	"github.com/md-rashed-zaman/barberbook/libs/grpcx"
	"github.com/md-rashed-zaman/barberbook/libs/runtime"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/push"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/watch"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// bookingHealthService is the grpc.health.v1 entry the booking service sets.
const bookingHealthService = "barberbook.booking.v1.Booking"

func main() {
	var (
		baseURL  = flag.String("base-url", config.String("BASE_URL", "http://localhost:2400"), "booking service base url")
		retry    = flag.Duration("retry", watch.DefaultRetryDelay, "reconnect delay after the push channel drops")
		poll     = flag.Duration("poll", watch.DefaultPollInterval, "list refresh interval while disconnected")
		idle     = flag.Duration("idle", watch.DefaultIdleTimeout, "drop a silent push channel after this long")
		grpcAddr = flag.String("grpc-addr", config.String("GRPC_ADDR", ""), "booking service grpc address for a startup health check (empty skips it)")
	)
	flag.Parse()

	logger := runtime.NewLogger("admin-watch")
	ctx, stop := runtime.SignalContext()
	defer stop()

	if *grpcAddr != "" {
		status, err := backendStatus(ctx, *grpcAddr)
		if err != nil {
			logger.Warn("booking service health check failed", "addr", *grpcAddr, "err", err)
		} else {
			logger.Info("booking service health", "addr", *grpcAddr, "status", status.String())
		}
	}

	client := watch.New(watch.Config{
		BaseURL:      *baseURL,
		Logger:       logger,
		RetryDelay:   *retry,
		PollInterval: *poll,
		IdleTimeout:  *idle,
		OnState: func(s watch.State) {
			logger.Info("push channel state", "state", s.String())
		},
		OnEvent: func(kind push.Kind, view *watch.View) {
			render(kind, view)
		},
	})

	_ = client.Run(ctx)
}

// backendStatus asks the booking service's grpc.health.v1 endpoint whether
// its store is reachable.
func backendStatus(ctx context.Context, addr string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpcx.Dial(addr, grpcx.DialOptions{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(grpcx.WithRequestID(ctx, uuid.NewString()), 3*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: bookingHealthService})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

func render(kind push.Kind, view *watch.View) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] %s: %d appointments\n", time.Now().Format(time.TimeOnly), kind, view.Len())
	for _, a := range view.Snapshot() {
		fmt.Fprintf(&b, "  %-36s  %-9s  %-20s  %-14s  %s\n",
			a.ID, a.Status, a.Name, a.Phone, a.Service)
	}
	_, _ = os.Stdout.WriteString(b.String())
}
