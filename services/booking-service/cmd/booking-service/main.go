package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/config"
	"github.com/md-rashed-zaman/barberbook/libs/db"
	"github.com/md-rashed-zaman/barberbook/libs/httpx"
	"github.com/md-rashed-zaman/barberbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/barberbook/libs/otel"
	"github.com/md-rashed-zaman/barberbook/libs/runtime"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/push"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "2400")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	store, readyChecks, closeStore := openStore(ctx, logger)
	defer closeStore()

	limiter, limiterChecks, closeLimiter := newLimiter(logger, service)
	defer closeLimiter()
	readyChecks = append(readyChecks, limiterChecks...)

	registry := push.NewRegistry(logger, config.Int("PUSH_BUFFER_SIZE", 64))

	if config.Bool("GRPC_ENABLED", false) {
		grpcPort, err := config.Port("GRPC_PORT", "9083")
		if err != nil {
			panic(err)
		}
		lis, err := net.Listen("tcp", ":"+grpcPort)
		if err != nil {
			logger.Error("grpc listen failed", "err", err)
			panic(err)
		}
		serveGRPC(ctx, logger, lis, store, 10*time.Second)
	}

	handler := newHTTPHandler(httpDeps{
		logger:       logger,
		store:        store,
		registry:     registry,
		limiter:      limiter,
		rateFailOpen: config.Bool("RATE_LIMIT_FAIL_OPEN", true),
		cors: httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", config.String("FRONTEND_URL", "http://localhost:5173")),
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowedHeaders:   []string{"Content-Type", httpx.RequestIDHeader},
			ExposedHeaders:   []string{httpx.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		},
		readyChecks:    readyChecks,
		requestTimeout: config.Seconds("REQUEST_TIMEOUT_SECONDS", 15*time.Second),
		bodyLimit:      int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20)),
		stream: push.StreamConfig{
			Keepalive: config.Seconds("PUSH_KEEPALIVE_SECONDS", push.DefaultKeepalive),
		},
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	// Shutdown waits for handlers but never cancels them; open push
	// channels end when the registry closes.
	srv.RegisterOnShutdown(registry.Close)

	_ = runtime.ServeHTTP(ctx, srv, logger, 10*time.Second)
}

// openStore picks PostgreSQL when DATABASE_URL is set and the in-memory
// store otherwise. The outbox publisher only runs with PostgreSQL.
func openStore(ctx context.Context, logger *slog.Logger) (appointmentStore, []runtime.ReadyCheck, func()) {
	dbURL := config.String("DATABASE_URL", "")
	if dbURL == "" {
		logger.Warn("DATABASE_URL not set; appointments are kept in memory")
		mem := storage.NewMemoryStore()
		return mem, []runtime.ReadyCheck{{Name: "store", Check: mem.Ping}}, func() {}
	}

	pool, err := db.Open(ctx, dbURL, db.DefaultPoolConfig())
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	if err := storage.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		logger.Error("db schema setup failed", "err", err)
		panic(err)
	}

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewAppointmentRepository(pool, outboxRepo)
	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	if len(brokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	publisher := outbox.NewPublisher(outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Seconds("OUTBOX_POLL_SECONDS", 2*time.Second),
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	return repo, checks, pool.Close
}

// newLimiter shares the booking rate-limit window through Redis when
// REDIS_ADDR is set; otherwise each process counts on its own.
func newLimiter(logger *slog.Logger, service string) (httpx.Limiter, []runtime.ReadyCheck, func()) {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 30)

	addr := config.String("REDIS_ADDR", "")
	if addr == "" {
		return httpx.NewRateLimiter(limit, time.Minute), nil, func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       config.Int("REDIS_DB", 0),
	})
	logger.Info("booking rate limit backed by redis", "addr", addr, "limit_per_minute", limit)
	checks := []runtime.ReadyCheck{{Name: "redis", Check: httpx.RedisReadyCheck(rdb)}}
	return httpx.NewRedisRateLimiter(rdb, limit, time.Minute, service), checks, func() { _ = rdb.Close() }
}
