package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/httpx"
	"github.com/md-rashed-zaman/barberbook/libs/runtime"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/push"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	bookingPath = "/api/appointments"
	updatesPath = "/api/admin/updates"
)

// appointmentStore is satisfied by both the PostgreSQL repository and the
// in-memory store.
type appointmentStore interface {
	handlers.Store
	handlers.Pinger
}

type httpDeps struct {
	logger         *slog.Logger
	store          appointmentStore
	registry       *push.Registry
	limiter        httpx.Limiter
	rateFailOpen   bool
	cors           httpx.CORSPolicy
	readyChecks    []runtime.ReadyCheck
	requestTimeout time.Duration
	bodyLimit      int64
	stream         push.StreamConfig
}

func newHTTPHandler(d httpDeps) http.Handler {
	notifier := push.NewNotifier(d.registry, d.logger)
	appointments := handlers.NewAppointmentHandler(d.store, notifier, d.logger)

	mux := runtime.NewBaseMuxWithReady(d.readyChecks...)
	mux.HandleFunc("GET /{$}", handlers.Index)
	mux.Handle("GET /health", handlers.NewHealthHandler(d.store, d.registry))
	mux.Handle("GET "+updatesPath, push.NewStream(d.registry, d.store, d.logger, d.stream))
	appointments.Register(mux)

	var bodyLimit, timeout, rateLimit httpx.Middleware
	if d.bodyLimit > 0 {
		bodyLimit = httpx.WithBodyLimit(d.bodyLimit)
	}
	if d.requestTimeout > 0 {
		// TimeoutHandler buffers the response, so the push channel bypasses it.
		timeout = httpx.When(httpx.NotStreaming(updatesPath), httpx.WithTimeout(d.requestTimeout))
	}
	if d.limiter != nil {
		rateLimit = httpx.When(httpx.MethodPath(http.MethodPost, bookingPath), httpx.RateLimit(d.limiter, d.logger, d.rateFailOpen))
	}

	h := httpx.Chain(mux,
		httpx.WithCORS(d.cors),
		httpx.WithRequestID,
		httpx.WithAccessLog(d.logger),
		bodyLimit,
		timeout,
		rateLimit,
	)
	return otelhttp.NewHandler(h, "booking")
}
