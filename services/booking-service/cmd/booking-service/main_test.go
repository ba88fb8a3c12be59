package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/grpcx"
	"github.com/md-rashed-zaman/barberbook/libs/httpx"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/push"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/watch"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type downStore struct{ *storage.MemoryStore }

func (downStore) Ping(context.Context) error { return errors.New("db down") }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	*httptest.Server
	registry *push.Registry
}

func newTestServer(t *testing.T, mutate func(*httpDeps)) *testServer {
	t.Helper()
	d := httpDeps{
		logger:         discardLogger(),
		store:          storage.NewMemoryStore(),
		registry:       push.NewRegistry(discardLogger(), 16),
		limiter:        httpx.NewRateLimiter(100, time.Minute),
		cors:           httpx.CORSPolicy{AllowedOrigins: []string{"http://localhost:5173"}, AllowCredentials: true},
		requestTimeout: 50 * time.Millisecond,
		bodyLimit:      1 << 16,
		stream:         push.StreamConfig{Keepalive: 20 * time.Millisecond},
	}
	if mutate != nil {
		mutate(&d)
	}
	srv := httptest.NewServer(newHTTPHandler(d))
	t.Cleanup(func() {
		d.registry.Close()
		srv.Close()
	})
	return &testServer{Server: srv, registry: d.registry}
}

func (s *testServer) call(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Ana books, the admin sees her appear, confirms her, then cancels.
func TestAdminSeesBookingLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	client := watch.New(watch.Config{BaseURL: srv.URL, RetryDelay: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = client.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()
	waitFor(t, "push channel open", func() bool {
		return client.State() == watch.StateOpen && srv.registry.Len() == 1
	})

	code, body := srv.call(t, http.MethodPost, "/api/appointments", `{"name":"Ana","phone":"555-0101","service":"Beard Trim"}`)
	if code != http.StatusCreated {
		t.Fatalf("create: %d %s", code, body)
	}
	var created struct {
		Appointment model.Appointment `json:"appointment"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	id := created.Appointment.ID

	waitFor(t, "new event", func() bool {
		a, ok := client.View().Get(id)
		return ok && a.Name == "Ana" && a.Status == model.StatusPending
	})

	if code, body := srv.call(t, http.MethodPatch, "/api/admin/appointments/"+id, `{"status":"Confirmed"}`); code != http.StatusOK {
		t.Fatalf("confirm: %d %s", code, body)
	}
	waitFor(t, "update event", func() bool {
		a, _ := client.View().Get(id)
		return a.Status == model.StatusConfirmed && a.IsConfirmed
	})

	if code, body := srv.call(t, http.MethodDelete, "/api/admin/appointments/"+id, ""); code != http.StatusOK {
		t.Fatalf("delete: %d %s", code, body)
	}
	waitFor(t, "delete event", func() bool {
		_, ok := client.View().Get(id)
		return !ok
	})

	code, body = srv.call(t, http.MethodGet, "/health", "")
	if code != http.StatusOK || !strings.Contains(string(body), `"connections":1`) {
		t.Fatalf("health: %d %s", code, body)
	}
}

func TestPushChannelBypassesRequestTimeout(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + updatesPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.Header.Get(httpx.RequestIDHeader) == "" {
		t.Fatal("expected request id on the push channel")
	}

	dec := watch.NewDecoder(resp.Body)
	var sawInit bool
	keepalives := 0
	deadline := time.Now().Add(2 * time.Second)
	// outlive the 50ms request timeout several times over
	for keepalives < 5 {
		if time.Now().After(deadline) {
			t.Fatal("push channel stalled")
		}
		f, err := dec.Next()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		switch {
		case f.Event == "init":
			sawInit = true
		case f.Event != "":
			t.Fatalf("unexpected event %s before any mutation", f.Event)
		case f.Comment == "keepalive":
			if !sawInit {
				t.Fatal("keepalive before init")
			}
			keepalives++
		}
	}
}

func TestBookingRateLimit(t *testing.T) {
	srv := newTestServer(t, func(d *httpDeps) {
		d.limiter = httpx.NewRateLimiter(2, time.Minute)
	})

	for i := 0; i < 2; i++ {
		if code, body := srv.call(t, http.MethodPost, "/api/appointments", `{"name":"Ana","phone":"1"}`); code != http.StatusCreated {
			t.Fatalf("booking %d: %d %s", i, code, body)
		}
	}
	if code, _ := srv.call(t, http.MethodPost, "/api/appointments", `{"name":"Ana","phone":"1"}`); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	// admin routes are not limited
	for i := 0; i < 5; i++ {
		if code, _ := srv.call(t, http.MethodGet, "/api/admin/appointments", ""); code != http.StatusOK {
			t.Fatalf("list: %d", code)
		}
	}
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t, func(d *httpDeps) {
		d.store = downStore{storage.NewMemoryStore()}
	})

	if code, body := srv.call(t, http.MethodGet, "/", ""); code != http.StatusOK || !strings.Contains(string(body), "Barber Shop API is running") {
		t.Fatalf("index: %d %s", code, body)
	}
	if code, _ := srv.call(t, http.MethodGet, "/healthz", ""); code != http.StatusOK {
		t.Fatalf("healthz: %d", code)
	}
	if code, body := srv.call(t, http.MethodGet, "/health", ""); code != http.StatusOK || !strings.Contains(string(body), `"DEGRADED"`) {
		t.Fatalf("health: %d %s", code, body)
	}
	if code, _ := srv.call(t, http.MethodGet, "/api/appointments", ""); code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET on booking route, got %d", code)
	}
	if code, _ := srv.call(t, http.MethodGet, "/nope", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestGRPCHealthFollowsStore(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveGRPC(ctx, discardLogger(), lis, downStore{storage.NewMemoryStore()}, time.Hour)

	conn, err := grpcx.Dial(lis.Addr().String(), grpcx.DialOptions{})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	client := healthpb.NewHealthClient(conn)
	waitFor(t, "NOT_SERVING", func() bool {
		callCtx, callCancel := context.WithTimeout(context.Background(), time.Second)
		defer callCancel()
		resp, err := client.Check(callCtx, &healthpb.HealthCheckRequest{Service: grpcHealthService})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_NOT_SERVING
	})
}
