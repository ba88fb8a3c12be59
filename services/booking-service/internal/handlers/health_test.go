package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/storage"
)

type fixedCount int

func (c fixedCount) Len() int { return int(c) }

func TestHealthReportsStoreAndConnections(t *testing.T) {
	rw := httptest.NewRecorder()
	NewHealthHandler(storage.NewMemoryStore(), fixedCount(3)).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := decode[healthResponse](t, rw)
	if rw.Code != http.StatusOK || resp.Status != "OK" || resp.DBStatus != "Connected" || resp.Connections != 3 {
		t.Fatalf("unexpected health %d %+v", rw.Code, resp)
	}
	if resp.Timestamp.IsZero() {
		t.Fatal("expected timestamp")
	}
}

func TestHealthDegradedWhenStoreDown(t *testing.T) {
	rw := httptest.NewRecorder()
	NewHealthHandler(brokenStore{}, fixedCount(0)).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := decode[healthResponse](t, rw)
	if rw.Code != http.StatusOK || resp.Status != "DEGRADED" || resp.DBStatus != "Disconnected" {
		t.Fatalf("unexpected health %d %+v", rw.Code, resp)
	}
}

func TestIndexListsEndpoints(t *testing.T) {
	rw := httptest.NewRecorder()
	Index(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	resp := decode[indexResponse](t, rw)
	if resp.Message == "" || resp.AvailableEndpoints["realtime_updates"] != "GET /api/admin/updates" {
		t.Fatalf("unexpected index %+v", resp)
	}
}
