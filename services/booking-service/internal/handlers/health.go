package handlers

import (
	"context"
	"net/http"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnCounter reports how many push channels are open.
type ConnCounter interface {
	Len() int
}

type HealthHandler struct {
	store   Pinger
	conns   ConnCounter
	timeout time.Duration
	now     func() time.Time
}

func NewHealthHandler(store Pinger, conns ConnCounter) *HealthHandler {
	return &HealthHandler{store: store, conns: conns, timeout: 2 * time.Second, now: time.Now}
}

type healthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	DBStatus    string    `json:"db_status"`
	Connections int       `json:"connections"`
}

// ServeHTTP answers 200 even when the store is down; the body says so.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := healthResponse{
		Status:      "OK",
		Timestamp:   h.now().UTC(),
		DBStatus:    "Connected",
		Connections: h.conns.Len(),
	}
	if err := h.store.Ping(ctx); err != nil {
		resp.Status = "DEGRADED"
		resp.DBStatus = "Disconnected"
	}
	writeJSON(w, http.StatusOK, resp)
}
