package push

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/httpx"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
)

const (
	DefaultKeepalive    = 15 * time.Second
	DefaultRetry        = 3 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// Snapshotter lists the records sent in the init event.
type Snapshotter interface {
	List(ctx context.Context, status model.Status) ([]model.Appointment, error)
}

type StreamConfig struct {
	// Keepalive is the interval between comment frames on an idle channel.
	Keepalive time.Duration
	// Retry is the reconnect delay advertised to EventSource clients.
	Retry time.Duration
	// WriteTimeout bounds a single frame write to a slow peer.
	WriteTimeout time.Duration
}

// Stream serves GET /api/admin/updates.
//
// The connection is registered before the snapshot is read, so no delta can
// fall between the two; deltas queued meanwhile are written after init and
// may repeat what the snapshot already holds.
type Stream struct {
	registry *Registry
	store    Snapshotter
	logger   *slog.Logger
	cfg      StreamConfig
}

func NewStream(registry *Registry, store Snapshotter, logger *slog.Logger, cfg StreamConfig) *Stream {
	if cfg.Keepalive <= 0 {
		cfg.Keepalive = DefaultKeepalive
	}
	if cfg.Retry <= 0 {
		cfg.Retry = DefaultRetry
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return &Stream{registry: registry, store: store, logger: logger, cfg: cfg}
}

func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := s.writeRaw(w, rc, retryFrame(s.cfg.Retry)); err != nil {
		s.logger.Error("push channel handshake failed", "err", err)
		return
	}

	conn := s.registry.NewConn()
	if err := s.registry.Register(conn); err != nil {
		return
	}
	defer s.registry.Unregister(conn.ID())

	logger := s.logger.With("conn_id", conn.ID(), "request_id", httpx.RequestIDFromContext(ctx))
	logger.Info("push channel opened", "open_channels", s.registry.Len())
	defer logger.Info("push channel closed")

	appts, err := s.store.List(ctx, "")
	if err != nil {
		logger.Error("push snapshot failed", "err", err)
		return
	}
	initEvt, err := InitEvent(appts)
	if err != nil {
		logger.Error("push snapshot encode failed", "err", err)
		return
	}
	if err := s.writeEvent(w, rc, initEvt); err != nil {
		logger.Debug("push write failed", "err", err)
		return
	}

	ticker := time.NewTicker(s.cfg.Keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case evt := <-conn.Events():
			if err := s.writeEvent(w, rc, evt); err != nil {
				logger.Debug("push write failed", "err", err)
				return
			}
		case <-ticker.C:
			if err := s.writeRaw(w, rc, keepaliveFrame); err != nil {
				logger.Debug("push keepalive failed", "err", err)
				return
			}
		}
	}
}

func (s *Stream) writeEvent(w http.ResponseWriter, rc *http.ResponseController, evt Event) error {
	s.setDeadline(rc)
	if _, err := evt.WriteTo(w); err != nil {
		return err
	}
	return rc.Flush()
}

func (s *Stream) writeRaw(w http.ResponseWriter, rc *http.ResponseController, frame string) error {
	s.setDeadline(rc)
	if _, err := io.WriteString(w, frame); err != nil {
		return err
	}
	return rc.Flush()
}

// setDeadline makes a write to a peer that stopped reading fail instead of
// pinning the goroutine. Writers without deadline support are left as is.
func (s *Stream) setDeadline(rc *http.ResponseController) {
	if err := rc.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Debug("push write deadline not set", "err", err)
	}
}
