package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/push"
)

const (
	DefaultRetryDelay   = 3 * time.Second
	DefaultPollInterval = 15 * time.Second
	DefaultIdleTimeout  = 45 * time.Second

	updatesPath = "/api/admin/updates"
	listPath    = "/api/admin/appointments"
)

var errStreamEnded = errors.New("push channel ended")

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "disconnected"
	}
}

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
	// RetryDelay is the wait before reconnecting after the channel drops.
	RetryDelay time.Duration
	// PollInterval is the list refresh period while the channel is down.
	PollInterval time.Duration
	// IdleTimeout drops a channel that produced no bytes, keepalives
	// included, for this long.
	IdleTimeout time.Duration

	OnState func(State)
	OnEvent func(kind push.Kind, view *View)
}

// Client keeps a View in sync with the booking service: a push channel while
// it is open, periodic list polling while it is not.
type Client struct {
	cfg  Config
	view *View

	mu       sync.Mutex
	state    State
	stopPoll context.CancelFunc
}

func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Client{cfg: cfg, view: NewView()}
}

func (c *Client) View() *View { return c.view }

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run connects and reconnects until ctx is done. It always returns ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	defer func() {
		c.setState(ctx, StateDisconnected)
		c.mu.Lock()
		if c.stopPoll != nil {
			c.stopPoll()
			c.stopPoll = nil
		}
		c.mu.Unlock()
	}()

	for {
		c.setState(ctx, StateConnecting)
		err := c.stream(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.setState(ctx, StateDisconnected)
		c.cfg.Logger.Warn("push channel lost", "err", err, "retry_in", c.cfg.RetryDelay.String())

		t := time.NewTimer(c.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) stream(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+updatesPath, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push channel: unexpected status %d", resp.StatusCode)
	}
	c.setState(ctx, StateOpen)

	idle := time.AfterFunc(c.cfg.IdleTimeout, cancel)
	defer idle.Stop()

	dec := NewDecoder(resp.Body)
	for {
		f, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errStreamEnded
			}
			return err
		}
		idle.Reset(c.cfg.IdleTimeout)
		if f.Event == "" {
			continue
		}
		kind := push.Kind(f.Event)
		if err := c.view.Apply(kind, []byte(f.Data)); err != nil {
			c.cfg.Logger.Warn("push event ignored", "err", err, "kind", f.Event)
			continue
		}
		if c.cfg.OnEvent != nil {
			c.cfg.OnEvent(kind, c.view)
		}
	}
}

// setState records the transition and starts or stops fallback polling.
func (c *Client) setState(ctx context.Context, s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	switch {
	case s == StateOpen && c.stopPoll != nil:
		c.stopPoll()
		c.stopPoll = nil
	case s == StateDisconnected && c.stopPoll == nil && ctx.Err() == nil:
		pollCtx, stop := context.WithCancel(ctx)
		c.stopPoll = stop
		go c.poll(pollCtx)
	}
	c.mu.Unlock()

	if c.cfg.OnState != nil {
		c.cfg.OnState(s)
	}
}

func (c *Client) poll(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			appts, err := c.Fetch(ctx)
			if err != nil {
				if ctx.Err() == nil {
					c.cfg.Logger.Warn("appointment poll failed", "err", err)
				}
				continue
			}
			if !c.replaceIfDisconnected(ctx, appts) {
				return
			}
			if c.cfg.OnEvent != nil {
				c.cfg.OnEvent(push.KindInit, c.view)
			}
		}
	}
}

// replaceIfDisconnected applies a polled list unless the push channel has
// reopened meanwhile; its init and deltas are newer than the list.
func (c *Client) replaceIfDisconnected(ctx context.Context, appts []model.Appointment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil || c.state == StateOpen {
		return false
	}
	c.view.Replace(appts)
	return true
}

// Fetch reads the full appointment list over the request/response API.
func (c *Client) Fetch(ctx context.Context) ([]model.Appointment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+listPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list appointments: unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Appointments []model.Appointment `json:"appointments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode appointment list: %w", err)
	}
	return body.Appointments, nil
}
