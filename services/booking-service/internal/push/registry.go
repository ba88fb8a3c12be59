package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

var ErrRegistryClosed = errors.New("push registry closed")

// Conn is one open push channel. Events are queued on a bounded buffer and
// written by the goroutine serving the channel.
type Conn struct {
	id        uint64
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func (c *Conn) ID() uint64 { return c.id }

// Events yields queued events in broadcast order.
func (c *Conn) Events() <-chan Event { return c.events }

// Done is closed once the registry has dropped the connection.
func (c *Conn) Done() <-chan struct{} { return c.done }

// offer enqueues without blocking; false means the peer cannot keep up or is gone.
func (c *Conn) offer(evt Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- evt:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Registry tracks the open push channels of this process.
type Registry struct {
	logger     *slog.Logger
	bufferSize int
	nextID     atomic.Uint64

	mu     sync.Mutex
	conns  map[uint64]*Conn
	closed bool
}

func NewRegistry(logger *slog.Logger, bufferSize int) *Registry {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Registry{
		logger:     logger,
		bufferSize: bufferSize,
		conns:      map[uint64]*Conn{},
	}
}

// NewConn allocates a connection with a process-unique id. It is not
// registered yet.
func (r *Registry) NewConn() *Conn {
	return &Conn{
		id:     r.nextID.Add(1),
		events: make(chan Event, r.bufferSize),
		done:   make(chan struct{}),
	}
}

func (r *Registry) Register(c *Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		c.close()
		return ErrRegistryClosed
	}
	r.conns[c.id] = c
	return nil
}

// Unregister removes the connection if present. Safe to call repeatedly.
func (r *Registry) Unregister(id uint64) {
	r.mu.Lock()
	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()
	if ok {
		c.close()
	}
}

// Broadcast queues evt on every registered connection and returns how many
// accepted it. A connection whose buffer is full or that is already closing
// is removed; its stream goroutine sees Done and ends the response.
// Broadcasts are serialized so all connections observe the same order.
func (r *Registry) Broadcast(_ context.Context, evt Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for id, c := range r.conns {
		if c.offer(evt) {
			delivered++
			continue
		}
		delete(r.conns, id)
		c.close()
		r.logger.Warn("push connection dropped", "conn_id", id, "kind", string(evt.Kind))
	}
	return delivered
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Close drops every connection and refuses new ones. Used at shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := r.conns
	r.conns = map[uint64]*Conn{}
	r.closed = true
	r.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}
