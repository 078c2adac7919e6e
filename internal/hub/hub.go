package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/telepanel/telepanel/internal/record"
	"github.com/telepanel/telepanel/pkg/id"
	logpkg "github.com/telepanel/telepanel/pkg/log"
)

// DefaultQueueSize bounds each connection's outbound queue.
const DefaultQueueSize = 256

// dropLogInterval throttles backpressure logging per registry.
const dropLogInterval = 5 * time.Second

// Registry tracks every live streaming connection. All methods are safe for
// arbitrary concurrent callers: multiple producers broadcasting while
// connections register and tear down from other goroutines.
type Registry struct {
	queueSize int
	logger    logpkg.Logger
	gen       *id.Generator

	mu    sync.RWMutex
	conns map[string]*Conn

	lastDropLog atomic.Int64 // unix nanos of the last backpressure log line
}

// NewRegistry returns a Registry whose connections queue up to queueSize
// frames. A non-positive size uses DefaultQueueSize.
func NewRegistry(queueSize int, logger logpkg.Logger) *Registry {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel))
	}
	return &Registry{
		queueSize: queueSize,
		logger:    logger.With(logpkg.Component("hub")),
		gen:       id.NewGenerator(),
		conns:     make(map[string]*Conn),
	}
}

// Register creates a connection with the given initial filter and adds it to
// the registry, returning it with its assigned id.
func (r *Registry) Register(spec record.FilterSpec, match Matcher) *Conn {
	c := &Conn{
		id:      r.gen.Next().String(),
		created: time.Now(),
		queue:   make(chan Frame, r.queueSize),
		done:    make(chan struct{}),
	}
	c.SetFilter(spec, match)

	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()
	return c
}

// Unregister removes and closes the connection. Idempotent, and safe to call
// from a different goroutine than the one that registered it: an abrupt
// disconnect racing a server-initiated teardown resolves to one close.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if ok {
		delete(r.conns, connID)
	}
	r.mu.Unlock()
	if ok {
		c.close()
	}
}

// Broadcast evaluates every connection's current filter against rec and
// enqueues a log frame on each match. The registry lock is held only for
// the snapshot; enqueues are per-connection and never block.
func (r *Registry) Broadcast(rec record.Record) {
	for _, c := range r.snapshot() {
		state := c.filter.Load()
		if !state.match(rec) {
			continue
		}
		before := c.Dropped()
		c.Enqueue(LogFrame(rec))
		if c.Dropped() > before {
			r.logDrop(c)
		}
	}
}

// BroadcastEvent delivers a dashboard event to every live connection.
// Filter predicates apply to log records only.
func (r *Registry) BroadcastEvent(ev record.Event) {
	for _, c := range r.snapshot() {
		before := c.Dropped()
		c.Enqueue(EventFrame(ev))
		if c.Dropped() > before {
			r.logDrop(c)
		}
	}
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Dropped sums backpressure drops across live connections.
func (r *Registry) Dropped() uint64 {
	var total uint64
	for _, c := range r.snapshot() {
		total += c.Dropped()
	}
	return total
}

func (r *Registry) snapshot() []*Conn {
	r.mu.RLock()
	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	r.mu.RUnlock()
	return out
}

// logDrop records backpressure at a throttled rate so a stalled viewer does
// not flood the server's own log.
func (r *Registry) logDrop(c *Conn) {
	now := time.Now().UnixNano()
	last := r.lastDropLog.Load()
	if now-last < int64(dropLogInterval) {
		return
	}
	if !r.lastDropLog.CompareAndSwap(last, now) {
		return
	}
	r.logger.Warn("viewer queue full, dropping oldest frames",
		logpkg.Str("conn", c.ID()),
		logpkg.Uint64("dropped", c.Dropped()),
	)
}
