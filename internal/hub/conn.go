package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/telepanel/telepanel/internal/record"
)

// Matcher is a compiled filter predicate over records. The logs service
// builds one from a FilterSpec (including its optional CEL expression) so
// the hub never evaluates expressions itself.
type Matcher func(record.Record) bool

// filterState pairs the spec with its compiled predicate so both swap in
// one atomic store.
type filterState struct {
	spec  record.FilterSpec
	match Matcher
}

// Conn is one live viewer connection. It never outlives its transport: the
// session handler unregisters it on every exit path, which closes Done and
// wakes the writer.
type Conn struct {
	id      string
	created time.Time

	filter atomic.Pointer[filterState]

	queueMu sync.Mutex
	queue   chan Frame
	dropped atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
}

// ID returns the connection's opaque identifier.
func (c *Conn) ID() string { return c.id }

// CreatedAt returns the registration time.
func (c *Conn) CreatedAt() time.Time { return c.created }

// Filter returns the current FilterSpec.
func (c *Conn) Filter() record.FilterSpec {
	return c.filter.Load().spec
}

// SetFilter atomically replaces the whole filter state. Only subsequent
// broadcasts observe the new predicate; queued frames are unaffected.
func (c *Conn) SetFilter(spec record.FilterSpec, match Matcher) {
	if match == nil {
		match = spec.Matches
	}
	c.filter.Store(&filterState{spec: spec, match: match})
}

// Outbound is the bounded delivery queue drained by the session writer.
func (c *Conn) Outbound() <-chan Frame { return c.queue }

// Done is closed when the connection is unregistered.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Dropped returns how many frames this connection shed under backpressure.
func (c *Conn) Dropped() uint64 { return c.dropped.Load() }

// Enqueue places a frame on the outbound queue. When the queue is full the
// oldest queued frame is dropped so the newest is never lost and the queue
// never exceeds its capacity. Never blocks.
func (c *Conn) Enqueue(f Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	for {
		select {
		case c.queue <- f:
			return true
		default:
			// Full: shed the oldest entry. The consumer may have raced us
			// and made room, in which case the drain select is a no-op.
			select {
			case <-c.queue:
				c.dropped.Add(1)
			default:
			}
		}
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
