package bus

import (
	"sync"
	"sync/atomic"

	"github.com/telepanel/telepanel/internal/record"
)

// DefaultBuffer is the per-subscriber channel capacity when none is given.
const DefaultBuffer = 64

// Token identifies a subscription for Unsubscribe.
type Token uint64

// Bus fans events out to every current subscriber.
type Bus struct {
	buffer int

	mu      sync.Mutex
	nextTok Token
	subs    map[Token]chan record.Event
	dropped atomic.Uint64
}

// New returns a Bus whose subscribers buffer up to buffer events each.
// A non-positive buffer uses DefaultBuffer.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{buffer: buffer, subs: make(map[Token]chan record.Event)}
}

// Subscribe registers a subscriber and returns its token plus the receive
// channel. The channel is closed by Unsubscribe.
func (b *Bus) Subscribe() (Token, <-chan record.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextTok++
	tok := b.nextTok
	ch := make(chan record.Event, b.buffer)
	b.subs[tok] = ch
	return tok, ch
}

// Unsubscribe removes a subscriber and closes its channel. Idempotent; safe
// to call from a path other than the one that subscribed.
func (b *Bus) Unsubscribe(tok Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[tok]; ok {
		delete(b.subs, tok)
		close(ch)
	}
}

// Publish delivers ev to every current subscriber without blocking. A full
// subscriber buffer drops the event for that subscriber only.
func (b *Bus) Publish(ev record.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns the total number of per-subscriber drops since start.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }
