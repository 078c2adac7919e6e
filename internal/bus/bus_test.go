package bus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/telepanel/telepanel/internal/record"
)

func TestFanOutReachesAllSubscribers(t *testing.T) {
	b := New(8)
	_, ch1 := b.Subscribe()
	_, ch2 := b.Subscribe()

	b.Publish(record.Event{Kind: record.EventVerification})

	for i, ch := range []<-chan record.Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Kind != record.EventVerification {
				t.Fatalf("subscriber %d got kind %q", i, ev.Kind)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received", i)
		}
	}
}

func TestPublishOrderPerSubscriber(t *testing.T) {
	b := New(16)
	_, ch := b.Subscribe()
	for i := 0; i < 10; i++ {
		b.Publish(record.Event{Kind: record.EventSystem, Data: map[string]interface{}{"i": i}})
	}
	for i := 0; i < 10; i++ {
		ev := <-ch
		if ev.Data["i"] != i {
			t.Fatalf("out of order: got %v want %d", ev.Data["i"], i)
		}
	}
}

func TestSlowSubscriberNeverBlocksPublisher(t *testing.T) {
	b := New(2)
	_, slow := b.Subscribe()
	_, fast := b.Subscribe()

	done := make(chan struct{})
	go func() {
		// Far more events than the slow subscriber's buffer.
		for i := 0; i < 100; i++ {
			b.Publish(record.Event{Kind: record.EventSystem})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publisher blocked on a stalled subscriber")
	}

	if b.Dropped() == 0 {
		t.Fatalf("expected drops for the stalled subscriber")
	}
	// The fast subscriber still drains what fits its buffer.
	if len(fast) == 0 {
		t.Fatalf("fast subscriber starved")
	}
	_ = slow
}

func TestUnsubscribeIdempotent(t *testing.T) {
	b := New(4)
	tok, ch := b.Subscribe()
	b.Unsubscribe(tok)
	b.Unsubscribe(tok) // second call is a no-op

	if _, open := <-ch; open {
		t.Fatalf("channel should be closed after unsubscribe")
	}
	if b.Subscribers() != 0 {
		t.Fatalf("subscriber count: %d", b.Subscribers())
	}
	// Publishing after unsubscribe must not panic.
	b.Publish(record.Event{Kind: record.EventProtection})
}

func TestConcurrentSubscribeUnsubscribePublish(t *testing.T) {
	b := New(4)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				tok, ch := b.Subscribe()
				b.Publish(record.Event{Kind: fmt.Sprintf("k%d", g)})
				b.Unsubscribe(tok)
				// Drain whatever arrived before the close.
				for range ch {
				}
			}
		}(g)
	}
	wg.Wait()
	if b.Subscribers() != 0 {
		t.Fatalf("leaked subscribers: %d", b.Subscribers())
	}
}
