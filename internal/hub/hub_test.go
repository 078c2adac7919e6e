package hub

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/telepanel/telepanel/internal/record"
)

func rec(level record.Level, logger, msg string) record.Record {
	return record.Record{Time: time.Now(), Level: level, Logger: logger, Message: msg}
}

func drain(c *Conn) []Frame {
	var out []Frame
	for {
		select {
		case f := <-c.Outbound():
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestBroadcastRespectsFilters(t *testing.T) {
	r := NewRegistry(16, nil)
	all := r.Register(record.FilterSpec{}, nil)
	errsOnly := r.Register(record.FilterSpec{Level: record.LevelError}, nil)
	verif := r.Register(record.FilterSpec{Search: "verification"}, nil)

	r.Broadcast(rec(record.LevelInfo, "bot.core", "starting up"))
	r.Broadcast(rec(record.LevelError, "bot.db", "db timeout"))
	r.Broadcast(rec(record.LevelInfo, "bot.verify", "verification ok for user 42"))

	if got := len(drain(all)); got != 3 {
		t.Fatalf("unfiltered conn got %d frames, want 3", got)
	}
	errFrames := drain(errsOnly)
	if len(errFrames) != 1 || errFrames[0].Record.Message != "db timeout" {
		t.Fatalf("level-filtered conn got %+v", errFrames)
	}
	vFrames := drain(verif)
	if len(vFrames) != 1 || vFrames[0].Record.Message != "verification ok for user 42" {
		t.Fatalf("search-filtered conn got %+v", vFrames)
	}
}

func TestFilterChangeAffectsOnlySubsequentBroadcasts(t *testing.T) {
	r := NewRegistry(16, nil)
	c := r.Register(record.FilterSpec{}, nil)

	r.Broadcast(rec(record.LevelInfo, "bot", "before"))
	c.SetFilter(record.FilterSpec{Level: record.LevelError}, nil)
	r.Broadcast(rec(record.LevelInfo, "bot", "after"))

	frames := drain(c)
	if len(frames) != 1 || frames[0].Record.Message != "before" {
		t.Fatalf("retroactive filtering observed: %+v", frames)
	}
}

func TestQueueDropsOldestAndStaysBounded(t *testing.T) {
	r := NewRegistry(4, nil)
	c := r.Register(record.FilterSpec{}, nil)

	for i := 0; i < 10; i++ {
		r.Broadcast(rec(record.LevelInfo, "bot", fmt.Sprintf("m%d", i)))
	}

	frames := drain(c)
	if len(frames) != 4 {
		t.Fatalf("queue length %d exceeds capacity 4", len(frames))
	}
	// The newest frames survive; the oldest were shed.
	for i, f := range frames {
		want := fmt.Sprintf("m%d", i+6)
		if f.Record.Message != want {
			t.Fatalf("frame %d: %q want %q", i, f.Record.Message, want)
		}
	}
	if c.Dropped() != 6 {
		t.Fatalf("dropped=%d want 6", c.Dropped())
	}
}

func TestUnregisterIdempotentUnderConcurrentBroadcast(t *testing.T) {
	r := NewRegistry(8, nil)
	victim := r.Register(record.FilterSpec{}, nil)
	survivor := r.Register(record.FilterSpec{}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			r.Broadcast(rec(record.LevelInfo, "bot", fmt.Sprintf("m%d", i)))
		}
	}()

	// Two teardown paths race, as when an abrupt disconnect races the
	// server-initiated close.
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			r.Unregister(victim.ID())
		}()
	}
	wg.Wait()

	if r.Count() != 1 {
		t.Fatalf("count=%d want 1", r.Count())
	}
	select {
	case <-victim.Done():
	default:
		t.Fatalf("victim not closed")
	}

	// The surviving connection still receives broadcasts.
	r.Broadcast(rec(record.LevelInfo, "bot", "continuity"))
	frames := drain(survivor)
	if len(frames) == 0 || frames[len(frames)-1].Record.Message != "continuity" {
		t.Fatalf("survivor delivery interrupted")
	}
}

func TestBroadcastEventBypassesFilters(t *testing.T) {
	r := NewRegistry(8, nil)
	c := r.Register(record.FilterSpec{Level: record.LevelError}, nil)

	r.BroadcastEvent(record.Event{Kind: record.EventVerification, Data: map[string]interface{}{"user": 42}})

	frames := drain(c)
	if len(frames) != 1 || frames[0].Type != FrameEvent {
		t.Fatalf("event not delivered through filtered conn: %+v", frames)
	}
	if frames[0].Event.Kind != record.EventVerification {
		t.Fatalf("kind: %q", frames[0].Event.Kind)
	}
}

func TestEnqueueAfterCloseIsNoop(t *testing.T) {
	r := NewRegistry(4, nil)
	c := r.Register(record.FilterSpec{}, nil)
	r.Unregister(c.ID())
	if c.Enqueue(HeartbeatFrame(time.Now())) {
		t.Fatalf("enqueue succeeded on closed connection")
	}
}
