package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/telepanel/telepanel/internal/record"
	pebblestore "github.com/telepanel/telepanel/internal/storage/pebble"
)

func newTestStore(t *testing.T, capacity int) *Store {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s, err := Open(db, Options{Capacity: capacity})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func rec(level record.Level, msg string) record.Record {
	return record.Record{
		Time:    time.Now(),
		Level:   level,
		Logger:  "bot.core",
		Message: msg,
	}
}

func TestFIFOEviction(t *testing.T) {
	s := newTestStore(t, 5)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		if _, err := s.Append(ctx, rec(record.LevelInfo, fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if got := s.Len(); got != 5 {
		t.Fatalf("len=%d want 5", got)
	}

	items, err := s.Fetch(5, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("fetched %d want 5", len(items))
	}
	// Exactly the last 5 appended, in original relative order.
	for i, it := range items {
		want := fmt.Sprintf("msg-%d", i+3)
		if it.Message != want {
			t.Fatalf("item %d: %q want %q", i, it.Message, want)
		}
	}
}

func TestFetchClampsOversizedMaxCount(t *testing.T) {
	s := newTestStore(t, 5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.Append(ctx, rec(record.LevelInfo, fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	// A request far beyond capacity must not size anything off the caller's
	// number; it returns the retained window and nothing more.
	items, err := s.Fetch(1<<30, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("fetched %d want 3", len(items))
	}
	if cap(items) > s.Capacity() {
		t.Fatalf("result capacity %d exceeds store capacity %d", cap(items), s.Capacity())
	}
}

func TestFetchRespectsMaxCount(t *testing.T) {
	s := newTestStore(t, 100)
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if _, err := s.Append(ctx, rec(record.LevelInfo, fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	items, err := s.Fetch(7, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 7 {
		t.Fatalf("fetched %d want 7", len(items))
	}
	if items[len(items)-1].Message != "m19" {
		t.Fatalf("most recent missing: %q", items[len(items)-1].Message)
	}
}

func TestFetchFilteredFillsFromFullWindow(t *testing.T) {
	s := newTestStore(t, 100)
	ctx := context.Background()

	// 3 ERROR records spread among 27 INFO records. A naive fetch of the
	// last N raw entries would miss the early errors; the over-fetch scan
	// must find all of them.
	for i := 0; i < 30; i++ {
		level := record.LevelInfo
		if i%10 == 0 {
			level = record.LevelError
		}
		if _, err := s.Append(ctx, rec(level, fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	f := record.FilterSpec{Level: record.LevelError}
	items, err := s.Fetch(5, f.Matches)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("fetched %d errors, want 3", len(items))
	}
	for _, it := range items {
		if it.Level != record.LevelError {
			t.Fatalf("non-matching record returned: %+v", it.Record)
		}
	}
}

func TestFetchStopsEarlyAtMatches(t *testing.T) {
	s := newTestStore(t, 100)
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		if _, err := s.Append(ctx, rec(record.LevelError, fmt.Sprintf("e%d", i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	f := record.FilterSpec{Level: record.LevelError}
	items, err := s.Fetch(4, f.Matches)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("fetched %d want 4", len(items))
	}
	// The 4 most recent matches.
	if items[3].Message != "e49" || items[0].Message != "e46" {
		t.Fatalf("wrong window: %q..%q", items[0].Message, items[3].Message)
	}
}

func TestCorruptEntriesSkipped(t *testing.T) {
	s := newTestStore(t, 10)
	ctx := context.Background()

	if _, err := s.Append(ctx, rec(record.LevelInfo, "good-1")); err != nil {
		t.Fatalf("append: %v", err)
	}
	seq, err := s.Append(ctx, rec(record.LevelInfo, "will-corrupt"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.Append(ctx, rec(record.LevelInfo, "good-2")); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Damage the middle entry on disk.
	if err := s.db.Set(keyEntry(seq), []byte("garbage")); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	items, err := s.Fetch(10, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("fetched %d want 2 (corrupt skipped)", len(items))
	}
	if items[0].Message != "good-1" || items[1].Message != "good-2" {
		t.Fatalf("unexpected survivors: %+v", items)
	}
}

func TestBoundRestoredAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	s, err := Open(db, Options{Capacity: 3})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := s.Append(ctx, rec(record.LevelInfo, fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("reopen pebble: %v", err)
	}
	t.Cleanup(func() { _ = db2.Close() })
	s2, err := Open(db2, Options{Capacity: 3})
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	if got := s2.Len(); got != 3 {
		t.Fatalf("len after reopen=%d want 3", got)
	}
	seq, err := s2.Append(ctx, rec(record.LevelInfo, "m5"))
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if seq != 6 {
		t.Fatalf("sequence not restored: got %d want 6", seq)
	}
}
