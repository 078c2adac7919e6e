package history

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/telepanel/telepanel/internal/record"
	pebblestore "github.com/telepanel/telepanel/internal/storage/pebble"
)

// DefaultFetchMultiple is the raw over-fetch factor applied before filtering.
const DefaultFetchMultiple = 5

// Stored is a record together with its assigned sequence number.
type Stored struct {
	Seq uint64
	record.Record
}

// Store is the capacity-bounded history of recent log records. Append is
// O(1) amortized; eviction of the oldest records happens in the same batch
// as the append so the bound is never exceeded, even across restarts.
type Store struct {
	db       *pebblestore.DB
	capacity int
	multiple int

	mu       sync.Mutex
	firstSeq uint64 // oldest retained seq, 0 when empty
	lastSeq  uint64 // newest assigned seq, 0 when empty
}

// Options configures a Store.
type Options struct {
	// Capacity bounds the retained record count. Must be positive.
	Capacity int
	// FetchMultiple overrides the raw over-fetch factor (default 5).
	FetchMultiple int
}

// Open initializes a Store, restoring the retained window bounds from store
// metadata when present.
func Open(db *pebblestore.DB, opts Options) (*Store, error) {
	if opts.Capacity <= 0 {
		return nil, errors.New("history: Options.Capacity must be positive")
	}
	multiple := opts.FetchMultiple
	if multiple <= 0 {
		multiple = DefaultFetchMultiple
	}
	s := &Store{db: db, capacity: opts.Capacity, multiple: multiple}
	meta, err := db.Get(keyMeta)
	if err == nil && len(meta) >= 16 {
		s.firstSeq = binary.BigEndian.Uint64(meta[:8])
		s.lastSeq = binary.BigEndian.Uint64(meta[8:16])
	}
	return s, nil
}

// Append adds one record, evicting the oldest when the store is at capacity.
// Returns the assigned sequence number.
func (s *Store) Append(ctx context.Context, r record.Record) (uint64, error) {
	val, err := record.Encode(r)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	seq := s.lastSeq + 1
	if err := b.Set(keyEntry(seq), val, nil); err != nil {
		return 0, err
	}

	first := s.firstSeq
	if first == 0 {
		first = seq
	}
	// Evict from the front until the window fits the capacity. Normally a
	// single delete per append once the store is full.
	for seq-first+1 > uint64(s.capacity) {
		if err := b.Delete(keyEntry(first), nil); err != nil {
			return 0, err
		}
		first++
	}

	var meta [16]byte
	binary.BigEndian.PutUint64(meta[:8], first)
	binary.BigEndian.PutUint64(meta[8:16], seq)
	if err := b.Set(keyMeta, meta[:], nil); err != nil {
		return 0, err
	}

	if err := s.db.CommitBatch(ctx, b); err != nil {
		return 0, err
	}
	s.firstSeq = first
	s.lastSeq = seq
	return seq, nil
}

// Len returns the number of retained records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSeq == 0 || s.firstSeq == 0 {
		return 0
	}
	return int(s.lastSeq - s.firstSeq + 1)
}

// Capacity returns the configured bound.
func (s *Store) Capacity() int { return s.capacity }

// Fetch returns up to maxCount of the most recent records matching the
// predicate, oldest-first among the returned set. A nil match accepts every
// record. The scan walks newest-first over a consistent iterator view and
// stops once maxCount records match, the over-fetch budget
// (maxCount * multiple raw entries) is spent, or the window is exhausted.
// Entries the codec rejects are skipped, never surfaced.
func (s *Store) Fetch(maxCount int, match func(record.Record) bool) ([]Stored, error) {
	if maxCount <= 0 {
		return nil, nil
	}
	// The window never holds more than capacity records, so larger requests
	// are clamped. This also keeps the allocation below and the over-fetch
	// budget bounded by configuration, not by the caller.
	if maxCount > s.capacity {
		maxCount = s.capacity
	}
	lo, hi := entryBounds()
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	budget := maxCount * s.multiple
	out := make([]Stored, 0, maxCount)
	scanned := 0
	for ok := iter.Last(); ok && len(out) < maxCount && scanned < budget; ok = iter.Prev() {
		scanned++
		rec, valid := record.Decode(iter.Value())
		if !valid {
			continue
		}
		if match != nil && !match(rec) {
			continue
		}
		out = append(out, Stored{Seq: seqFromKey(iter.Key()), Record: rec})
	}

	// Collected newest-first; return in original append order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// LastSeq returns the newest assigned sequence number (0 when empty).
func (s *Store) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq
}
