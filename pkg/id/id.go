package id

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"
	"time"
)

// ID is a 128-bit, lexicographically sortable identifier encoded as 16 bytes
// big-endian: [8 bytes ms_timestamp][8 bytes sequence].
type ID [16]byte

// Bytes returns the raw 16-byte representation.
func (i ID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, i[:])
	return b
}

// String returns the lowercase hex form.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// Compare returns -1, 0 or 1 by lexical byte comparison, which matches
// chronological order.
func (i ID) Compare(other ID) int {
	for n := 0; n < 16; n++ {
		switch {
		case i[n] < other[n]:
			return -1
		case i[n] > other[n]:
			return 1
		}
	}
	return 0
}

// Time returns the embedded wall-clock millisecond timestamp.
func (i ID) Time() time.Time {
	ms := binary.BigEndian.Uint64(i[0:8])
	return time.UnixMilli(int64(ms))
}

// Generator produces monotonically increasing IDs per process.
type Generator struct {
	mu       sync.Mutex
	lastMs   int64
	sequence uint64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since the Unix epoch.
// Tests may substitute it.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new ID. If the clock regresses it reuses the last observed
// millisecond and advances the sequence; if the sequence overflows within a
// millisecond it waits for the next one.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	switch {
	case ms == g.lastMs && g.sequence == math.MaxUint64:
		for {
			ms = NowMs()
			if ms > g.lastMs {
				break
			}
			time.Sleep(time.Millisecond / 8)
		}
		g.sequence = 0
	case ms == g.lastMs:
		g.sequence++
	default:
		g.sequence = 0
	}

	g.lastMs = ms

	var out ID
	binary.BigEndian.PutUint64(out[0:8], uint64(ms))
	binary.BigEndian.PutUint64(out[8:16], g.sequence)
	return out
}
