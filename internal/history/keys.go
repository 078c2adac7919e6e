package history

import "encoding/binary"

// Keyspace (byte-wise, lexicographically sortable):
//   hist/m            -> [firstSeq_be8][lastSeq_be8]
//   hist/e/{seq_be8}  -> framed record
var (
	keyMeta     = []byte("hist/m")
	entryPrefix = []byte("hist/e/")
)

func keyEntry(seq uint64) []byte {
	k := make([]byte, 0, len(entryPrefix)+8)
	k = append(k, entryPrefix...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return append(k, b[:]...)
}

func seqFromKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(entryPrefix):])
}

// entryBounds returns the [lower, upper) iterator bounds covering all entries.
func entryBounds() (lo, hi []byte) {
	lo = keyEntry(0)
	hi = append(keyEntry(^uint64(0)), 0x00)
	return lo, hi
}
