package record

import (
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
)

// Stored encoding: varint headerLen | header | payload | crc32c(header|payload)
//
// The header is the record's wall-clock timestamp in big-endian milliseconds;
// the payload is the compact JSON form of the record. The trailing checksum
// lets readers skip entries damaged on disk instead of surfacing them.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

const headerLen = 8

// Encode frames the record for storage.
func Encode(r Record) ([]byte, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var header [headerLen]byte
	binary.BigEndian.PutUint64(header[:], uint64(r.Time.UnixMilli()))

	out := make([]byte, 0, 10+headerLen+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(headerLen))
	out = append(out, tmp[:n]...)
	out = append(out, header[:]...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header[:])
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out, nil
}

// Decode unframes and parses a stored entry. Returns false for any damage:
// truncated frame, checksum mismatch, bad JSON, or a level outside the enum.
func Decode(b []byte) (Record, bool) {
	if len(b) < 1+4 {
		return Record{}, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || int(hlen) != headerLen {
		return Record{}, false
	}
	if n+int(hlen)+4 > len(b) {
		return Record{}, false
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return Record{}, false
	}

	var r Record
	if err := json.Unmarshal(payload, &r); err != nil {
		return Record{}, false
	}
	if !r.Level.Valid() {
		return Record{}, false
	}
	return r, true
}

// HeaderTime extracts the timestamp (ms) from a stored entry without parsing
// the payload.
func HeaderTime(b []byte) (int64, bool) {
	hlen, n := binary.Uvarint(b)
	if n <= 0 || int(hlen) != headerLen || n+headerLen > len(b) {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(b[n : n+headerLen])), true
}
