// Package id provides 128-bit, lexicographically sortable identifiers used
// for streaming connections and event ids.
//
// # Format
//
// An ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence], so
// byte-wise comparison preserves chronological order and ids minted within
// the same millisecond remain strictly increasing by sequence.
//
// # Monotonicity
//
// The Generator guarantees per-process monotonicity: a regressing system
// clock pins to the last seen millisecond, and a sequence overflow inside a
// single millisecond waits for the next one.
package id
