// Package record defines the log record model shared by the history store,
// the connection hub and the HTTP surface: the closed severity enum, the
// CRC-framed storage codec, and the per-connection FilterSpec predicate.
//
// Records are immutable once created. The storage codec silently rejects
// corrupt or unparseable entries so readers skip them instead of failing.
package record
