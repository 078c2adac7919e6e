// Package history implements the bounded recent-log store. Records append in
// sequence order onto Pebble; once the store reaches capacity the oldest
// records are evicted in the same batch (FIFO). Fetch scans newest-first over
// a consistent iterator view, over-fetching raw entries before filtering so
// selective filters still fill the requested result size, and silently skips
// entries the codec rejects.
package history
