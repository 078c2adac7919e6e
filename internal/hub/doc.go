// Package hub tracks live streaming connections and fans records out to
// them. Each connection owns a bounded outbound queue (drop-oldest under
// backpressure) and a filter predicate it replaces atomically. Broadcast
// holds the registry lock only for the map snapshot, never across queue
// operations or transport I/O, so one slow viewer cannot degrade others.
package hub
