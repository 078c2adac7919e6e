// Package bus provides in-process typed pub/sub for dashboard events.
// Publish never blocks: a subscriber whose buffer is full misses that event
// (at-most-once, best-effort). Each subscriber sees events in publish order;
// no ordering is defined across subscribers.
package bus
