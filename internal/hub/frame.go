package hub

import (
	"encoding/json"
	"time"

	"github.com/telepanel/telepanel/internal/record"
)

// FrameType enumerates the closed set of outbound message kinds.
type FrameType string

const (
	FrameLog           FrameType = "log"
	FrameHeartbeat     FrameType = "heartbeat"
	FrameFilterUpdated FrameType = "filter_updated"
	FrameEvent         FrameType = "event"
)

// Frame is one outbound wire message. Exactly one payload field is set,
// according to Type.
type Frame struct {
	Type      FrameType
	Record    *record.Record     // FrameLog
	Event     *record.Event      // FrameEvent
	Filters   *record.FilterSpec // FrameFilterUpdated
	Timestamp time.Time          // FrameHeartbeat
}

// LogFrame wraps a record for delivery.
func LogFrame(r record.Record) Frame { return Frame{Type: FrameLog, Record: &r} }

// EventFrame wraps a dashboard event for delivery.
func EventFrame(ev record.Event) Frame { return Frame{Type: FrameEvent, Event: &ev} }

// HeartbeatFrame carries the emission time.
func HeartbeatFrame(at time.Time) Frame { return Frame{Type: FrameHeartbeat, Timestamp: at} }

// FilterUpdatedFrame acknowledges a filter replacement.
func FilterUpdatedFrame(f record.FilterSpec) Frame {
	return Frame{Type: FrameFilterUpdated, Filters: &f}
}

// MarshalJSON renders the wire shape for the frame's type.
func (f Frame) MarshalJSON() ([]byte, error) {
	switch f.Type {
	case FrameLog:
		return json.Marshal(struct {
			Type FrameType      `json:"type"`
			Data *record.Record `json:"data"`
		}{f.Type, f.Record})
	case FrameHeartbeat:
		return json.Marshal(struct {
			Type      FrameType `json:"type"`
			Timestamp string    `json:"timestamp"`
		}{f.Type, f.Timestamp.UTC().Format(time.RFC3339)})
	case FrameFilterUpdated:
		return json.Marshal(struct {
			Type    FrameType          `json:"type"`
			Filters *record.FilterSpec `json:"filters"`
		}{f.Type, f.Filters})
	case FrameEvent:
		return json.Marshal(struct {
			Type FrameType              `json:"type"`
			Kind string                 `json:"kind"`
			Data map[string]interface{} `json:"data,omitempty"`
		}{f.Type, f.Event.Kind, f.Event.Data})
	default:
		return json.Marshal(struct {
			Type FrameType `json:"type"`
		}{f.Type})
	}
}
