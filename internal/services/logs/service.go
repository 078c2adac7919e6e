package logsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/telepanel/telepanel/internal/bus"
	"github.com/telepanel/telepanel/internal/history"
	"github.com/telepanel/telepanel/internal/hub"
	"github.com/telepanel/telepanel/internal/record"
	logpkg "github.com/telepanel/telepanel/pkg/log"
)

// ErrInvalidLevel is returned for records whose level is outside the enum.
var ErrInvalidLevel = errors.New("logs: invalid record level")

// ErrInvalidEvent is returned for events without a kind.
var ErrInvalidEvent = errors.New("logs: event kind required")

// ErrBadFilter wraps filter expressions that fail to compile.
var ErrBadFilter = errors.New("logs: bad filter expression")

// Service wires the history store, the connection registry and the event
// bus behind one producer-facing API.
type Service struct {
	history  *history.Store
	registry *hub.Registry
	bus      *bus.Bus
	logger   logpkg.Logger
}

// New returns a Service using the provided collaborators.
func New(hist *history.Store, registry *hub.Registry, eventBus *bus.Bus, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &Service{
		history:  hist,
		registry: registry,
		bus:      eventBus,
		logger:   logger.With(logpkg.Component("logs")),
	}
}

// Ingest appends a log record to the bounded history and fans it out to
// matching live connections. It is synchronous from the producer's view but
// never waits on any individual consumer: slow viewers shed frames in their
// own queues. The only write entry point into the streaming pipeline.
func (s *Service) Ingest(ctx context.Context, r record.Record) (uint64, error) {
	if !r.Level.Valid() {
		normalized, ok := record.ParseLevel(string(r.Level))
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, r.Level)
		}
		r.Level = normalized
	}
	if r.Time.IsZero() {
		r.Time = time.Now()
	}

	seq, err := s.history.Append(ctx, r)
	if err != nil {
		// Live delivery stays best-effort even when the disk write fails;
		// viewers lose only the backfill copy of this record.
		s.logger.Error("history append failed", logpkg.Err(err))
		s.registry.Broadcast(r)
		return 0, err
	}
	s.registry.Broadcast(r)
	return seq, nil
}

// PublishEvent fans a dashboard event out through the bus and to every live
// connection. Events are not retained in history.
func (s *Service) PublishEvent(_ context.Context, ev record.Event) error {
	if ev.Kind == "" {
		return ErrInvalidEvent
	}
	s.bus.Publish(ev)
	s.registry.BroadcastEvent(ev)
	return nil
}

// CompileMatcher builds the hub predicate for a FilterSpec, compiling its
// optional CEL expression. An invalid expression is an error; the caller
// decides whether to keep the connection's previous filter.
func (s *Service) CompileMatcher(spec record.FilterSpec) (hub.Matcher, error) {
	cf, err := newCELFilter(spec.Expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFilter, err)
	}
	if !cf.enabled {
		return spec.Matches, nil
	}
	return func(r record.Record) bool {
		return spec.Matches(r) && cf.Eval(r)
	}, nil
}

// Fetch returns up to maxCount recent records matching the spec, oldest
// first, drawn from the full retained window.
func (s *Service) Fetch(maxCount int, spec record.FilterSpec) ([]history.Stored, error) {
	match, err := s.CompileMatcher(spec)
	if err != nil {
		return nil, err
	}
	return s.history.Fetch(maxCount, match)
}

// Stats is the operator-facing health snapshot.
type Stats struct {
	Connections     int    `json:"connections"`
	HistoryLen      int    `json:"history_len"`
	HistoryCapacity int    `json:"history_capacity"`
	DroppedFrames   uint64 `json:"dropped_frames"`
	BusSubscribers  int    `json:"bus_subscribers"`
	BusDropped      uint64 `json:"bus_dropped"`
}

// Stats reports current connection count and pipeline counters.
func (s *Service) Stats() Stats {
	return Stats{
		Connections:     s.registry.Count(),
		HistoryLen:      s.history.Len(),
		HistoryCapacity: s.history.Capacity(),
		DroppedFrames:   s.registry.Dropped(),
		BusSubscribers:  s.bus.Subscribers(),
		BusDropped:      s.bus.Dropped(),
	}
}

// Registry exposes the connection registry to the session handler.
func (s *Service) Registry() *hub.Registry { return s.registry }

// Bus exposes the event bus for dashboard subscribers.
func (s *Service) Bus() *bus.Bus { return s.bus }
