package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/telepanel/telepanel/internal/hub"
	"github.com/telepanel/telepanel/internal/record"
	logpkg "github.com/telepanel/telepanel/pkg/log"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The dashboard is served from its own origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// controlMessage is the inbound client protocol: the action name plus the
// replacement filter fields inline. Only the filter action is defined;
// unknown actions are ignored so the protocol can grow without breaking
// older servers.
type controlMessage struct {
	Action string `json:"action"`
	record.FilterSpec
}

// handleStreamWS runs one WebSocket viewer session: admit, register,
// backfill recent history, then relay live frames until either side goes
// away. Every exit path unregisters the connection.
func (s *Server) handleStreamWS(w http.ResponseWriter, r *http.Request) {
	spec, ok := filterFromQuery(r)
	if !ok {
		http.Error(w, "invalid level filter", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// Admission runs before any per-connection work: a denied viewer is
	// never registered, never gets a queue, and never has its filter
	// expression compiled.
	ident, err := s.resolver.Resolve(r.Context(), credential(r))
	if err != nil {
		deadline := time.Now().Add(wsWriteTimeout)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "admission denied")
		_ = ws.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = ws.Close()
		return
	}

	match, err := s.svc.CompileMatcher(spec)
	if err != nil {
		// A broken expression at connect falls back to the simple fields
		// rather than rejecting the session.
		s.logger.Warn("invalid filter expression at connect, ignoring",
			logpkg.Str("identity", string(ident)), logpkg.Err(err))
		spec.Expr = ""
		match = spec.Matches
	}

	conn := s.svc.Registry().Register(spec, match)
	s.logger.Info("viewer connected",
		logpkg.Str("conn", conn.ID()),
		logpkg.Str("identity", string(ident)),
		logpkg.Str("remote", r.RemoteAddr),
	)

	defer func() {
		s.svc.Registry().Unregister(conn.ID())
		_ = ws.Close()
		s.logger.Info("viewer disconnected",
			logpkg.Str("conn", conn.ID()),
			logpkg.Uint64("dropped", conn.Dropped()),
		)
	}()

	if err := s.backfillWS(ws, spec); err != nil {
		return
	}

	// Reader goroutine: enforces the idle deadline and applies filter
	// updates. Its exit (client gone or idle) wakes the write loop below.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readLoop(ws, conn)
	}()

	ticker := time.NewTicker(s.cfg.Stream.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-conn.Outbound():
			if err := s.writeFrame(ws, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.writeFrame(ws, hub.HeartbeatFrame(time.Now())); err != nil {
				return
			}
			deadline := time.Now().Add(wsWriteTimeout)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-readDone:
			return
		case <-conn.Done():
			return
		case <-r.Context().Done():
			return
		}
	}
}

// backfillWS writes the recent-history window before live frames begin. A
// record ingested during the window handoff can appear in both; dashboards
// dedupe on timestamp+message.
func (s *Server) backfillWS(ws *websocket.Conn, spec record.FilterSpec) error {
	items, err := s.svc.Fetch(s.cfg.Stream.BackfillLimit, spec)
	if err != nil {
		s.logger.Error("backfill failed", logpkg.Err(err))
		return err
	}
	for _, it := range items {
		if err := s.writeFrame(ws, hub.LogFrame(it.Record)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) writeFrame(ws *websocket.Conn, f hub.Frame) error {
	_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return ws.WriteJSON(f)
}

// readLoop consumes inbound control messages until the connection errors
// or goes idle.
func (s *Server) readLoop(ws *websocket.Conn, conn *hub.Conn) {
	idle := s.cfg.Stream.IdleTimeout
	resetDeadline := func() { _ = ws.SetReadDeadline(time.Now().Add(idle)) }
	resetDeadline()
	ws.SetPongHandler(func(string) error {
		resetDeadline()
		return nil
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		resetDeadline()

		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Action != "filter" {
			continue
		}
		if msg.Level != "" {
			level, ok := record.ParseLevel(string(msg.Level))
			if !ok {
				s.logger.Warn("filter update rejected",
					logpkg.Str("conn", conn.ID()), logpkg.Str("level", string(msg.Level)))
				continue
			}
			msg.Level = level
		}
		match, err := s.svc.CompileMatcher(msg.FilterSpec)
		if err != nil {
			// Keep the previous filter; only a valid replacement takes
			// effect.
			s.logger.Warn("filter update rejected",
				logpkg.Str("conn", conn.ID()), logpkg.Err(err))
			continue
		}
		conn.SetFilter(msg.FilterSpec, match)
		conn.Enqueue(hub.FilterUpdatedFrame(msg.FilterSpec))
	}
}
