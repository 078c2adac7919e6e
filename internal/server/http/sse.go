package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/telepanel/telepanel/internal/hub"
	logpkg "github.com/telepanel/telepanel/pkg/log"
)

// handleStreamSSE is the server-sent-events variant of the viewer stream,
// for clients that cannot speak WebSocket (curl, the CLI tail command).
// Filters are fixed at connect time via query parameters; there is no
// inbound channel to update them.
func (s *Server) handleStreamSSE(w http.ResponseWriter, r *http.Request) {
	ident, err := s.resolver.Resolve(r.Context(), credential(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	spec, ok := filterFromQuery(r)
	if !ok {
		http.Error(w, "invalid level filter", http.StatusBadRequest)
		return
	}
	match, err := s.svc.CompileMatcher(spec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	conn := s.svc.Registry().Register(spec, match)
	defer s.svc.Registry().Unregister(conn.ID())
	s.logger.Info("sse viewer connected",
		logpkg.Str("conn", conn.ID()),
		logpkg.Str("identity", string(ident)),
	)

	items, err := s.svc.Fetch(s.cfg.Stream.BackfillLimit, spec)
	if err != nil {
		s.logger.Error("backfill failed", logpkg.Err(err))
		return
	}
	for _, it := range items {
		if err := writeSSE(w, hub.LogFrame(it.Record)); err != nil {
			return
		}
	}
	flusher.Flush()

	ticker := time.NewTicker(s.cfg.Stream.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-conn.Outbound():
			if err := writeSSE(w, frame); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if err := writeSSE(w, hub.HeartbeatFrame(time.Now())); err != nil {
				return
			}
			flusher.Flush()
		case <-conn.Done():
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, f hub.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.Type, data)
	return err
}
