package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/telepanel/telepanel/internal/auth"
	"github.com/telepanel/telepanel/internal/config"
	"github.com/telepanel/telepanel/internal/record"
	logsvc "github.com/telepanel/telepanel/internal/services/logs"
	logpkg "github.com/telepanel/telepanel/pkg/log"
)

// HealthFunc probes the backing storage.
type HealthFunc func(ctx context.Context) error

// Server is the HTTP surface over the streaming core.
type Server struct {
	cfg      config.Config
	svc      *logsvc.Service
	resolver auth.Resolver
	health   HealthFunc
	logger   logpkg.Logger
	srv      *http.Server
	lis      net.Listener
}

// New wires the server. A nil resolver admits everyone (development); a nil
// health func reports healthy.
func New(cfg config.Config, svc *logsvc.Service, resolver auth.Resolver, health HealthFunc, logger logpkg.Logger) *Server {
	if resolver == nil {
		resolver = &auth.StaticResolver{AllowAnonymous: true}
	}
	if health == nil {
		health = func(context.Context) error { return nil }
	}
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		resolver: resolver,
		health:   health,
		logger:   logger.With(logpkg.Component("http")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/logs", s.handleFetch)
	mux.HandleFunc("/v1/logs/ingest", s.handleIngest)
	mux.HandleFunc("/v1/events/publish", s.handlePublishEvent)

	// Streaming endpoints bypass response compression: gzip buffering would
	// defeat per-frame flushing.
	root := http.NewServeMux()
	root.Handle("/v1/", gzhttp.GzipHandler(mux))
	root.HandleFunc("/v1/logs/stream", s.handleStreamWS)
	root.HandleFunc("/v1/logs/sse", s.handleStreamSSE)

	s.srv = &http.Server{Handler: cors(root)}
	return s
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// Addr returns the bound listen address, for tests that use port 0.
func (s *Server) Addr() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_serving"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats := s.svc.Stats()
	_ = json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
		logsvc.Stats
	}{"ok", stats})
}

// handleFetch serves the recent-history window with optional filters.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := s.cfg.Stream.BackfillLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		limit = n
	}
	spec, ok := filterFromQuery(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	items, err := s.svc.Fetch(limit, spec)
	if err != nil {
		if errors.Is(err, logsvc.ErrBadFilter) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	out := make([]record.Record, len(items))
	for i, it := range items {
		out[i] = it.Record
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"logs": out, "count": len(out)})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rec, err := parseIngestBody(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	if _, err := s.svc.Ingest(r.Context(), rec); err != nil {
		if errors.Is(err, logsvc.ErrInvalidLevel) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePublishEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var ev record.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.svc.PublishEvent(r.Context(), ev); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// credential extracts the viewer credential: Authorization bearer token or
// the token query parameter (browsers cannot set headers on WebSocket).
func credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "Bearer "
		if len(h) > len(prefix) && h[:len(prefix)] == prefix {
			return h[len(prefix):]
		}
		return h
	}
	return r.URL.Query().Get("token")
}

// filterFromQuery builds a FilterSpec from query parameters. Returns false
// for a level outside the enum.
func filterFromQuery(r *http.Request) (record.FilterSpec, bool) {
	var spec record.FilterSpec
	if v := r.URL.Query().Get("level"); v != "" {
		level, ok := record.ParseLevel(v)
		if !ok {
			return spec, false
		}
		spec.Level = level
	}
	spec.Logger = r.URL.Query().Get("logger")
	spec.Search = r.URL.Query().Get("search")
	spec.Expr = r.URL.Query().Get("expr")
	return spec, true
}
