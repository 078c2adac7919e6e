package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/telepanel/telepanel/internal/auth"
	"github.com/telepanel/telepanel/internal/bus"
	cfgpkg "github.com/telepanel/telepanel/internal/config"
	"github.com/telepanel/telepanel/internal/history"
	"github.com/telepanel/telepanel/internal/hub"
	httpserver "github.com/telepanel/telepanel/internal/server/http"
	logsvc "github.com/telepanel/telepanel/internal/services/logs"
	pebblestore "github.com/telepanel/telepanel/internal/storage/pebble"
	logpkg "github.com/telepanel/telepanel/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	DataDir       string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Be robust to callers that don't pass a signal-aware context: layer a
	// local signal context over the provided one.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	if opts.HTTPAddr == "" {
		opts.HTTPAddr = opts.Config.HTTPAddr
	}

	lcfg := &logpkg.Config{
		Level:  getenvDefault("TELEPANEL_LOG_LEVEL", "info"),
		Format: getenvDefault("TELEPANEL_LOG_FORMAT", "text"),
	}
	procLogger, err := logpkg.ApplyConfig(lcfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(lcfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g., Pebble) to our logger.
	logpkg.RedirectStdLog(procLogger)

	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       filepath.Join(opts.DataDir, "store"),
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	hist, err := history.Open(db, history.Options{
		Capacity:      opts.Config.History.Capacity,
		FetchMultiple: opts.Config.History.FetchMultiple,
	})
	if err != nil {
		return err
	}

	procLogger.Info("Starting telepanel server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("level", lcfg.Level),
		logpkg.Str("format", lcfg.Format),
		logpkg.Int("history_capacity", opts.Config.History.Capacity),
		logpkg.Int("queue_size", opts.Config.Stream.QueueSize),
	)

	registry := hub.NewRegistry(opts.Config.Stream.QueueSize, procLogger)
	eventBus := bus.New(opts.Config.Stream.BusBuffer)
	svc := logsvc.New(hist, registry, eventBus, procLogger)
	resolver := &auth.StaticResolver{
		AllowAnonymous: opts.Config.Auth.AllowAnonymous,
		Tokens:         opts.Config.Auth.Tokens,
	}
	// Health probe: a point read proves the store still serves requests.
	health := func(context.Context) error {
		_, err := db.Get([]byte("healthz"))
		if err != nil && err != pebblestore.ErrNotFound {
			return err
		}
		return nil
	}
	hsrv := httpserver.New(opts.Config, svc, resolver, health, procLogger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server error", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	// Shut servers down before the store so in-flight handlers never see a
	// closed database.
	hsrv.Close()
	wg.Wait()
	return nil
}
