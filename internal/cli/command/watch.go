package command

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/sessmesh/internal/config"
	"github.com/yndnr/sessmesh/internal/infra/confloader"
	"github.com/yndnr/sessmesh/internal/infra/shutdown"
	"github.com/yndnr/sessmesh/internal/server/httpserver"
	"github.com/yndnr/sessmesh/internal/storage/badger"
	"github.com/yndnr/sessmesh/internal/telemetry/logger"
	"github.com/yndnr/sessmesh/internal/telemetry/metric"
	"github.com/yndnr/sessmesh/pkg/sessionstore"
)

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Run eviction and serve /metrics and /healthz until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "HTTP listen address (default: metrics.addr)",
			},
			&cli.StringFlag{
				Name:  "eviction",
				Usage: "Eviction mode: interval, native, disabled",
				Value: string(sessionstore.EvictionInterval),
			},
			&cli.Int64Flag{
				Name:  "sweep-interval",
				Usage: "Interval sweep period in minutes (default: eviction.sweep_interval)",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "Deadline for releasing resources on exit",
				Value: 15 * time.Second,
			},
		},
		Action: watch,
	}
}

func watch(c *cli.Context) error {
	extra := map[string]any{"eviction.mode": c.String("eviction")}
	if c.IsSet("addr") {
		extra["metrics.addr"] = c.String("addr")
	}
	if c.IsSet("sweep-interval") {
		extra["eviction.sweep_interval"] = c.Int64("sweep-interval")
	}

	cfg, err := loadConfig(c, extra)
	if err != nil {
		return err
	}
	log, err := newLogger(c, cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := metric.New(reg)
	if err != nil {
		return err
	}

	opts, err := cfg.StoreOptions(log)
	if err != nil {
		return err
	}
	store, err := openBadger(&opts, cfg, reg, log)
	if err != nil {
		return err
	}

	engine, err := sessionstore.New(opts)
	if err != nil {
		if store != nil {
			_ = store.Close(context.Background())
		}
		return err
	}
	detach := metrics.Instrument(engine)

	handler := shutdown.NewHandler(c.Duration("shutdown-timeout"), log)
	handler.OnShutdown("session store", engine.Close)
	handler.OnShutdown("metrics", func(context.Context) error {
		detach()
		return nil
	})

	srv, err := httpserver.New(cfg.Metrics.Addr, httpserver.NewRouter(httpserver.RouterConfig{
		Store:       engine,
		Gatherer:    reg,
		MetricsPath: cfg.Metrics.Path,
		Logger:      log,
	}), log)
	if err != nil {
		return errors.Join(err, handler.Shutdown())
	}
	srv.Start()
	handler.OnShutdown("http server", srv.Shutdown)

	if path := ParseGlobalFlags(c).Config; path != "" {
		w, err := watchConfig(path, ParseGlobalFlags(c).overrides(extra), log)
		if err != nil {
			log.Warn("config reload disabled", "file", path, "error", err)
		} else {
			handler.OnShutdown("config watcher", func(context.Context) error { return w.Stop() })
		}
	}

	log.Info("watching session store",
		"url", config.Sanitize(cfg).Store.URL,
		"eviction", cfg.Eviction.Mode,
		"addr", srv.Addr())

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		select {
		case err := <-srv.Err():
			if err != nil {
				log.Error("http server failed", "error", err)
				serveErr <- err
				cancel()
			}
		case <-ctx.Done():
		}
	}()

	err = handler.Wait(ctx)
	select {
	case serr := <-serveErr:
		return errors.Join(serr, err)
	default:
		return err
	}
}

// openBadger opens badger:// stores here rather than inside the engine so
// their size and GC metrics can be registered. The engine then takes the
// store as its collection and closes it.
func openBadger(opts *sessionstore.Options, cfg *config.Config, reg prometheus.Registerer, log *slog.Logger) (*badger.Store, error) {
	u, err := url.Parse(opts.URL)
	if err != nil || u.Scheme != "badger" || u.Path == "" || u.Path == "/" {
		return nil, nil
	}

	bc := badger.DefaultConfig(u.Path)
	if cfg.Store.Collection != "" {
		bc.Collection = cfg.Store.Collection
	}
	store, err := badger.Open(bc, log)
	if err != nil {
		return nil, err
	}
	if err := store.RegisterMetrics(reg); err != nil {
		_ = store.Close(context.Background())
		return nil, err
	}

	opts.URL = ""
	opts.Collection = store
	return store, nil
}

// watchConfig applies log level changes from the configuration file.
func watchConfig(path string, overrides map[string]any, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		cfg, err := config.Load(path, overrides)
		if err != nil {
			log.Warn("config reload failed", "file", path, "error", err)
			return
		}
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			log.Warn("config reload failed", "file", path, "error", err)
			return
		}
		log.Info("config reloaded", "file", path, "log_level", logger.Level())
	})
	w.StartAsync()
	return w, nil
}
