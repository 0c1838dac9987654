// Package app wires the daemon: config manager, settings cache, storage,
// pipeline, janitor, and the optional pprof server.
package app

import (
	"context"
	"strings"

	"islandbridge/internal/config"
	"islandbridge/internal/eventbus"
	"islandbridge/internal/janitor"
	"islandbridge/internal/observability"
	"islandbridge/internal/pipeline"
	"islandbridge/internal/settings"
	"islandbridge/internal/sink"
	"islandbridge/internal/storage"
	"islandbridge/internal/translate"
	"islandbridge/internal/widget"
	logx "islandbridge/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	logs *logx.Service
	log  logx.Logger

	bus     eventbus.Bus
	store   storage.Store
	cache   *settings.Cache
	widgets *widget.Registry
	pipe    *pipeline.Service
	jan     *janitor.Service
	pprof   *observability.PprofService

	sup  *Supervisor
	done chan struct{}
}

// Options allow the host to inject its platform integrations. Zero values
// select the in-process defaults (log sink, in-memory widget registry).
type Options struct {
	Sink    sink.Sink
	Widgets *widget.Registry
}

func New(cfgPath string, opts Options) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	bus := eventbus.New()

	var store storage.Store
	if cfg.Storage != nil {
		busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return nil, err
		}
		st, err := storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		if store != nil {
			log.Info("storage enabled", logx.String("driver", cfg.Storage.Driver))
		}
	}

	cache := settings.NewCache(cfg, log.With(logx.String("comp", "settings")))

	widgets := opts.Widgets
	if widgets == nil {
		widgets = widget.NewRegistry()
	}
	out := opts.Sink
	if out == nil {
		out = &sink.LogSink{Log: log.With(logx.String("comp", "sink"))}
	}

	set := translate.NewSet(nil, widgets, log.With(logx.String("comp", "translate")))
	pipe := pipeline.New(cache, set, out, store, bus, widgets, log.With(logx.String("comp", "pipeline")))
	jan := janitor.New(cfg.Janitor, pipe, store, log.With(logx.String("comp", "janitor")))
	pprofSvc := observability.NewPprof(cfg.Pprof, log.With(logx.String("comp", "pprof")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		logs:    logSvc,
		log:     log,
		bus:     bus,
		store:   store,
		cache:   cache,
		widgets: widgets,
		pipe:    pipe,
		jan:     jan,
		pprof:   pprofSvc,
		done:    make(chan struct{}),
	}, nil
}

// Pipeline exposes the event entry points for the host feed.
func (a *App) Pipeline() *pipeline.Service { return a.pipe }

// Widgets exposes the registry the host pushes widget views into.
func (a *App) Widgets() *widget.Registry { return a.widgets }

// Bus exposes the lifecycle event stream.
func (a *App) Bus() eventbus.Bus { return a.bus }

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, a.log)
	runCtx := a.sup.Context()

	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return cfg.Validate()
	})

	a.pipe.Start(runCtx)
	if err := a.jan.Start(runCtx); err != nil {
		a.sup.cancel()
		return err
	}
	a.pprof.Start(runCtx)

	// Config hot reload: the settings cache consumes the stream directly;
	// the loop below applies the sections that need explicit service pokes.
	updates := a.cfgm.Subscribe(8)
	a.sup.Go0("settings.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(updates)
		a.cache.Run(c, updates)
	})

	svcUpdates := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(svcUpdates)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case cfg, ok := <-svcUpdates:
				if !ok {
					return
				}
				a.applyReload(c, last, cfg)
				last = cfg
			}
		}
	})

	if err := a.cfgm.Watch(runCtx); err != nil {
		a.log.Warn("config watch unavailable", logx.Err(err))
	}

	// Debug visibility into island lifecycle events.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e := <-events:
				a.log.Debug("event",
					logx.String("type", e.Type),
					logx.String("key", e.Key),
					logx.String("source", e.SourceID),
					logx.String("island", e.Island),
					logx.Int("island_id", e.IslandID),
				)
			}
		}
	})

	a.log.Info("islandbridge started", logx.String("config", a.cfgPath))
	return nil
}

func (a *App) applyReload(ctx context.Context, prev, next *config.Config) {
	if next == nil {
		return
	}
	a.logs.Apply(logx.Config{
		Level:   next.Logging.Level,
		Console: next.Logging.Console,
		File: logx.FileConfig{
			Enabled: next.Logging.File.Enabled,
			Path:    next.Logging.File.Path,
		},
	})
	if err := a.jan.Apply(ctx, next.Janitor); err != nil {
		a.log.Warn("janitor reload failed", logx.Err(err))
	}
	a.pprof.Apply(ctx, next.Pprof)

	if prev != nil && storageChanged(prev, next) {
		a.log.Warn("storage config changed; restart required for changes to take effect")
	}
}

func storageChanged(prev, next *config.Config) bool {
	p, n := prev.Storage, next.Storage
	switch {
	case p == nil && n == nil:
		return false
	case p == nil || n == nil:
		return true
	default:
		return !strings.EqualFold(p.Driver, n.Driver) || p.Path != n.Path
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil {
			a.log.Warn("supervised loops did not drain in time", logx.Err(err))
		}
	}
	a.jan.Stop(ctx)
	a.pipe.Stop(ctx)
	a.pprof.Stop(ctx)
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}
	a.log.Info("islandbridge stopped")
	_ = a.logs.Close()
	close(a.done)
	return nil
}

// Done is closed once Stop completes.
func (a *App) Done() <-chan struct{} { return a.done }
