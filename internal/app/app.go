package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crontrol/internal/actiontoken"
	"crontrol/internal/authz"
	"crontrol/internal/callbacks"
	"crontrol/internal/config"
	"crontrol/internal/eventops"
	"crontrol/internal/listtable"
	rtsup "crontrol/internal/runtime/supervisor"
	"crontrol/internal/schedule"
	"crontrol/internal/storage"
	kit "crontrol/internal/transport"
	"crontrol/internal/transport/httpapi"
	telegram "crontrol/internal/transport/telegram/adapter"
	"crontrol/internal/transport/telegram/eventsui"
	"crontrol/internal/transport/telegram/router"
	logx "crontrol/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service

	store      storage.Store
	schedules  *schedule.Registry
	callbacks  *callbacks.Registry
	principals *authz.Directory
	tokens     *actiontoken.Issuer
	ops        *eventops.Service

	// Telegram surface; nil when disabled.
	adapter kit.Adapter
	router  *router.Router
	ui      *eventsui.UI

	// HTTP surface; nil when disabled.
	http *httpapi.Server

	updates chan kit.Update
}

type Option func(*options)

type options struct {
	surfaces  bool
	callbacks []func(*callbacks.Registry) error
}

// WithSurfaces controls whether Telegram and HTTP are built. CLI commands
// that only touch the store turn them off.
func WithSurfaces(enabled bool) Option {
	return func(o *options) { o.surfaces = enabled }
}

// WithCallbacks runs fn against the callback registry while the app is
// built. Programs that embed the app and run events themselves register
// their hook handlers here so the list shows them.
func WithCallbacks(fn func(*callbacks.Registry) error) Option {
	return func(o *options) { o.callbacks = append(o.callbacks, fn) }
}

func New(cfgPath string, opts ...Option) (*App, error) {
	o := options{surfaces: true}
	for _, fn := range opts {
		fn(&o)
	}

	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))

	a, err := build(cfg, log, o)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	a.cfgm = cfgm
	a.logs = logSvc
	return a, nil
}

// build wires every component from cfg. It does not start anything.
func build(cfg *config.Config, log logx.Logger, o options) (*App, error) {
	schedules, err := buildSchedules(cfg)
	if err != nil {
		return nil, err
	}
	loc, err := mapLocation(cfg)
	if err != nil {
		return nil, err
	}
	ttl, err := mapTokenTTL(cfg)
	if err != nil {
		return nil, err
	}
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log.Named("storage"))
	if err != nil {
		return nil, err
	}
	log.Info("storage ready", logx.String("driver", sc.Driver))

	if strings.TrimSpace(cfg.Tokens.Secret) == "" {
		log.Warn("tokens.secret not set; confirmation tokens will not survive a restart")
	}
	tokens := actiontoken.New(cfg.Tokens.Secret, ttl)
	principals := authz.NewDirectory(mapPrincipals(cfg))
	cbs := callbacks.NewRegistry()
	cbs.SetDeclared(mapCallbacks(cfg))
	for _, fn := range o.callbacks {
		if err := fn(cbs); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("register callbacks: %w", err)
		}
	}
	ops := eventops.New(store, tokens, log.Named("eventops"))

	a := &App{
		log:        log.Named("app"),
		store:      store,
		schedules:  schedules,
		callbacks:  cbs,
		principals: principals,
		tokens:     tokens,
		ops:        ops,
		updates:    make(chan kit.Update, 256),
	}
	if !o.surfaces {
		return a, nil
	}

	if cfg.Telegram.Enabled {
		pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		ad, err := telegram.New(telegram.Config{
			Token:       cfg.Telegram.Token,
			PollTimeout: pollTimeout,
		}, log.Named("telegram"))
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		a.adapter = ad
		a.ui = eventsui.New(eventsui.Deps{
			Store:     store,
			Callbacks: cbs,
			Schedules: schedules,
			Tokens:    tokens,
			Ops:       ops,
			StateTTL:  ttl,
		}, log.Named("eventsui"))
		a.ui.Apply(eventsui.Settings{PageSize: cfg.Events.PageSize, Location: loc})

		a.router = router.New(log.Named("router"), ad, principals)
		a.router.SetRateLimit(cfg.Telegram.RatePerMin)
		a.router.SetRegistry(a.ui.Commands(), a.ui.Routes())
	}

	if cfg.HTTP.Enabled {
		hc, err := mapHTTPConfig(cfg)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		a.http = httpapi.New(hc, httpapi.Deps{
			Store:      store,
			Callbacks:  cbs,
			Schedules:  schedules,
			Tokens:     tokens,
			Ops:        ops,
			Principals: principals,
		}, log)
		a.http.Apply(httpapi.Settings{PageSize: cfg.Events.PageSize, Location: loc})
	}

	if a.adapter == nil && a.http == nil {
		a.log.Warn("no surface enabled; set telegram.enabled or http.enabled")
	}
	return a, nil
}

func (a *App) Log() logx.Logger              { return a.log }
func (a *App) Store() storage.Store          { return a.store }
func (a *App) Schedules() *schedule.Registry { return a.schedules }
func (a *App) Principals() *authz.Directory  { return a.principals }
func (a *App) Config() *config.Config        { return a.cfgm.Get() }
func (a *App) Tokens() listtable.TokenIssuer { return a.tokens }
func (a *App) Ops() *eventops.Service        { return a.ops }

// Callbacks is the registry behind the Actions column. It holds the
// events.callbacks entries plus whatever WithCallbacks registered; embedding
// programs may add more before Start.
func (a *App) Callbacks() *callbacks.Registry { return a.callbacks }

// Table builds a list table for caps with the current presentation settings.
func (a *App) Table(caps authz.Capabilities) *listtable.Table {
	cfg := a.cfgm.Get()
	loc, err := mapLocation(cfg)
	if err != nil {
		loc = time.Local
	}
	return listtable.New(listtable.Deps{
		Store:     a.store,
		Callbacks: a.callbacks,
		Schedules: a.schedules,
		Tokens:    a.tokens,
		PageSize:  cfg.Events.PageSize,
		Location:  loc,
	}, caps)
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// validate runs the cross-package checks config.Validate cannot do.
func (a *App) validate(_ context.Context, cfg *config.Config) error {
	var errs []error
	if _, err := buildSchedules(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapLocation(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapHTTPConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapTokenTTL(cfg); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.Named("config"))
	a.cfgm.SetValidator(a.validate)

	if a.adapter != nil {
		if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
			return err
		}
		a.sup.Go("telegram.dispatch", func(c context.Context) error {
			return a.router.DispatchLoop(c, a.updates)
		})
	}
	if a.http != nil {
		a.sup.Go("http.serve", a.http.Run)
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						drained = true
					}
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	sdNotify(a.log, sdReady)
	a.log.Info("app started",
		logx.Bool("telegram", a.adapter != nil),
		logx.Bool("http", a.http != nil),
		logx.Int("principals", a.principals.Len()),
	)
	return nil
}

// applyConfig pushes the reloadable parts of newCfg into the running
// components. Surfaces, storage and token secrets need a restart.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Debug("config change summary", fields...)

	for _, s := range sections {
		switch s {
		case "storage", "http", "tokens":
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
		case "telegram":
			if oldCfg.Telegram.Enabled != newCfg.Telegram.Enabled || oldCfg.Telegram.Token != newCfg.Telegram.Token {
				a.log.Warn("telegram enable/token changed; restart required")
			}
		}
	}

	if a.logs != nil {
		a.logs.Apply(mapLogConfig(newCfg))
	}
	if reg, err := buildSchedules(newCfg); err != nil {
		a.log.Warn("invalid schedules; keeping previous", logx.Err(err))
	} else {
		a.schedules.Replace(reg)
	}
	a.principals.Update(mapPrincipals(newCfg))
	a.store.SetCoreHooks(newCfg.Events.CoreHooks)
	a.callbacks.SetDeclared(mapCallbacks(newCfg))

	loc, err := mapLocation(newCfg)
	if err != nil {
		a.log.Warn("invalid timezone; keeping previous", logx.Err(err))
	} else {
		if a.ui != nil {
			a.ui.Apply(eventsui.Settings{PageSize: newCfg.Events.PageSize, Location: loc})
		}
		if a.http != nil {
			a.http.Apply(httpapi.Settings{PageSize: newCfg.Events.PageSize, Location: loc})
		}
	}
	if a.router != nil {
		a.router.SetRateLimit(newCfg.Telegram.RatePerMin)
	}

	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return a.close()
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdNotify(a.log, sdStopping)

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// step runs one shutdown step with an upper bound so one component
	// can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem < max {
					max = rem
				}
			}
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	if a.adapter != nil {
		step("adapter", 2*time.Second, a.adapter.Stop)
	}
	step("supervisor", 6*time.Second, a.sup.Wait)
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// close releases resources of an app that was never started.
func (a *App) close() error {
	err := a.store.Close()
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return err
}
