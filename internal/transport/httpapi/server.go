// Package httpapi serves the event list over HTTP: an HTML table for
// browsers and a JSON API for scripts. Every request authenticates with a
// bearer token mapped to a configured principal. Row actions on the HTML
// page post back to /events/actions and redirect to the list.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"crontrol/internal/authz"
	"crontrol/internal/eventops"
	"crontrol/internal/listtable"
	"crontrol/internal/schedule"
	"crontrol/internal/storage"
	logx "crontrol/pkg/logx"
)

const (
	DefaultAddr = "127.0.0.1:8085"

	shutdownTimeout = 5 * time.Second
	bodyLimit       = "16K"
)

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Pprof mounts net/http/pprof under /debug/pprof for manage_options principals.
	Pprof bool
}

// TokenResolver maps a bearer token to a principal.
type TokenResolver interface {
	ByToken(token string) (authz.Principal, bool)
}

type Deps struct {
	Store      storage.Store
	Callbacks  listtable.CallbackLookup
	Schedules  *schedule.Registry
	Tokens     listtable.TokenIssuer
	Ops        *eventops.Service
	Principals TokenResolver
	// Now overrides the clock used for relative times.
	Now func() time.Time
}

// Settings are the reloadable presentation options.
type Settings struct {
	PageSize int
	Location *time.Location
}

type Server struct {
	cfg      Config
	deps     Deps
	log      logx.Logger
	e        *echo.Echo
	settings atomic.Pointer[Settings]
}

func New(cfg Config, deps Deps, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	s := &Server{cfg: cfg, deps: deps, log: log.Named("http")}
	s.Apply(Settings{})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(s.requestLog)

	e.GET("/healthz", s.health)

	g := e.Group("", s.authenticate, requireCapability(authz.CapManageOptions))
	g.GET("/events", s.listHTML)
	g.POST("/events/actions", s.postActionForm)
	g.GET("/api/events", s.listJSON)
	g.POST("/api/events/actions", s.postAction)
	if cfg.Pprof {
		mountPprof(g)
	}

	s.e = e
	return s
}

// Apply swaps the presentation settings; safe during hot reload.
func (s *Server) Apply(st Settings) {
	if st.Location == nil {
		st.Location = time.Local
	}
	s.settings.Store(&st)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.e }

// Run listens on the configured address and serves until ctx is done.
// Bind errors are returned immediately.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.e,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	s.log.Info("http listening", logx.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		s.log.Warn("http shutdown", logx.Err(err))
		return err
	}
	s.log.Info("http stopped")
	return nil
}

func (s *Server) table(p authz.Principal) *listtable.Table {
	st := s.settings.Load()
	return listtable.New(listtable.Deps{
		Store:     s.deps.Store,
		Callbacks: s.deps.Callbacks,
		Schedules: s.deps.Schedules,
		Tokens:    s.deps.Tokens,
		PageSize:  st.PageSize,
		Location:  st.Location,
		Now:       s.deps.Now,
	}, p.Capabilities)
}

func (s *Server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		fields := []logx.Field{
			logx.String("method", req.Method),
			logx.String("path", req.URL.Path),
			logx.Int("status", c.Response().Status),
			logx.Duration("took", time.Since(start)),
		}
		if p, ok := principalFrom(c); ok {
			fields = append(fields, logx.String("principal", p.Name))
		}
		if c.Response().Status >= http.StatusInternalServerError {
			s.log.Warn("http request", fields...)
		} else {
			s.log.Debug("http request", fields...)
		}
		return nil
	}
}
