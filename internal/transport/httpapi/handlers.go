package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"crontrol/internal/actiontoken"
	"crontrol/internal/authz"
	"crontrol/internal/event"
	"crontrol/internal/eventops"
	"crontrol/internal/listtable"
	"crontrol/internal/storage"
	logx "crontrol/pkg/logx"
)

const principalKey = "principal"

var errTokenRequired = errors.New("token required")

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func success(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func failure(c echo.Context, code int, msg string) error {
	return c.JSON(code, Response{Error: msg})
}

// listing is the JSON body of GET /api/events.
type listing struct {
	Columns      []listtable.Column `json:"columns"`
	Rows         []listtable.Row    `json:"rows"`
	Pagination   pagination         `json:"pagination"`
	EmptyMessage string             `json:"empty_message,omitempty"`
}

type pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

type actionRequest struct {
	Token string `json:"token" form:"token"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="crontrol"`)
			return failure(c, http.StatusUnauthorized, "authorization required")
		}
		if s.deps.Principals == nil {
			return failure(c, http.StatusUnauthorized, "invalid token")
		}
		p, ok := s.deps.Principals.ByToken(token)
		if !ok {
			return failure(c, http.StatusUnauthorized, "invalid token")
		}
		c.Set(principalKey, p)
		return next(c)
	}
}

func requireCapability(name string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := principalFrom(c)
			if !ok || !p.Capabilities.Has(name) {
				return failure(c, http.StatusForbidden, "not allowed to manage scheduled events")
			}
			return next(c)
		}
	}
}

func principalFrom(c echo.Context) (authz.Principal, bool) {
	p, ok := c.Get(principalKey).(authz.Principal)
	return p, ok
}

// pageParam reads a 1-based page number; junk and values below 1 mean 1.
func pageParam(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (s *Server) listJSON(c echo.Context) error {
	p, _ := principalFrom(c)
	tbl := s.table(p)
	prep, err := tbl.Prepare(c.Request().Context(), pageParam(c, "page"))
	if err != nil {
		return err
	}
	out := listing{
		Columns: tbl.Columns(),
		Rows:    prep.Rows,
		Pagination: pagination{
			Page:       prep.Page.Number,
			PageSize:   prep.Page.Size,
			TotalItems: prep.Page.TotalItems,
			TotalPages: prep.Page.TotalPages,
		},
	}
	if prep.Page.TotalItems == 0 {
		out.EmptyMessage = tbl.EmptyStateMessage()
	}
	return success(c, out)
}

func (s *Server) listHTML(c echo.Context) error {
	p, _ := principalFrom(c)
	tbl := s.table(p)
	prep, err := tbl.Prepare(c.Request().Context(), pageParam(c, "paged"))
	if err != nil {
		if errors.Is(err, event.ErrStoreUnavailable) {
			return c.HTML(http.StatusServiceUnavailable, renderError(err))
		}
		return err
	}
	body, err := renderPage(tbl, prep, c.QueryParam("done"))
	if err != nil {
		return err
	}
	return c.HTML(http.StatusOK, body)
}

func (s *Server) postAction(c echo.Context) error {
	var req actionRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return failure(c, http.StatusBadRequest, errTokenRequired.Error())
	}
	p, _ := principalFrom(c)
	actor := eventops.Actor{Principal: p, Surface: eventops.SurfaceHTTP}
	res, err := s.deps.Ops.Confirm(c.Request().Context(), actor, req.Token)
	if err != nil {
		return err
	}
	return success(c, res)
}

// postActionForm confirms a row action submitted from the HTML page and
// redirects back to the page it came from.
func (s *Server) postActionForm(c echo.Context) error {
	token := strings.TrimSpace(c.FormValue("token"))
	if token == "" {
		return c.HTML(http.StatusBadRequest, renderError(errTokenRequired))
	}
	page, err := strconv.Atoi(c.FormValue("paged"))
	if err != nil || page < 1 {
		page = 1
	}
	p, _ := principalFrom(c)
	actor := eventops.Actor{Principal: p, Surface: eventops.SurfaceHTTP}
	res, err := s.deps.Ops.Confirm(c.Request().Context(), actor, token)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			s.log.Error("http handler failed", logx.String("path", c.Request().URL.Path), logx.Err(err))
		}
		return c.HTML(code, renderError(err))
	}
	q := url.Values{"paged": {strconv.Itoa(page)}, "done": {string(res.Kind)}}
	return c.Redirect(http.StatusSeeOther, "/events?"+q.Encode())
}

// statusFor maps operation errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, event.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, authz.ErrNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, actiontoken.ErrInvalidToken):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		_ = failure(c, he.Code, msg)
		return
	}
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.Error("http handler failed", logx.String("path", c.Request().URL.Path), logx.Err(err))
	}
	_ = failure(c, code, err.Error())
}
