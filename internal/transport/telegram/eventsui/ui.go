// Package eventsui is the Telegram surface of the event list.
//
// /events [page] renders one page of events. Each row opens a detail view
// carrying the actions the caller may take. Run and Delete ask for
// confirmation; Edit picks a new recurrence. Callback payloads larger than
// a page number live in a TokenStore so callback_data stays under 64 bytes.
package eventsui

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"crontrol/internal/authz"
	"crontrol/internal/eventops"
	"crontrol/internal/listtable"
	"crontrol/internal/schedule"
	"crontrol/internal/storage"
	"crontrol/internal/transport/telegram/router"
	logx "crontrol/pkg/logx"
	"crontrol/pkg/tgui"
)

const scope = "ev"

// Callback actions under scope.
const (
	actPage    = "pg"  // payload: page number
	actOpen    = "op"  // payload: rowRef token
	actAsk     = "ask" // payload: pending token
	actConfirm = "do"  // payload: pending token (single use)
	actEdit    = "ed"  // payload: pick token
	actSet     = "set" // payload: pick token
	actClose   = "x"
)

const (
	rowButtonsPerLine = 5
	pickerPageSize    = 6
	hookLabelMax      = 40
)

type Deps struct {
	Store     storage.Store
	Callbacks listtable.CallbackLookup
	Schedules *schedule.Registry
	Tokens    listtable.TokenIssuer
	Ops       *eventops.Service
	// StateTTL bounds how long keyboards stay usable (default 15m).
	StateTTL time.Duration
	// Now overrides the clock used for relative times.
	Now func() time.Time
}

// Settings are the reloadable presentation options.
type Settings struct {
	PageSize int
	Location *time.Location
}

type UI struct {
	deps     Deps
	log      logx.Logger
	states   *tgui.TokenStore
	settings atomic.Pointer[Settings]
}

func New(deps Deps, log logx.Logger) *UI {
	if log.IsZero() {
		log = logx.Nop()
	}
	u := &UI{deps: deps, log: log, states: tgui.NewTokenStore(deps.StateTTL, 0)}
	u.Apply(Settings{})
	return u
}

// Apply swaps the presentation settings; safe during hot reload.
func (u *UI) Apply(s Settings) {
	if s.Location == nil {
		s.Location = time.Local
	}
	u.settings.Store(&s)
}

func (u *UI) Commands() []router.Command {
	return []router.Command{{
		Name:        "events",
		Aliases:     []string{"cron", "crons"},
		Description: "list scheduled cron events",
		Usage:       "/events [page]",
		Timeout:     20 * time.Second,
		Handle:      u.handleCommand,
	}}
}

func (u *UI) Routes() []router.CallbackRoute {
	return []router.CallbackRoute{
		{Scope: scope, Action: actPage, Handle: u.handlePage},
		{Scope: scope, Action: actOpen, Handle: u.handleOpen},
		{Scope: scope, Action: actAsk, Handle: u.handleAsk},
		{Scope: scope, Action: actConfirm, Mutating: true, Handle: u.handleConfirm},
		{Scope: scope, Action: actEdit, Handle: u.handleEdit},
		{Scope: scope, Action: actSet, Mutating: true, Handle: u.handleSet},
		{Scope: scope, Action: actClose, Handle: u.handleClose},
	}
}

// table builds the request-scoped list table for the caller.
func (u *UI) table(req *router.Request) *listtable.Table {
	s := u.settings.Load()
	return listtable.New(listtable.Deps{
		Store:     u.deps.Store,
		Callbacks: u.deps.Callbacks,
		Schedules: u.deps.Schedules,
		Tokens:    u.deps.Tokens,
		PageSize:  s.PageSize,
		Location:  s.Location,
		Now:       u.deps.Now,
	}, req.Principal.Capabilities)
}

func (u *UI) actor(req *router.Request) eventops.Actor {
	return eventops.Actor{Principal: req.Principal, Surface: eventops.SurfaceTelegram}
}

func canList(req *router.Request) bool {
	return req.Principal.Capabilities.Has(authz.CapManageOptions)
}

// respond edits the pressed message for callbacks and sends otherwise.
func (u *UI) respond(ctx context.Context, req *router.Request, msg tgui.Message) error {
	if req.CallbackID != "" {
		return msg.Edit(ctx, req.Adapter, req.Ref(), req.Chat)
	}
	_, err := msg.Send(ctx, req.Adapter, req.Chat)
	return err
}

func (u *UI) handleCommand(ctx context.Context, req *router.Request) error {
	page := 1
	if len(req.Args) > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(req.Args[0])); err == nil {
			page = n
		}
	}
	return u.respond(ctx, req, u.listView(ctx, req, page))
}

func (u *UI) handlePage(ctx context.Context, req *router.Request, payload string) error {
	page, err := strconv.Atoi(payload)
	if err != nil {
		page = 1
	}
	return u.respond(ctx, req, u.listView(ctx, req, page))
}

func (u *UI) handleOpen(ctx context.Context, req *router.Request, payload string) error {
	var ref rowRef
	if err := u.states.GetJSON(payload, &ref); err != nil {
		return u.respond(ctx, req, expiredView())
	}
	return u.respond(ctx, req, u.detailView(ctx, req, ref))
}

func (u *UI) handleAsk(ctx context.Context, req *router.Request, payload string) error {
	if !canList(req) {
		return u.respond(ctx, req, forbiddenView())
	}
	var p pending
	if err := u.states.GetJSON(payload, &p); err != nil {
		return u.respond(ctx, req, expiredView())
	}
	return u.respond(ctx, req, u.confirmView(p, payload))
}

func (u *UI) handleConfirm(ctx context.Context, req *router.Request, payload string) error {
	if !canList(req) {
		return u.respond(ctx, req, forbiddenView())
	}
	raw, ok := u.states.Take(payload)
	if !ok {
		return u.respond(ctx, req, expiredView())
	}
	var p pending
	if err := unmarshalState(raw, &p); err != nil {
		return u.respond(ctx, req, expiredView())
	}
	return u.respond(ctx, req, u.perform(ctx, req, p))
}

func (u *UI) handleEdit(ctx context.Context, req *router.Request, payload string) error {
	if !canList(req) {
		return u.respond(ctx, req, forbiddenView())
	}
	var p pick
	if err := u.states.GetJSON(payload, &p); err != nil {
		return u.respond(ctx, req, expiredView())
	}
	return u.respond(ctx, req, u.pickerView(ctx, req, p))
}

func (u *UI) handleSet(ctx context.Context, req *router.Request, payload string) error {
	if !canList(req) {
		return u.respond(ctx, req, forbiddenView())
	}
	var p pick
	if err := u.states.GetJSON(payload, &p); err != nil {
		return u.respond(ctx, req, expiredView())
	}
	return u.respond(ctx, req, u.reschedule(ctx, req, p))
}

func (u *UI) handleClose(ctx context.Context, req *router.Request, _ string) error {
	return u.respond(ctx, req, tgui.New().Line("Closed.").Build())
}

// button stores state and returns a callback button carrying its token.
func (u *UI) button(text, action string, state any) tele.Btn {
	tok, err := u.states.PutJSON(state)
	if err != nil {
		u.log.Warn("state encode failed", logx.Err(err))
		return tgui.Btn(text, tgui.Data(scope, actClose, ""))
	}
	return tgui.Btn(text, tgui.Data(scope, action, tok))
}

func pageButton(text string, page int) tele.Btn {
	return tgui.Btn(text, tgui.Data(scope, actPage, strconv.Itoa(page)))
}

func closeButton() tele.Btn {
	return tgui.Btn("✖️ Close", tgui.Data(scope, actClose, ""))
}
