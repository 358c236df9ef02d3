// Package router dispatches Telegram updates to command and inline
// callback handlers on a bounded worker pool.
//
// Every update is resolved to a configured principal first; updates from
// unknown users are dropped without a reply.
package router

import (
	"context"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"crontrol/internal/authz"
	rtsup "crontrol/internal/runtime/supervisor"
	kit "crontrol/internal/transport"
	logx "crontrol/pkg/logx"
	"crontrol/pkg/tgui"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Timeout     time.Duration
	Handle      HandlerFunc
}

type CallbackHandlerFunc func(ctx context.Context, req *Request, payload string) error

// CallbackRoute handles "scope:action[:payload]" callback data.
// Mutating routes are rate limited per principal.
type CallbackRoute struct {
	Scope    string
	Action   string
	Mutating bool
	Timeout  time.Duration
	Handle   CallbackHandlerFunc
}

type Request struct {
	Update    kit.Update
	Chat      kit.ChatTarget
	FromID    int64
	Principal authz.Principal

	Command string
	Args    []string
	Payload string

	// MessageID is the message carrying the keyboard (callbacks only).
	MessageID  int
	CallbackID string
	ReqID      string

	Adapter kit.Adapter
	Logger  logx.Logger
}

// Ref returns the message a callback was pressed on.
func (r *Request) Ref() kit.MessageRef {
	return r.Chat.At(r.MessageID)
}

// PrincipalResolver maps a Telegram user to a configured principal.
type PrincipalResolver interface {
	ByTelegramID(id int64) (authz.Principal, bool)
}

type Router struct {
	log        logx.Logger
	adapter    kit.Adapter
	principals PrincipalResolver
	limits     *limiterSet

	mu       sync.RWMutex
	commands map[string]Command // name and aliases -> command
	ordered  []Command
	cbs      map[string]CallbackRoute // scope:action -> route

	jobs chan func()
}

func New(log logx.Logger, adapter kit.Adapter, principals PrincipalResolver) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		log:        log,
		adapter:    adapter,
		principals: principals,
		limits:     newLimiterSet(0),
		commands:   map[string]Command{},
		cbs:        map[string]CallbackRoute{},
		jobs:       make(chan func(), 256),
	}
}

// SetRateLimit bounds mutating callbacks per principal. perMin <= 0 disables it.
func (r *Router) SetRateLimit(perMin int) { r.limits.reset(perMin) }

// SetRegistry replaces the command and callback tables. /help is always added.
func (r *Router) SetRegistry(cmds []Command, routes []CallbackRoute) {
	cmds = append(cmds, Command{
		Name:        "help",
		Description: "list commands",
		Usage:       "/help",
		Handle: func(ctx context.Context, req *Request) error {
			_, err := tgui.New().HTML(r.helpHTML()).Build().Send(ctx, req.Adapter, req.Chat)
			return err
		},
	})

	byName := map[string]Command{}
	ordered := make([]Command, 0, len(cmds))
	for _, c := range cmds {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || c.Handle == nil {
			continue
		}
		c.Name = name
		ordered = append(ordered, c)
		byName[name] = c
		for _, a := range c.Aliases {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				if _, taken := byName[a]; !taken {
					byName[a] = c
				}
			}
		}
	}

	cbs := map[string]CallbackRoute{}
	for _, rt := range routes {
		if rt.Scope == "" || rt.Action == "" || rt.Handle == nil {
			continue
		}
		cbs[rt.Scope+":"+rt.Action] = rt
	}

	r.mu.Lock()
	r.commands = byName
	r.ordered = ordered
	r.cbs = cbs
	r.mu.Unlock()

	if up, ok := r.adapter.(kit.CommandMenuUpdater); ok {
		menu := menuCommands(ordered)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := up.UpdateMenuCommands(ctx, menu); err != nil {
				r.log.Warn("menu update failed", logx.Err(err))
			}
		}()
	}
}

// DispatchLoop consumes updates until ctx is done or updates is closed.
func (r *Router) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	workers := max(runtime.NumCPU(), 2)
	sup := rtsup.New(ctx,
		rtsup.WithLogger(r.log.Named("telegram.router")),
		rtsup.WithCancelOnError(false),
	)
	for i := 0; i < workers; i++ {
		sup.GoRestart("router.worker."+strconv.Itoa(i), r.work,
			rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			rtsup.WithPublishFirstError(true),
		)
	}
	r.log.Info("dispatcher started", logx.Int("workers", workers), logx.Int("queue_cap", cap(r.jobs)))

	defer func() {
		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = sup.Wait(wctx)
		r.log.Info("dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.Route(ctx, up)
		}
	}
}

func (r *Router) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-r.jobs:
			func() {
				defer func() {
					if p := recover(); p != nil {
						r.log.Error("panic in router job", logx.Any("panic", p), logx.String("stack", string(debug.Stack())))
					}
				}()
				job()
			}()
		}
	}
}

func (r *Router) enqueue(fn func()) bool {
	select {
	case r.jobs <- fn:
		return true
	default:
		return false
	}
}

// Route resolves one update and queues its handler.
func (r *Router) Route(ctx context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateMessage:
		if up.Message != nil {
			r.routeMessage(ctx, up)
		}
	case kit.UpdateCallback:
		if up.Callback != nil {
			r.routeCallback(ctx, up)
		}
	}
}

func (r *Router) principal(id int64) (authz.Principal, bool) {
	if r.principals == nil {
		return authz.Principal{}, false
	}
	return r.principals.ByTelegramID(id)
}

func (r *Router) routeMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	name, args, ok := parseCommand(msg.Text)
	if !ok {
		return
	}
	p, known := r.principal(msg.FromID)
	if !known {
		r.log.Debug("ignoring message from unknown user", logx.Int64("from_id", msg.FromID))
		return
	}

	r.mu.RLock()
	cmd, found := r.commands[name]
	r.mu.RUnlock()
	chat := msg.Target()
	if !found {
		_, _ = r.adapter.SendText(ctx, chat, "Unknown command. Try /help", nil)
		return
	}

	req := r.newRequest(up, chat, msg.FromID, p, "/"+cmd.Name)
	req.Args = args
	h := Chain(cmd.Handle, MWPanicRecover(r.log), MWRequestLog(r.log), MWTimeout(cmd.Timeout))
	if !r.enqueue(func() { _ = h(ctx, req) }) {
		_, _ = r.adapter.SendText(ctx, chat, "Busy, try again.", nil)
	}
}

func (r *Router) routeCallback(ctx context.Context, up kit.Update) {
	cb := up.Callback
	scope, action, payload, ok := tgui.ParseData(cb.Data)
	if !ok {
		return
	}
	p, known := r.principal(cb.FromID)
	if !known {
		r.log.Debug("ignoring callback from unknown user", logx.Int64("from_id", cb.FromID))
		return
	}

	r.mu.RLock()
	route, found := r.cbs[scope+":"+action]
	r.mu.RUnlock()
	if !found {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "This button has expired.")
		return
	}
	if route.Mutating && !r.limits.allow(p.Name) {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "Too many actions, slow down.")
		return
	}

	chat := cb.Target()
	req := r.newRequest(up, chat, cb.FromID, p, "cb:"+scope+":"+action)
	req.Payload = payload
	req.MessageID = cb.MessageID
	req.CallbackID = cb.ID

	handle := func(ctx context.Context, req *Request) error { return route.Handle(ctx, req, payload) }
	h := Chain(handle, MWPanicRecover(r.log), MWRequestLog(r.log), MWTimeout(route.Timeout))
	if !r.enqueue(func() {
		_ = h(ctx, req)
		// Stops the client spinner; handlers that answered already make this a no-op.
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "")
	}) {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "Busy, try again.")
	}
}

func (r *Router) newRequest(up kit.Update, chat kit.ChatTarget, from int64, p authz.Principal, cmd string) *Request {
	rid := newReqID()
	return &Request{
		Update:    up,
		Chat:      chat,
		FromID:    from,
		Principal: p,
		Command:   cmd,
		ReqID:     rid,
		Adapter:   r.adapter,
		Logger: r.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", chat.ChatID),
			logx.Int64("from_id", from),
			logx.String("principal", p.Name),
			logx.String("cmd", cmd),
		),
	}
}
