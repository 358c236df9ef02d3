package router

import (
	"context"
	"strings"
	"testing"

	"crontrol/internal/authz"
	kit "crontrol/internal/transport"
	"crontrol/internal/transport/transporttest"
	logx "crontrol/pkg/logx"
)

func newTestRouter(t *testing.T) (*Router, *transporttest.Recorder, *[]string) {
	t.Helper()
	rec := &transporttest.Recorder{}
	dir := authz.NewDirectory([]authz.Principal{{Name: "ops", TelegramID: 42, Capabilities: authz.NewSet(authz.CapManageOptions)}})
	r := New(logx.Nop(), rec, dir)

	var calls []string
	r.SetRegistry(
		[]Command{{
			Name:    "events",
			Aliases: []string{"ev"},
			Handle: func(_ context.Context, req *Request) error {
				calls = append(calls, "events:"+req.Principal.Name+":"+strings.Join(req.Args, ","))
				return nil
			},
		}},
		[]CallbackRoute{{
			Scope:    "ev",
			Action:   "run",
			Mutating: true,
			Handle: func(_ context.Context, req *Request, payload string) error {
				calls = append(calls, "run:"+payload)
				return nil
			},
		}},
	)
	return r, rec, &calls
}

// drain runs queued jobs inline.
func drain(r *Router) {
	for {
		select {
		case job := <-r.jobs:
			job()
		default:
			return
		}
	}
}

func msg(from int64, text string) kit.Update {
	return kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: 1, FromID: from, Text: text}}
}

func cb(from int64, id, data string) kit.Update {
	return kit.Update{Kind: kit.UpdateCallback, Callback: &kit.Callback{ID: id, ChatID: 1, FromID: from, MessageID: 9, Data: data}}
}

func TestRouteCommandForKnownPrincipal(t *testing.T) {
	t.Parallel()

	r, _, calls := newTestRouter(t)
	ctx := context.Background()
	r.Route(ctx, msg(42, "/events@crontrol_bot 2"))
	r.Route(ctx, msg(42, "/ev"))
	drain(r)

	want := []string{"events:ops:2", "events:ops:"}
	if strings.Join(*calls, "|") != strings.Join(want, "|") {
		t.Fatalf("calls = %q", *calls)
	}
}

func TestUnknownPrincipalIsIgnored(t *testing.T) {
	t.Parallel()

	r, rec, calls := newTestRouter(t)
	ctx := context.Background()
	r.Route(ctx, msg(7, "/events"))
	r.Route(ctx, cb(7, "c1", "ev:run:x"))
	drain(r)

	if len(*calls) != 0 || len(rec.Sent()) != 0 || len(rec.Answers("c1")) != 0 {
		t.Fatalf("unknown user got a response: calls=%v sent=%v", *calls, rec.Sent())
	}
}

func TestUnknownCommandAndCallback(t *testing.T) {
	t.Parallel()

	r, rec, _ := newTestRouter(t)
	ctx := context.Background()
	r.Route(ctx, msg(42, "/nope"))
	r.Route(ctx, cb(42, "c2", "ev:nope"))
	r.Route(ctx, msg(42, "plain text"))

	last, ok := rec.Last()
	if !ok || !strings.Contains(last.Text, "Unknown command") {
		t.Fatalf("last = %+v", last)
	}
	if len(rec.Sent()) != 1 {
		t.Fatalf("plain text should be ignored, sent = %d", len(rec.Sent()))
	}
	if a := rec.Answers("c2"); len(a) != 1 || !strings.Contains(a[0], "expired") {
		t.Fatalf("answers = %q", a)
	}
}

func TestMutatingCallbacksAreRateLimited(t *testing.T) {
	t.Parallel()

	r, rec, calls := newTestRouter(t)
	r.SetRateLimit(2)
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		r.Route(ctx, cb(42, id, "ev:run:p"+string(rune('0'+i))))
	}
	drain(r)

	if len(*calls) != 2 {
		t.Fatalf("calls = %q", *calls)
	}
	if a := rec.Answers("c"); len(a) != 1 || !strings.Contains(a[0], "slow down") {
		t.Fatalf("answers = %q", a)
	}
}

func TestHelpListsCommands(t *testing.T) {
	t.Parallel()

	r, rec, _ := newTestRouter(t)
	r.Route(context.Background(), msg(42, "/help"))
	drain(r)

	last, ok := rec.Last()
	if !ok || !strings.Contains(last.Text, "<code>/events</code>") || !strings.Contains(last.Text, "<code>/help</code>") {
		t.Fatalf("help = %+v", last)
	}
	if last.Opt.ParseMode != "HTML" {
		t.Fatalf("parse mode = %q", last.Opt.ParseMode)
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		name string
		args string
		ok   bool
	}{
		{"/events", "events", "", true},
		{"/Events@bot 3", "events", "3", true},
		{`/add "a b" c`, "add", "a b|c", true},
		{"hello", "", "", false},
		{"/", "", "", false},
	}
	for _, tt := range tests {
		name, args, ok := parseCommand(tt.in)
		if name != tt.name || strings.Join(args, "|") != tt.args || ok != tt.ok {
			t.Fatalf("parseCommand(%q) = %q %q %v", tt.in, name, args, ok)
		}
	}
}

func TestSanitizeCommand(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"events", "events"},
		{"Event-List", "event_list"},
		{"9lives", "cmd_9lives"},
		{"  a  b  ", "a_b"},
		{"ünïcode", "ncode"},
		{strings.Repeat("x", 40), strings.Repeat("x", 32)},
	}
	for _, tt := range tests {
		if got := sanitizeCommand(tt.in); got != tt.want {
			t.Fatalf("sanitizeCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
