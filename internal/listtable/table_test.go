package listtable

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"crontrol/internal/authz"
	"crontrol/internal/callbacks"
	"crontrol/internal/event"
	"crontrol/internal/schedule"
	"crontrol/pkg/tgui"
)

type memStore struct {
	events []event.Event
	core   event.HookSet
	err    error
}

func (s memStore) FetchAll(context.Context) ([]event.Event, error) { return s.events, s.err }
func (s memStore) CoreHooks() event.HookSet                        { return s.core }

type fakeTokens struct{}

func (fakeTokens) Sign(kind, hook, sig string, at int64) (string, error) {
	return kind + "|" + hook + "|" + sig + "|" + strconv.FormatInt(at, 10), nil
}

var fixedNow = time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC) // 1700000000

func backupJob() {}

func newTable(t *testing.T, store memStore, caps authz.Capabilities) *Table {
	t.Helper()
	cbs := callbacks.NewRegistry()
	if err := cbs.Add("my_task", 10, backupJob); err != nil {
		t.Fatalf("Add: %v", err)
	}
	cbs.AddError("my_task", 20, "missing_function", errors.New("Function does not exist"))
	return New(Deps{
		Store:     store,
		Callbacks: cbs,
		Schedules: schedule.NewRegistry(schedule.Builtins()...),
		Tokens:    fakeTokens{},
		PageSize:  50,
		Location:  time.UTC,
		Now:       func() time.Time { return fixedNow },
	}, caps)
}

func TestMyTaskHourlyExample(t *testing.T) {
	t.Parallel()

	ev := event.Event{Hook: "my_task", Sig: "abc123", Time: 1700000000, Schedule: "hourly"}
	tbl := newTable(t, memStore{events: []event.Event{ev}}, authz.NewSet(authz.CapManageOptions))

	if got := tbl.RenderCell(ev, ColRecurrence); got != "Once Hourly" {
		t.Fatalf("recurrence = %q", got)
	}
	if got := tbl.RenderCell(ev, ColArgs); got != "<i>None</i>" {
		t.Fatalf("args = %q", got)
	}
	if got := tbl.RenderCell(ev, ColHook); got != "my_task" {
		t.Fatalf("hook = %q", got)
	}
	if got := tbl.RenderCell(ev, ColNext); got != "2023-11-14 22:13:20 (now)" {
		t.Fatalf("next = %q", got)
	}
	want := `<input type="checkbox" name="delete[1700000000][my_task]" value="abc123">`
	if got := tbl.RenderCell(ev, ColCheckbox); string(got) != want {
		t.Fatalf("cb = %q", got)
	}
}

func TestCheckboxEncodesHook(t *testing.T) {
	t.Parallel()

	ev := event.Event{Hook: "a b:c@d&e=f+g$h/i~j", Sig: "s", Time: 5}
	tbl := newTable(t, memStore{events: []event.Event{ev}}, authz.NewSet(authz.CapManageOptions))

	want := `<input type="checkbox" name="delete[5][a%20b%3Ac%40d%26e%3Df%2Bg%24h%2Fi~j]" value="s">`
	if got := tbl.RenderCell(ev, ColCheckbox); string(got) != want {
		t.Fatalf("cb = %q", got)
	}
}

func TestAdHocBackupExample(t *testing.T) {
	t.Parallel()

	ev := event.Event{Hook: event.AdHocHook, Sig: "x", Time: 1700000000, Args: event.Named("name", "Backup", "code", "<?php echo 1;")}
	tbl := newTable(t, memStore{events: []event.Event{ev}}, nil)

	tests := []struct {
		key  string
		want tgui.H
	}{
		{ColHook, "<i>PHP Cron (Backup)</i>"},
		{ColArgs, "<i>PHP Code</i>"},
		{ColRecurrence, "Non-repeating"},
		{ColActions, "<i>WP Crontrol</i>"},
	}
	for _, tt := range tests {
		if got := tbl.RenderCell(ev, tt.key); got != tt.want {
			t.Fatalf("%s = %q, want %q", tt.key, got, tt.want)
		}
	}
	if tgui.Plain(tbl.RenderCell(ev, ColHook)) != "PHP Cron (Backup)" {
		t.Fatalf("plain hook = %q", tgui.Plain(tbl.RenderCell(ev, ColHook)))
	}

	unnamed := event.Event{Hook: event.AdHocHook, Args: event.Named("code", "echo 1;")}
	if got := tbl.RenderCell(unnamed, ColHook); got != "<i>PHP Cron</i>" {
		t.Fatalf("unnamed hook = %q", got)
	}

	actions, err := tbl.RenderRowActions(ev)
	if err != nil {
		t.Fatalf("RenderRowActions: %v", err)
	}
	if len(actions) != 1 || actions[0].Kind != authz.KindRun {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestArgsAndCallbacksRendering(t *testing.T) {
	t.Parallel()

	ev := event.Event{Hook: "my_task", Sig: "s", Time: 1700000000, Args: event.Positional("https://example.com/a", "<b>")}
	tbl := newTable(t, memStore{}, authz.NewSet(authz.CapEditFiles))

	wantArgs := "<pre>[\n    &#34;https://example.com/a&#34;,\n    &#34;&lt;b&gt;&#34;\n]</pre>"
	if got := tbl.RenderCell(ev, ColArgs); string(got) != wantArgs {
		t.Fatalf("args = %q\nwant  %q", got, wantArgs)
	}

	got := tbl.RenderCell(ev, ColActions)
	wantCallbacks := "<pre>listtable.backupJob()</pre><pre>missing_function\n⚠️ Function does not exist</pre>"
	if string(got) != wantCallbacks {
		t.Fatalf("actions = %q", got)
	}

	if got := tbl.RenderCell(event.Event{Hook: "nobody_listens"}, ColActions); got != "" {
		t.Fatalf("no callbacks should render empty, got %q", got)
	}
	if got := tbl.RenderCell(ev, "bogus"); got != "" {
		t.Fatalf("unknown column = %q", got)
	}
}

func TestNextRunRelative(t *testing.T) {
	t.Parallel()

	tbl := newTable(t, memStore{}, nil)
	past := event.Event{Hook: "h", Time: fixedNow.Add(-2 * time.Hour).Unix()}
	future := event.Event{Hook: "h", Time: fixedNow.Add(3 * time.Hour).Unix()}

	if got := tbl.RenderCell(past, ColNext); got != "2023-11-14 20:13:20 (2 hours ago)" {
		t.Fatalf("past = %q", got)
	}
	if got := tbl.RenderCell(future, ColNext); got != "2023-11-15 01:13:20 (3 hours from now)" {
		t.Fatalf("future = %q", got)
	}
}

func TestRecurrenceUnknownWarns(t *testing.T) {
	t.Parallel()

	tbl := newTable(t, memStore{}, nil)
	got := tbl.RenderCell(event.Event{Hook: "h", Schedule: "every_<3>_minutes"}, ColRecurrence)
	if got != "⚠️ Unknown (every_&lt;3&gt;_minutes)" {
		t.Fatalf("recurrence = %q", got)
	}
}

func TestCoreHookRow(t *testing.T) {
	t.Parallel()

	ev := event.Event{Hook: "wp_version_check", Sig: "s", Time: 5}
	tbl := newTable(t, memStore{core: event.NewHookSet("wp_version_check")}, authz.NewSet(authz.CapEditFiles))

	if got := tbl.RenderCell(ev, ColCheckbox); got != "" {
		t.Fatalf("core hook checkbox = %q", got)
	}
	actions, err := tbl.RenderRowActions(ev)
	if err != nil {
		t.Fatalf("RenderRowActions: %v", err)
	}
	for _, a := range actions {
		if a.Kind == authz.KindDelete {
			t.Fatal("core hook got delete")
		}
		if a.Kind == authz.KindRun && a.Token != "run|wp_version_check|s|5" {
			t.Fatalf("run token = %q", a.Token)
		}
		if a.Kind == authz.KindEdit && a.Token != "" {
			t.Fatalf("edit should carry no token: %q", a.Token)
		}
	}
}

func TestPreparePagesAndEmptyState(t *testing.T) {
	t.Parallel()

	events := make([]event.Event, 120)
	for i := range events {
		events[i] = event.Event{Hook: "h" + strconv.Itoa(i), Sig: strconv.Itoa(i), Time: int64(1700000000 + i)}
	}
	tbl := newTable(t, memStore{events: events}, nil)

	p, err := tbl.Prepare(context.Background(), 3)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(p.Rows) != 20 || p.Page.TotalPages != 3 || p.Rows[0].Event.Sig != "100" {
		t.Fatalf("page = %+v rows=%d", p.Page, len(p.Rows))
	}
	if len(p.Rows[0].Cells) != len(tbl.Columns()) {
		t.Fatalf("cells = %d", len(p.Rows[0].Cells))
	}

	empty := newTable(t, memStore{}, nil)
	p, err = empty.Prepare(context.Background(), 1)
	if err != nil || len(p.Rows) != 0 {
		t.Fatalf("empty Prepare = %+v, %v", p, err)
	}
	if !strings.HasPrefix(empty.EmptyStateMessage(), "There are currently no scheduled cron events") {
		t.Fatalf("empty message = %q", empty.EmptyStateMessage())
	}

	broken := newTable(t, memStore{err: errors.New("io")}, nil)
	if _, err := broken.Prepare(context.Background(), 1); !errors.Is(err, event.ErrStoreUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestColumns(t *testing.T) {
	t.Parallel()

	cols := New(Deps{}, nil).Columns()
	var titles []string
	for _, c := range cols {
		titles = append(titles, c.Key+"="+c.Title)
	}
	want := "cb=,hook=Hook Name,args=Arguments,actions=Actions,next=Next Run,recurrence=Recurrence"
	if strings.Join(titles, ",") != want {
		t.Fatalf("columns = %s", strings.Join(titles, ","))
	}
}
