// Package listtable renders the event list: columns, per-cell display
// values and the row actions a principal may take.
package listtable

import (
	"context"
	"fmt"
	"time"

	"crontrol/internal/authz"
	"crontrol/internal/callbacks"
	"crontrol/internal/event"
	"crontrol/pkg/tgui"
)

// Column keys.
const (
	ColCheckbox   = "cb"
	ColHook       = "hook"
	ColArgs       = "args"
	ColActions    = "actions"
	ColNext       = "next"
	ColRecurrence = "recurrence"
)

const emptyState = "There are currently no scheduled cron events."

type Column struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// CallbackLookup lists the callbacks attached to a hook.
type CallbackLookup interface {
	Lookup(hook string) []callbacks.Callback
}

// ScheduleResolver maps an event's recurrence to a display label.
type ScheduleResolver interface {
	Resolve(ev event.Event) (string, error)
}

// TokenIssuer signs confirmation tokens for run/delete.
type TokenIssuer interface {
	Sign(kind, hook, sig string, at int64) (string, error)
}

// Deps are the long-lived collaborators shared by every request.
type Deps struct {
	Store     event.Store
	Callbacks CallbackLookup
	Schedules ScheduleResolver
	Tokens    TokenIssuer

	PageSize int
	Location *time.Location
	// Now overrides the clock used for relative times.
	Now func() time.Time
}

// Table is request-scoped: it captures the principal's capabilities and
// the core hook set at construction.
type Table struct {
	deps      Deps
	caps      authz.Capabilities
	coreHooks event.HookSet
	lister    *event.Lister
}

// New builds a table for one request.
func New(deps Deps, caps authz.Capabilities) *Table {
	if caps == nil {
		caps = authz.None
	}
	var core event.HookSet
	if deps.Store != nil {
		core = deps.Store.CoreHooks()
	}
	return &Table{
		deps:      deps,
		caps:      caps,
		coreHooks: core,
		lister:    event.NewLister(deps.Store),
	}
}

// Columns returns the ordered column set.
func (t *Table) Columns() []Column {
	return []Column{
		{Key: ColCheckbox, Title: ""},
		{Key: ColHook, Title: "Hook Name"},
		{Key: ColArgs, Title: "Arguments"},
		{Key: ColActions, Title: "Actions"},
		{Key: ColNext, Title: "Next Run"},
		{Key: ColRecurrence, Title: "Recurrence"},
	}
}

// Row is one rendered event.
type Row struct {
	Event   event.Event       `json:"event"`
	Cells   map[string]tgui.H `json:"cells"`
	Actions []authz.Action    `json:"actions"`
}

// Prepared is one page of rendered rows.
type Prepared struct {
	Page event.Page `json:"pagination"`
	Rows []Row      `json:"rows"`
}

// Prepare fetches page (1-based) and renders every row on it.
func (t *Table) Prepare(ctx context.Context, page int) (Prepared, error) {
	p, err := t.lister.List(ctx, page, t.deps.PageSize)
	if err != nil {
		return Prepared{}, err
	}
	out := Prepared{Page: p, Rows: make([]Row, 0, len(p.Events))}
	for _, ev := range p.Events {
		actions, err := t.RenderRowActions(ev)
		if err != nil {
			return Prepared{}, err
		}
		cells := make(map[string]tgui.H, 6)
		for _, c := range t.Columns() {
			cells[c.Key] = t.RenderCell(ev, c.Key)
		}
		out.Rows = append(out.Rows, Row{Event: ev, Cells: cells, Actions: actions})
	}
	return out, nil
}

// RenderCell renders one column of ev. Unknown keys render empty.
func (t *Table) RenderCell(ev event.Event, key string) tgui.H {
	switch key {
	case ColCheckbox:
		return t.checkboxCell(ev)
	case ColHook:
		return hookCell(ev)
	case ColArgs:
		return argsCell(ev)
	case ColActions:
		return t.actionsCell(ev)
	case ColNext:
		return t.nextCell(ev)
	case ColRecurrence:
		return t.recurrenceCell(ev)
	default:
		return ""
	}
}

// RenderRowActions returns the permitted actions with confirmation tokens
// attached to those that need one.
func (t *Table) RenderRowActions(ev event.Event) ([]authz.Action, error) {
	actions := authz.ActionsFor(ev, t.caps, t.coreHooks)
	if t.deps.Tokens == nil {
		return actions, nil
	}
	for i := range actions {
		a := &actions[i]
		if !a.RequiresConfirmation {
			continue
		}
		tok, err := t.deps.Tokens.Sign(string(a.Kind), a.Hook, a.Sig, a.Time)
		if err != nil {
			return nil, fmt.Errorf("sign %s token for %s: %w", a.Kind, ev.Key(), err)
		}
		a.Token = tok
	}
	return actions, nil
}

// EmptyStateMessage is shown when no events exist.
func (t *Table) EmptyStateMessage() string { return emptyState }

// CoreHooks exposes the set captured for this request.
func (t *Table) CoreHooks() event.HookSet { return t.coreHooks }

// Capabilities exposes the principal's capabilities for this request.
func (t *Table) Capabilities() authz.Capabilities { return t.caps }
