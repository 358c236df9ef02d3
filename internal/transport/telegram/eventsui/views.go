package eventsui

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"crontrol/internal/actiontoken"
	"crontrol/internal/authz"
	"crontrol/internal/event"
	"crontrol/internal/eventops"
	"crontrol/internal/listtable"
	"crontrol/internal/schedule"
	"crontrol/internal/storage"
	"crontrol/internal/transport/telegram/router"
	logx "crontrol/pkg/logx"
	"crontrol/pkg/tgui"
)

const title = "Cron Events"

func expiredView() tgui.Message {
	kb := tgui.NewInline().Row(pageButton("📋 Open list", 1), closeButton())
	return tgui.New().Title("⌛", title).Line("This button has expired. Open the list again.").Inline(kb).Build()
}

func forbiddenView() tgui.Message {
	return tgui.New().Title("⛔", title).Line("You are not allowed to view scheduled events.").Build()
}

func errorView(err error, back tele.Btn) tgui.Message {
	kb := tgui.NewInline().Row(back, closeButton())
	return tgui.New().Title("⚠️", title).HTML(tgui.Warn(userMessage(err))).Inline(kb).Build()
}

// userMessage maps operation errors to short operator-facing text.
// Store failures surface verbatim.
func userMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "This event no longer exists. It may have already run or been deleted."
	case errors.Is(err, authz.ErrNotPermitted):
		return "You are not allowed to do that."
	case errors.Is(err, actiontoken.ErrInvalidToken):
		return "This confirmation is no longer valid. Open the event again."
	default:
		return err.Error()
	}
}

func (u *UI) listView(ctx context.Context, req *router.Request, page int) tgui.Message {
	if !canList(req) {
		return forbiddenView()
	}
	tbl := u.table(req)
	prep, err := tbl.Prepare(ctx, page)
	if err == nil && len(prep.Rows) == 0 && prep.Page.TotalItems > 0 {
		prep, err = tbl.Prepare(ctx, event.ClampPage(page, prep.Page.TotalPages))
	}
	if err != nil {
		req.Logger.Warn("event list failed", logx.Err(err))
		return errorView(err, pageButton("🔄 Retry", page))
	}

	b := tgui.New().Title("🗓️", title)
	if len(prep.Rows) == 0 {
		kb := tgui.NewInline().Row(pageButton("🔄 Refresh", 1), closeButton())
		return b.Line(tbl.EmptyStateMessage()).Inline(kb).Build()
	}

	p := prep.Page
	offset := (p.Number - 1) * p.Size
	numbers := make([]tele.Btn, 0, len(prep.Rows))
	for i, row := range prep.Rows {
		n := offset + i + 1
		hook := row.Cells[listtable.ColHook]
		if !row.Event.IsAdHoc() {
			hook = tgui.TruncEsc(row.Event.Hook, hookLabelMax)
		}
		b.HTML(tgui.Concat(tgui.B(strconv.Itoa(n)+"."), " ", hook))
		b.HTML(tgui.Concat("    ⏱ ", row.Cells[listtable.ColNext], " • ", row.Cells[listtable.ColRecurrence]))

		numbers = append(numbers, u.button(strconv.Itoa(n), actOpen, refOf(row.Event, p.Number)))
	}
	kb := tgui.NewInline().Grid(rowButtonsPerLine, numbers...)

	var nav []tele.Btn
	if p.HasPrev() {
		nav = append(nav, pageButton("◀️ Prev", p.Number-1))
	}
	nav = append(nav, pageButton("🔄 Refresh", p.Number))
	if p.HasNext() {
		nav = append(nav, pageButton("Next ▶️", p.Number+1))
	}
	kb.Row(nav...).Row(closeButton())

	b.Blank().Line(tgui.PageLabel(p.Number, p.Size, p.TotalItems))
	return b.Inline(kb).Build()
}

func (u *UI) detailView(ctx context.Context, req *router.Request, ref rowRef) tgui.Message {
	if !canList(req) {
		return forbiddenView()
	}
	back := pageButton("⬅️ Back", max(ref.Page, 1))
	ev, err := u.deps.Store.Get(ctx, ref.Hook, ref.Sig, ref.Time)
	if err != nil {
		return errorView(err, back)
	}
	tbl := u.table(req)
	actions, err := tbl.RenderRowActions(ev)
	if err != nil {
		return errorView(err, back)
	}

	b := tgui.New().
		HTML(tgui.Concat("🔧 ", tbl.RenderCell(ev, listtable.ColHook))).
		Blank().
		KV("Next Run", tbl.RenderCell(ev, listtable.ColNext)).
		KV("Recurrence", tbl.RenderCell(ev, listtable.ColRecurrence)).
		KV("Arguments", tbl.RenderCell(ev, listtable.ColArgs))
	if cbs := tbl.RenderCell(ev, listtable.ColActions); cbs != "" {
		b.KV("Actions", cbs)
	}
	if tbl.CoreHooks().Has(ev.Hook) {
		b.Blank().Line("Core event: it cannot be deleted.")
	}

	kb := tgui.NewInline()
	var row []tele.Btn
	for _, a := range actions {
		switch a.Kind {
		case authz.KindEdit:
			row = append(row, u.button("✏️ "+a.Label, actEdit, pick{Row: ref}))
		case authz.KindRun:
			row = append(row, u.button("▶️ "+a.Label, actAsk, pending{Row: ref, Kind: a.Kind, Token: a.Token}))
		case authz.KindDelete:
			row = append(row, u.button("🗑 "+a.Label, actAsk, pending{Row: ref, Kind: a.Kind, Token: a.Token}))
		}
	}
	kb.Row(row...).Row(back, closeButton())
	return b.Inline(kb).Build()
}

func (u *UI) confirmView(p pending, tok string) tgui.Message {
	q, yes := "Run %s now?", "✅ Yes, run now"
	if p.Kind == authz.KindDelete {
		q, yes = "Delete %s?", "🗑 Yes, delete"
	}
	name := tgui.TruncRunes(p.Row.Hook, hookLabelMax)
	kb := tgui.ConfirmInline(
		tgui.Btn(yes, tgui.Data(scope, actConfirm, tok)),
		u.button("✖️ Cancel", actOpen, p.Row),
	)
	b := tgui.New().Title("❓", "Confirm").Line(fmt.Sprintf(q, name))
	if p.Kind == authz.KindRun {
		b.Line("The event is moved to run at the next cron check.")
	}
	return b.Inline(kb).Build()
}

func (u *UI) perform(ctx context.Context, req *router.Request, p pending) tgui.Message {
	back := pageButton("📋 Back to list", max(p.Row.Page, 1))
	r := p.Row
	var (
		res eventops.Result
		err error
	)
	switch p.Kind {
	case authz.KindRun:
		res, err = u.deps.Ops.RunNow(ctx, u.actor(req), r.Hook, r.Sig, r.Time, p.Token)
	case authz.KindDelete:
		res, err = u.deps.Ops.Delete(ctx, u.actor(req), r.Hook, r.Sig, r.Time, p.Token)
	default:
		err = authz.ErrNotPermitted
	}
	if err != nil {
		return errorView(err, back)
	}

	kb := tgui.NewInline()
	b := tgui.New()
	switch p.Kind {
	case authz.KindRun:
		b.Title("✅", "Scheduled").Line(fmt.Sprintf("%s is now due and will run at the next cron check.", r.Hook))
		kb.Row(u.button("🔎 View event", actOpen, refOf(res.Event, r.Page)))
	case authz.KindDelete:
		b.Title("🗑", "Deleted").Line(fmt.Sprintf("%s was removed.", r.Hook))
	}
	kb.Row(back, closeButton())
	return b.Inline(kb).Build()
}

func (u *UI) pickerView(ctx context.Context, req *router.Request, p pick) tgui.Message {
	back := u.button("⬅️ Back", actOpen, p.Row)
	ev, err := u.deps.Store.Get(ctx, p.Row.Hook, p.Row.Sig, p.Row.Time)
	if err != nil {
		return errorView(err, back)
	}
	tbl := u.table(req)
	if err := authz.Check(authz.KindEdit, ev, tbl.Capabilities(), tbl.CoreHooks()); err != nil {
		return errorView(err, back)
	}

	all := u.deps.Schedules.Sorted()
	sub, hasPrev, hasNext := tgui.PaginateSlice(all, p.PickPage, pickerPageSize)

	kb := tgui.NewInline()
	for _, s := range sub {
		label := s.Label()
		if s.Name == ev.Schedule {
			label = "✓ " + label
		}
		kb.Row(u.button(label, actSet, pick{Row: p.Row, Schedule: s.Name}))
	}
	oneOff := "Non-repeating"
	if !ev.Recurring() {
		oneOff = "✓ " + oneOff
	}
	kb.Row(u.button(oneOff, actSet, pick{Row: p.Row}))

	var nav []tele.Btn
	if hasPrev {
		nav = append(nav, u.button("◀️", actEdit, pick{Row: p.Row, PickPage: p.PickPage - 1}))
	}
	if hasNext {
		nav = append(nav, u.button("▶️", actEdit, pick{Row: p.Row, PickPage: p.PickPage + 1}))
	}
	kb.Row(nav...).Row(back, closeButton())

	return tgui.New().
		Title("✏️", "Change recurrence").
		HTML(tgui.Concat(tgui.B("Event"), ": ", tbl.RenderCell(ev, listtable.ColHook))).
		HTML(tgui.Concat(tgui.B("Current"), ": ", tbl.RenderCell(ev, listtable.ColRecurrence))).
		Inline(kb).
		Build()
}

func (u *UI) reschedule(ctx context.Context, req *router.Request, p pick) tgui.Message {
	back := u.button("⬅️ Back", actOpen, p.Row)
	var sched schedule.Schedule
	if p.Schedule != "" {
		s, ok := u.deps.Schedules.Get(p.Schedule)
		if !ok {
			return errorView(&schedule.UnknownError{Name: p.Schedule}, back)
		}
		sched = s
	}
	res, err := u.deps.Ops.Reschedule(ctx, u.actor(req), p.Row.Hook, p.Row.Sig, p.Row.Time, sched)
	if err != nil {
		return errorView(err, back)
	}
	return u.detailView(ctx, req, refOf(res.Event, p.Row.Page))
}
