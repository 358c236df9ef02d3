package listtable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"crontrol/internal/event"
	"crontrol/pkg/tgui"
)

const nextRunLayout = "2006-01-02 15:04:05"

// hookCell labels user-authored code events by their optional name.
func hookCell(ev event.Event) tgui.H {
	if !ev.IsAdHoc() {
		return tgui.Esc(ev.Hook)
	}
	if name := adHocName(ev.Args); name != "" {
		return tgui.I(fmt.Sprintf("PHP Cron (%s)", name))
	}
	return tgui.I("PHP Cron")
}

// adHocName reads "name" from the args, or from a leading object argument.
func adHocName(args event.Args) string {
	if n := args.String("name"); n != "" {
		return n
	}
	if v, ok := args.Get("0"); ok {
		if m, ok := v.(map[string]any); ok {
			if s, ok := m["name"].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// argsCell never dumps ad-hoc args; they may hold a full code body.
func argsCell(ev event.Event) tgui.H {
	if ev.IsAdHoc() {
		return tgui.I("PHP Code")
	}
	if len(ev.Args) == 0 {
		return tgui.I("None")
	}
	s, err := prettyArgs(ev.Args)
	if err != nil {
		return tgui.Warn(err.Error())
	}
	return tgui.Pre(s)
}

// prettyArgs renders args as indented JSON with slashes and HTML left as-is.
func prettyArgs(args event.Args) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(args); err != nil {
		return "", fmt.Errorf("encode args: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func (t *Table) actionsCell(ev event.Event) tgui.H {
	if ev.IsAdHoc() {
		return tgui.I("WP Crontrol")
	}
	if t.deps.Callbacks == nil {
		return ""
	}
	cbs := t.deps.Callbacks.Lookup(ev.Hook)
	parts := make([]tgui.H, 0, len(cbs))
	for _, cb := range cbs {
		if cb.Err != nil {
			parts = append(parts, tgui.Pre(cb.Descriptor()+"\n⚠️ "+cb.Err.Error()))
			continue
		}
		parts = append(parts, tgui.Pre(cb.Descriptor()))
	}
	return tgui.Concat(parts...)
}

func (t *Table) nextCell(ev event.Event) tgui.H {
	at := ev.NextRun().In(t.loc())
	rel := humanize.RelTime(at, t.now(), "ago", "from now")
	return tgui.Esc(fmt.Sprintf("%s (%s)", at.Format(nextRunLayout), rel))
}

func (t *Table) recurrenceCell(ev event.Event) tgui.H {
	if !ev.Recurring() {
		return tgui.Esc("Non-repeating")
	}
	if t.deps.Schedules == nil {
		return tgui.Warn("Unknown (" + ev.Schedule + ")")
	}
	label, err := t.deps.Schedules.Resolve(ev)
	if err != nil {
		return tgui.Warn(err.Error())
	}
	return tgui.Esc(label)
}

// checkboxCell is the bulk-delete selector; core hooks never get one.
func (t *Table) checkboxCell(ev event.Event) tgui.H {
	if t.coreHooks.Has(ev.Hook) {
		return ""
	}
	return tgui.Raw(fmt.Sprintf(
		`<input type="checkbox" name="delete[%d][%s]" value="%s">`,
		ev.Time,
		html.EscapeString(rawURLEncode(ev.Hook)),
		html.EscapeString(ev.Sig),
	))
}

// rawURLEncode percent-encodes everything outside [A-Za-z0-9-_.~], spaces
// included.
func rawURLEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func (t *Table) loc() *time.Location {
	if t.deps.Location != nil {
		return t.deps.Location
	}
	return time.Local
}

func (t *Table) now() time.Time {
	if t.deps.Now != nil {
		return t.deps.Now()
	}
	return time.Now()
}
