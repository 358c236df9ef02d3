package router

import (
	"strings"

	"crontrol/pkg/tgui"
)

func (r *Router) helpHTML() tgui.H {
	r.mu.RLock()
	cmds := append([]Command(nil), r.ordered...)
	r.mu.RUnlock()

	lines := []tgui.H{tgui.B("Commands")}
	for _, c := range cmds {
		line := tgui.Concat("• ", tgui.Code("/"+c.Name))
		if d := strings.TrimSpace(c.Description); d != "" {
			line = tgui.Concat(line, " ", tgui.Esc(d))
		}
		if u := strings.TrimSpace(c.Usage); u != "" && u != "/"+c.Name {
			line = tgui.Concat(line, " ", tgui.I(u))
		}
		lines = append(lines, line)
	}
	return tgui.JoinH("\n", lines...)
}
