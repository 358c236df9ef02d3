package httpapi

import (
	"bytes"
	"html/template"
	"strconv"

	"crontrol/internal/authz"
	"crontrol/internal/listtable"
	"crontrol/pkg/tgui"
)

var pageTmpl = template.Must(template.New("events").Funcs(template.FuncMap{
	"cell": func(h tgui.H) template.HTML { return template.HTML(h) },
}).Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Cron Events</title></head>
<body>
<h1>Cron Events</h1>
{{- if .Notice}}
<p role="status">{{.Notice}}</p>
{{- end}}
{{- if not .Rows}}
<p>{{.Empty}}</p>
{{- else}}
<table>
<thead><tr>{{range .Columns}}<th>{{.Title}}</th>{{end}}<th></th></tr></thead>
<tbody>
{{- range .Rows}}
<tr>
{{- $row := .}}{{range $.Columns}}<td>{{cell (index $row.Cells .Key)}}</td>{{end}}
<td>{{range $row.Actions}}{{if .Token}}<form method="post" action="/events/actions"><input type="hidden" name="token" value="{{.Token}}"><input type="hidden" name="paged" value="{{$.Page}}"><button type="submit">{{.Label}}</button></form>{{end}}{{end}}</td>
</tr>
{{- end}}
</tbody>
</table>
<p>{{.Label}}</p>
<nav>{{if .Prev}}<a href="?paged={{.Prev}}">&laquo; Previous</a>{{end}} {{if .Next}}<a href="?paged={{.Next}}">Next &raquo;</a>{{end}}</nav>
{{- end}}
</body>
</html>
`))

// notices are shown after a form action redirects back to the list.
var notices = map[string]string{
	string(authz.KindRun):    "Scheduled the cron event to run now.",
	string(authz.KindDelete): "Deleted the cron event.",
}

type pageData struct {
	Columns []listtable.Column
	Rows    []listtable.Row
	Empty   string
	Label   string
	Notice  string
	Page    int
	Prev    string
	Next    string
}

// renderPage renders one listing page. Cells are already escaped HTML.
// Only actions carrying a confirmation token get a form.
func renderPage(tbl *listtable.Table, prep listtable.Prepared, done string) (string, error) {
	p := prep.Page
	d := pageData{
		Columns: tbl.Columns(),
		Rows:    prep.Rows,
		Empty:   tbl.EmptyStateMessage(),
		Label:   tgui.PageLabel(p.Number, p.Size, p.TotalItems),
		Notice:  notices[done],
		Page:    p.Number,
	}
	if p.HasPrev() {
		d.Prev = strconv.Itoa(p.Number - 1)
	}
	if p.HasNext() {
		d.Next = strconv.Itoa(p.Number + 1)
	}
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderError(err error) string {
	var buf bytes.Buffer
	_ = errTmpl.Execute(&buf, err.Error())
	return buf.String()
}

var errTmpl = template.Must(template.New("error").Parse(
	`<!doctype html><html lang="en"><head><meta charset="utf-8"><title>Cron Events</title></head><body><h1>Cron Events</h1><p>⚠️ {{.}}</p></body></html>`,
))
