package tgui

import (
	"fmt"
	"html"
	"strings"
)

// H is HTML restricted to the tag subset Telegram's HTML parse mode accepts,
// so the same value renders in chat and in a browser.
// Values of type H are already escaped.
type H string

func (h H) String() string { return string(h) }

// Esc escapes text.
func Esc(s string) H { return H(html.EscapeString(s)) }

// Raw marks a string as already-safe HTML.
// Use sparingly.
func Raw(s string) H { return H(s) }

func wrap(tag string, inner H) H { return H("<" + tag + ">" + inner.String() + "</" + tag + ">") }

func B(s string) H     { return wrap("b", Esc(s)) }
func I(s string) H     { return wrap("i", Esc(s)) }
func Code(s string) H  { return wrap("code", Esc(s)) }
func Quote(s string) H { return wrap("blockquote", Esc(s)) }

// Pre renders a preformatted block.
// Telegram requires balanced tags per message; split very long content
// with Builder.PreMulti.
func Pre(s string) H { return wrap("pre", Esc(s)) }

// Warn renders an inline warning line: "⚠️ msg".
func Warn(msg string) H { return H("⚠️ " + html.EscapeString(msg)) }

// Link builds an HTML link.
func Link(text, url string) H {
	return H(fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), html.EscapeString(text)))
}

// Concat joins parts without a separator.
func Concat(parts ...H) H {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(string(p))
	}
	return H(sb.String())
}

// JoinH joins non-blank parts with sep.
func JoinH(sep string, parts ...H) H {
	if len(parts) == 0 {
		return ""
	}
	ss := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p.String()) == "" {
			continue
		}
		ss = append(ss, p.String())
	}
	return H(strings.Join(ss, sep))
}

var tagReplacer = strings.NewReplacer(
	"<b>", "", "</b>", "",
	"<i>", "", "</i>", "",
	"<code>", "", "</code>", "",
	"<pre>", "", "</pre>", "",
	"<blockquote>", "", "</blockquote>", "",
)

// Plain strips the tags produced by this package and unescapes entities,
// for terminal output.
func Plain(h H) string {
	return html.UnescapeString(tagReplacer.Replace(string(h)))
}
