package tgui

import (
	"context"
	"strings"
	"unicode/utf8"

	"crontrol/internal/transport"

	tele "gopkg.in/telebot.v4"
)

// Message is a rendered UI payload: HTML text + send options.
type Message struct {
	Text string
	Opt  *transport.SendOptions

	// More are follow-up messages (e.g. long Pre chunks), each valid HTML
	// on its own.
	More []string
}

// Send sends the Message. ReplyMarkup is only attached to the first message.
func (m Message) Send(ctx context.Context, ad transport.Adapter, to transport.ChatTarget) (transport.MessageRef, error) {
	if m.Opt == nil {
		m.Opt = &transport.SendOptions{}
	}
	ref, err := ad.SendText(ctx, to, m.Text, m.Opt)
	if err != nil {
		return ref, err
	}
	return ref, m.sendMore(ctx, ad, to)
}

// Edit edits the message referred by ref. More parts are sent as new
// messages (Telegram cannot edit several messages at once).
func (m Message) Edit(ctx context.Context, ad transport.Adapter, ref transport.MessageRef, to transport.ChatTarget) error {
	if m.Opt == nil {
		m.Opt = &transport.SendOptions{}
	}
	if err := ad.EditText(ctx, ref, m.Text, m.Opt); err != nil {
		return err
	}
	return m.sendMore(ctx, ad, to)
}

func (m Message) sendMore(ctx context.Context, ad transport.Adapter, to transport.ChatTarget) error {
	if len(m.More) == 0 {
		return nil
	}
	opt := *m.Opt
	opt.ReplyMarkupAdapter = nil
	for _, t := range m.More {
		if strings.TrimSpace(t) == "" {
			continue
		}
		if _, err := ad.SendText(ctx, to, t, &opt); err != nil {
			return err
		}
	}
	return nil
}

// Builder assembles an HTML message. Previews are disabled.
type Builder struct {
	rm    *tele.ReplyMarkup
	lines []string
	more  []string
}

func New() *Builder { return &Builder{} }

// Inline attaches an inline keyboard.
func (b *Builder) Inline(kb *Inline) *Builder {
	if kb == nil {
		b.rm = nil
		return b
	}
	b.rm = kb.Markup()
	return b
}

// Title adds a bold title line. Emoji is optional.
func (b *Builder) Title(emoji, title string) *Builder {
	e := strings.TrimSpace(emoji)
	t := strings.TrimSpace(title)
	if t == "" {
		return b
	}
	if e != "" {
		b.lines = append(b.lines, Esc(e).String()+" "+B(t).String())
	} else {
		b.lines = append(b.lines, B(t).String())
	}
	return b
}

// Line adds an escaped line.
func (b *Builder) Line(s string) *Builder {
	if strings.TrimSpace(s) == "" {
		b.lines = append(b.lines, "")
		return b
	}
	b.lines = append(b.lines, Esc(s).String())
	return b
}

// HTML appends already-safe HTML as one line.
func (b *Builder) HTML(h H) *Builder {
	b.lines = append(b.lines, h.String())
	return b
}

// Blank inserts an empty line.
func (b *Builder) Blank() *Builder { return b.Line("") }

// KV adds a "• key: value" row with value given as safe HTML.
func (b *Builder) KV(key string, value H) *Builder {
	key = strings.TrimSpace(key)
	if key == "" {
		return b
	}
	b.lines = append(b.lines, "• "+B(key).String()+": "+value.String())
	return b
}

// PreMulti renders a long pre block into several Telegram-safe messages.
// The first chunk stays in the main message.
func (b *Builder) PreMulti(code string, chunkLimit ...int) *Builder {
	code = strings.TrimRight(code, "\n")
	if code == "" {
		return b
	}
	limit := 3500
	if len(chunkLimit) > 0 && chunkLimit[0] > 0 {
		limit = chunkLimit[0]
	}

	// Chunk by runes; Telegram's limit is 4096 characters per message.
	const preWrapperOverhead = 11 // len("<pre></pre>")
	eff := limit - preWrapperOverhead
	if eff < 128 {
		eff = 128
	}

	start := 0
	first := true
	for start < len(code) {
		runes := 0
		end := start
		lastNL := -1
		lastNLRunes := 0
		for end < len(code) && runes < eff {
			r, size := utf8.DecodeRuneInString(code[end:])
			if r == '\n' {
				lastNL = end + size
				lastNLRunes = runes + 1
			}
			runes++
			end += size
		}
		// Prefer a newline boundary near the end of the window.
		if end < len(code) && lastNL != -1 && lastNLRunes >= eff/3 {
			end = lastNL
		}
		chunk := strings.TrimRight(code[start:end], "\n")
		if first {
			b.lines = append(b.lines, Pre(chunk).String())
			first = false
		} else {
			b.more = append(b.more, Pre(chunk).String())
		}
		start = end
		for start < len(code) && code[start] == '\n' {
			start++
		}
	}
	return b
}

// Build produces a ready-to-send Message.
func (b *Builder) Build() Message {
	text := strings.Trim(strings.Join(b.lines, "\n"), "\n")
	opt := &transport.SendOptions{ParseMode: "HTML", DisablePreview: true}
	if b.rm != nil {
		opt.ReplyMarkupAdapter = b.rm
	}
	return Message{Text: text, Opt: opt, More: append([]string(nil), b.more...)}
}
