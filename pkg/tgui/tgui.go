package tgui

import (
	tele "gopkg.in/telebot.v4"
)

// Inline accumulates rows of an inline keyboard.
type Inline struct {
	rm   *tele.ReplyMarkup
	rows []tele.Row
}

func NewInline() *Inline {
	return &Inline{rm: &tele.ReplyMarkup{}}
}

// Row appends one row. Empty rows are dropped so optional buttons can be
// passed without checks.
func (i *Inline) Row(btn ...tele.Btn) *Inline {
	if len(btn) > 0 {
		i.rows = append(i.rows, tele.Row(btn))
		i.rm.Inline(i.rows...)
	}
	return i
}

// Grid lays btn out perRow to a row; the last row may be short.
func (i *Inline) Grid(perRow int, btn ...tele.Btn) *Inline {
	if perRow <= 0 {
		perRow = len(btn)
	}
	for len(btn) > 0 {
		n := min(perRow, len(btn))
		i.Row(btn[:n]...)
		btn = btn[n:]
	}
	return i
}

func (i *Inline) Rows() int { return len(i.rows) }

func (i *Inline) Markup() *tele.ReplyMarkup { return i.rm }

// Btn is a callback button; data is sent verbatim (see Data for encoding).
func Btn(text, data string) tele.Btn {
	return tele.Btn{Text: text, Data: data}
}

// ConfirmInline is the yes/no keyboard of a confirmation prompt.
func ConfirmInline(yes, no tele.Btn) *Inline {
	return NewInline().Row(yes, no)
}
