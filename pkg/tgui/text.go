package tgui

import "unicode/utf8"

const ellipsis = "…"

// TruncRunes shortens s to n runes, marking the cut with an ellipsis.
func TruncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for n > 0 {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		n--
	}
	return s[:i] + ellipsis
}

// TruncEsc truncates then escapes, so the ellipsis never splits an entity.
func TruncEsc(s string, n int) H { return Esc(TruncRunes(s, n)) }
