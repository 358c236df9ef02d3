package adapter

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitTextShortPassesThrough(t *testing.T) {
	t.Parallel()

	got := splitText("hello", 10, "HTML")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %q", got)
	}
	if got := splitText("", 10, ""); len(got) != 1 || got[0] != "" {
		t.Fatalf("empty = %q", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("a", 6) + "\n" + strings.Repeat("b", 6)
	got := splitText(s, 10, "")
	if len(got) != 2 || got[0] != "aaaaaa" || got[1] != "bbbbbb" {
		t.Fatalf("got %q", got)
	}
}

func TestSplitTextKeepsTagsWhole(t *testing.T) {
	t.Parallel()

	s := "abcdefgh<b>x</b>"
	got := splitText(s, 10, "HTML")
	if got[0] != "abcdefgh" {
		t.Fatalf("first = %q", got[0])
	}
	if strings.Join(got, "") != s {
		t.Fatalf("lost text: %q", got)
	}
}

func TestSplitTextRespectsLimit(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("é", 25)
	for _, chunk := range splitText(s, 10, "") {
		if n := utf8.RuneCountInString(chunk); n > 10 {
			t.Fatalf("chunk has %d runes", n)
		}
	}
}
