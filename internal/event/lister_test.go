package event

import (
	"context"
	"errors"
	"strconv"
	"testing"
)

type sliceStore struct {
	events []Event
	err    error
}

func (s sliceStore) FetchAll(context.Context) ([]Event, error) { return s.events, s.err }
func (s sliceStore) CoreHooks() HookSet                        { return nil }

func makeEvents(n int) []Event {
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Event{Hook: "hook_" + strconv.Itoa(i), Sig: strconv.Itoa(i), Time: int64(1700000000 + i)})
	}
	return out
}

func TestListThirdPageOf120(t *testing.T) {
	t.Parallel()

	l := NewLister(sliceStore{events: makeEvents(120)})
	p, err := l.List(context.Background(), 3, 50)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(p.Events) != 20 {
		t.Fatalf("len = %d, want 20", len(p.Events))
	}
	if p.Events[0].Sig != "100" || p.Events[19].Sig != "119" {
		t.Fatalf("slice = %s..%s, want 100..119", p.Events[0].Sig, p.Events[19].Sig)
	}
	if p.TotalPages != 3 || p.TotalItems != 120 {
		t.Fatalf("meta = %+v", p)
	}
	if !p.HasPrev() || p.HasNext() {
		t.Fatalf("prev/next = %v/%v", p.HasPrev(), p.HasNext())
	}
}

func TestListUnionCoversCollection(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 49, 50, 51, 100, 120, 257} {
		n := n
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			t.Parallel()
			l := NewLister(sliceStore{events: makeEvents(n)})

			first, err := l.List(context.Background(), 1, DefaultPageSize)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			want := (n + 49) / 50
			if first.TotalPages != want {
				t.Fatalf("total pages = %d, want %d", first.TotalPages, want)
			}

			seen := map[string]bool{}
			for page := 1; page <= first.TotalPages; page++ {
				p, err := l.List(context.Background(), page, DefaultPageSize)
				if err != nil {
					t.Fatalf("List(%d): %v", page, err)
				}
				for _, ev := range p.Events {
					if seen[ev.Sig] {
						t.Fatalf("duplicate %s on page %d", ev.Sig, page)
					}
					seen[ev.Sig] = true
				}
			}
			if len(seen) != n {
				t.Fatalf("union = %d, want %d", len(seen), n)
			}
		})
	}
}

func TestListBeyondLastPageIsEmpty(t *testing.T) {
	t.Parallel()

	l := NewLister(sliceStore{events: makeEvents(10)})
	p, err := l.List(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(p.Events) != 0 {
		t.Fatalf("expected empty page, got %d", len(p.Events))
	}
	if p.TotalPages != 2 {
		t.Fatalf("total pages = %d", p.TotalPages)
	}
}

func TestListDefaultsAndStoreFailure(t *testing.T) {
	t.Parallel()

	l := NewLister(sliceStore{events: makeEvents(60)})
	p, err := l.List(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if p.Number != 1 || p.Size != DefaultPageSize || len(p.Events) != 50 {
		t.Fatalf("defaults not applied: %+v", p)
	}

	boom := errors.New("disk on fire")
	_, err = NewLister(sliceStore{err: boom}).List(context.Background(), 1, 10)
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrStoreUnavailable wrapping cause", err)
	}
}

func TestClampPage(t *testing.T) {
	t.Parallel()

	cases := []struct{ page, total, want int }{
		{0, 3, 1},
		{-4, 3, 1},
		{2, 3, 2},
		{9, 3, 3},
		{5, 0, 1},
	}
	for _, tc := range cases {
		if got := ClampPage(tc.page, tc.total); got != tc.want {
			t.Fatalf("ClampPage(%d,%d) = %d, want %d", tc.page, tc.total, got, tc.want)
		}
	}
}
