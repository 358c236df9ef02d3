package storage

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"crontrol/internal/event"
)

// coreHookRef is shared by all drivers so config reloads can swap the set.
type coreHookRef struct {
	v atomic.Pointer[event.HookSet]
}

func (r *coreHookRef) Set(names []string) {
	if len(names) == 0 {
		names = DefaultCoreHooks
	}
	s := event.NewHookSet(names...)
	r.v.Store(&s)
}

func (r *coreHookRef) Get() event.HookSet {
	if p := r.v.Load(); p != nil {
		return *p
	}
	return event.NewHookSet(DefaultCoreHooks...)
}

// eventSet is the in-memory event table used by the memory and file drivers.
// Events are kept sorted by time, then hook.
type eventSet struct {
	mu     sync.RWMutex
	events []event.Event
	now    func() time.Time
}

func newEventSet(now func() time.Time) *eventSet {
	if now == nil {
		now = time.Now
	}
	return &eventSet{now: now}
}

func (s *eventSet) snapshot() []event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *eventSet) replace(events []event.Event) {
	s.mu.Lock()
	s.events = append([]event.Event(nil), events...)
	sortEvents(s.events)
	s.mu.Unlock()
}

func (s *eventSet) indexLocked(hook, sig string, at int64) int {
	for i, ev := range s.events {
		if ev.Hook == hook && ev.Sig == sig && ev.Time == at {
			return i
		}
	}
	return -1
}

func (s *eventSet) get(hook, sig string, at int64) (event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(hook, sig, at)
	if i < 0 {
		return event.Event{}, ErrNotFound
	}
	return s.events[i], nil
}

func (s *eventSet) add(ev event.Event) (event.Event, error) {
	ev = normalize(ev)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(ev.Hook, ev.Sig, ev.Time) >= 0 {
		return event.Event{}, ErrDuplicate
	}
	s.events = append(s.events, ev)
	sortEvents(s.events)
	return ev, nil
}

func (s *eventSet) delete(hook, sig string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(hook, sig, at)
	if i < 0 {
		return ErrNotFound
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	return nil
}

// update applies fn to the event and re-sorts. fn may change Time.
func (s *eventSet) update(hook, sig string, at int64, fn func(*event.Event)) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(hook, sig, at)
	if i < 0 {
		return event.Event{}, ErrNotFound
	}
	ev := s.events[i]
	fn(&ev)
	if ev.Time != at {
		if j := s.indexLocked(ev.Hook, ev.Sig, ev.Time); j >= 0 && j != i {
			return event.Event{}, ErrDuplicate
		}
	}
	s.events[i] = ev
	sortEvents(s.events)
	return ev, nil
}

func (s *eventSet) runNow(hook, sig string, at int64) (event.Event, error) {
	now := s.now().Unix()
	return s.update(hook, sig, at, func(ev *event.Event) { ev.Time = now })
}

func (s *eventSet) reschedule(hook, sig string, at int64, schedule string, interval int64) (event.Event, error) {
	return s.update(hook, sig, at, func(ev *event.Event) {
		ev.Schedule = strings.TrimSpace(schedule)
		ev.Interval = interval
		if ev.Schedule == "" {
			ev.Interval = 0
		}
	})
}

// normalize fills the derived fields of a new event.
func normalize(ev event.Event) event.Event {
	ev.Hook = strings.TrimSpace(ev.Hook)
	ev.Schedule = strings.TrimSpace(ev.Schedule)
	if ev.Sig == "" {
		ev.Sig = event.Signature(ev.Args)
	}
	if ev.Schedule == "" {
		ev.Interval = 0
	}
	return ev
}

func sortEvents(evs []event.Event) {
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].Time != evs[j].Time {
			return evs[i].Time < evs[j].Time
		}
		return evs[i].Hook < evs[j].Hook
	})
}
