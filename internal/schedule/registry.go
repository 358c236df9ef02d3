package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"crontrol/internal/event"
)

// ErrUnknownSchedule is returned when an event names a recurrence the
// registry does not know (e.g. its definition was removed).
var ErrUnknownSchedule = errors.New("unknown schedule")

// UnknownError carries the identifier that failed to resolve.
type UnknownError struct {
	Name string
}

func (e *UnknownError) Error() string { return "Unknown (" + e.Name + ")" }

func (e *UnknownError) Is(target error) bool { return target == ErrUnknownSchedule }

// Schedule is one recurrence registry entry.
type Schedule struct {
	Name     string        `json:"name"`
	Display  string        `json:"display"`
	Interval time.Duration `json:"interval"`
}

// Label returns Display, falling back to Name.
func (s Schedule) Label() string {
	if d := strings.TrimSpace(s.Display); d != "" {
		return d
	}
	return s.Name
}

// Builtins are the recurrences every registry starts with.
func Builtins() []Schedule {
	return []Schedule{
		{Name: "hourly", Display: "Once Hourly", Interval: time.Hour},
		{Name: "twicedaily", Display: "Twice Daily", Interval: 12 * time.Hour},
		{Name: "daily", Display: "Once Daily", Interval: 24 * time.Hour},
		{Name: "weekly", Display: "Once Weekly", Interval: 7 * 24 * time.Hour},
	}
}

// Definition is a configured recurrence before parsing.
type Definition struct {
	Display string
	Spec    string
}

// Registry maps recurrence identifiers to entries. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Schedule
}

// NewRegistry returns a registry holding the given entries.
func NewRegistry(entries ...Schedule) *Registry {
	r := &Registry{entries: make(map[string]Schedule, len(entries))}
	for _, s := range entries {
		r.entries[s.Name] = s
	}
	return r
}

// Build parses configured definitions on top of the built-ins.
// All invalid definitions are reported together.
func Build(defs map[string]Definition) (*Registry, error) {
	r := NewRegistry(Builtins()...)
	var errs []error
	for name, def := range defs {
		name = strings.TrimSpace(name)
		spec, err := ParseSpec(def.Spec)
		if err != nil {
			errs = append(errs, fmt.Errorf("schedules.%s: %w", name, err))
			continue
		}
		r.entries[name] = Schedule{Name: name, Display: strings.TrimSpace(def.Display), Interval: spec.Every}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Replace swaps all entries atomically (used on config reload).
func (r *Registry) Replace(other *Registry) {
	if other == nil {
		return
	}
	other.mu.RLock()
	next := make(map[string]Schedule, len(other.entries))
	for k, v := range other.entries {
		next[k] = v
	}
	other.mu.RUnlock()

	r.mu.Lock()
	r.entries = next
	r.mu.Unlock()
}

// Get returns the entry for name.
func (r *Registry) Get(name string) (Schedule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.entries[name]
	return s, ok
}

// Resolve returns the display label of the event's recurrence.
//
// An unknown identifier yields an *UnknownError (matching
// ErrUnknownSchedule) whose message is suitable for direct display.
func (r *Registry) Resolve(ev event.Event) (string, error) {
	s, ok := r.Get(ev.Schedule)
	if !ok {
		return "", &UnknownError{Name: ev.Schedule}
	}
	return s.Label(), nil
}

// Sorted lists entries by interval, then name.
func (r *Registry) Sorted() []Schedule {
	r.mu.RLock()
	out := make([]Schedule, 0, len(r.entries))
	for _, s := range r.entries {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Interval != out[j].Interval {
			return out[i].Interval < out[j].Interval
		}
		return out[i].Name < out[j].Name
	})
	return out
}
