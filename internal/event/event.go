package event

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// AdHocHook is the synthetic hook used for user-authored code snippets.
const AdHocHook = "crontrol_cron_job"

// DefaultPageSize is the listing page size when none is configured.
const DefaultPageSize = 50

// ErrStoreUnavailable is returned when the job store cannot be read.
var ErrStoreUnavailable = errors.New("event store unavailable")

// Event is one scheduled job instance.
//
// (Hook, Sig, Time) identifies an event within one listing snapshot;
// (Hook, Sig) survives reschedules.
type Event struct {
	Hook     string `json:"hook"`
	Sig      string `json:"sig"`
	Time     int64  `json:"time"`
	Args     Args   `json:"args"`
	Schedule string `json:"schedule,omitempty"`
	// Interval is the stored repeat interval in seconds (0 for one-off events).
	Interval int64 `json:"interval,omitempty"`
}

// IsAdHoc reports whether the event runs user-authored code.
func (e Event) IsAdHoc() bool { return e.Hook == AdHocHook }

// Recurring reports whether the event has a recurrence identifier.
func (e Event) Recurring() bool { return strings.TrimSpace(e.Schedule) != "" }

// NextRun returns Time as a time.Time.
func (e Event) NextRun() time.Time { return time.Unix(e.Time, 0) }

// Key returns a compact identifier for logs and audit rows.
func (e Event) Key() string {
	return e.Hook + "/" + e.Sig
}

// HookSet is a set of hook names.
type HookSet map[string]struct{}

// NewHookSet builds a set from names, ignoring blanks.
func NewHookSet(names ...string) HookSet {
	s := make(HookSet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Has reports membership. A nil set has no members.
func (s HookSet) Has(hook string) bool {
	_, ok := s[hook]
	return ok
}

// Names returns the members sorted.
func (s HookSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Store is the read side of the job store.
type Store interface {
	FetchAll(ctx context.Context) ([]Event, error)
	CoreHooks() HookSet
}
