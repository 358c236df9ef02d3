package authz

import (
	"errors"

	"crontrol/internal/event"
)

// ErrNotPermitted is returned when a mutating request is not allowed for
// the principal. Listing never produces it; disallowed actions are omitted.
var ErrNotPermitted = errors.New("action not permitted")

// Kind is a row action.
type Kind string

const (
	KindEdit   Kind = "edit"
	KindRun    Kind = "run"
	KindDelete Kind = "delete"
)

// Label returns the button text for k.
func (k Kind) Label() string {
	switch k {
	case KindEdit:
		return "Edit"
	case KindRun:
		return "Run Now"
	case KindDelete:
		return "Delete"
	default:
		return string(k)
	}
}

// ParseKind maps a wire value back to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindEdit, KindRun, KindDelete:
		return Kind(s), true
	}
	return "", false
}

// Action is enough to build the follow-up mutating request for one event.
type Action struct {
	Kind                 Kind   `json:"kind"`
	Label                string `json:"label"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	Hook                 string `json:"hook"`
	Sig                  string `json:"sig"`
	Time                 int64  `json:"time"`
	// Token is filled by the presentation layer for confirmed actions.
	Token string `json:"token,omitempty"`
}

// ActionsFor returns the permitted actions for ev, always ordered
// Edit, Run, Delete.
//
// Run is always offered. Delete is never offered for core hooks. The
// ad-hoc code hook needs CapEditFiles for Edit and Delete.
func ActionsFor(ev event.Event, caps Capabilities, coreHooks event.HookSet) []Action {
	out := make([]Action, 0, 3)
	for _, k := range []Kind{KindEdit, KindRun, KindDelete} {
		if Allowed(k, ev, caps, coreHooks) {
			out = append(out, newAction(k, ev))
		}
	}
	return out
}

// Allowed evaluates the same rules as ActionsFor for one action kind.
func Allowed(k Kind, ev event.Event, caps Capabilities, coreHooks event.HookSet) bool {
	if caps == nil {
		caps = None
	}
	codeLocked := ev.IsAdHoc() && !caps.Has(CapEditFiles)
	switch k {
	case KindRun:
		return true
	case KindEdit:
		return !codeLocked
	case KindDelete:
		return !codeLocked && !coreHooks.Has(ev.Hook)
	default:
		return false
	}
}

// Check is Allowed returning ErrNotPermitted.
func Check(k Kind, ev event.Event, caps Capabilities, coreHooks event.HookSet) error {
	if !Allowed(k, ev, caps, coreHooks) {
		return ErrNotPermitted
	}
	return nil
}

func newAction(k Kind, ev event.Event) Action {
	return Action{
		Kind:                 k,
		Label:                k.Label(),
		RequiresConfirmation: k != KindEdit,
		Hook:                 ev.Hook,
		Sig:                  ev.Sig,
		Time:                 ev.Time,
	}
}
