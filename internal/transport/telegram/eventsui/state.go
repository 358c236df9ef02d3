package eventsui

import (
	"encoding/json"

	"crontrol/internal/authz"
	"crontrol/internal/event"
)

// rowRef points at one event and the list page it was opened from.
type rowRef struct {
	Hook string `json:"h"`
	Sig  string `json:"s"`
	Time int64  `json:"t"`
	Page int    `json:"p,omitempty"`
}

func refOf(ev event.Event, page int) rowRef {
	return rowRef{Hook: ev.Hook, Sig: ev.Sig, Time: ev.Time, Page: page}
}

// pending is a run/delete awaiting confirmation. Token is the signed
// confirmation token issued when the row was rendered.
type pending struct {
	Row   rowRef     `json:"r"`
	Kind  authz.Kind `json:"k"`
	Token string     `json:"j"`
}

// pick is the recurrence picker state. Schedule is the chosen entry on
// "set"; empty means one-off.
type pick struct {
	Row      rowRef `json:"r"`
	PickPage int    `json:"pp,omitempty"`
	Schedule string `json:"n,omitempty"`
}

func unmarshalState(b []byte, v any) error { return json.Unmarshal(b, v) }
