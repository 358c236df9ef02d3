package storage

import (
	"context"
	"errors"
	"time"

	"crontrol/internal/event"
)

var (
	// ErrNotFound means the (hook, sig, time) triple no longer exists.
	ErrNotFound = errors.New("event not found")
	// ErrDuplicate means an identical (hook, sig, time) is already scheduled.
	ErrDuplicate = errors.New("event already scheduled")
	ErrClosed    = errors.New("storage closed")
	// ErrDriver means the configured driver is unknown or not compiled in.
	ErrDriver = errors.New("storage driver unavailable")
)

// DefaultCoreHooks are the platform-owned hooks used when none are configured.
var DefaultCoreHooks = []string{
	"delete_expired_transients",
	"recovery_mode_clean_expired_keys",
	"wp_delete_temp_updater_backups",
	"wp_https_detection",
	"wp_privacy_delete_old_export_files",
	"wp_scheduled_auto_draft_delete",
	"wp_scheduled_delete",
	"wp_site_health_scheduled_check",
	"wp_update_plugins",
	"wp_update_themes",
	"wp_update_user_counts",
	"wp_version_check",
}

// Config configures storage.
//
// Driver values:
//   - "" or "memory": in-process only, lost on exit
//   - "file": JSON snapshot + JSON Lines audit log next to Path
//   - "sqlite": SQLite database file (build tag "sqlite")
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	// CoreHooks replaces DefaultCoreHooks when non-empty.
	CoreHooks []string
	// Now overrides the clock used by RunNow (tests).
	Now func() time.Time
}

// Store is the job store: the read side used for listing plus the
// mutations requested from the row actions.
//
// Mutations address an event by (hook, sig, time); concurrent requests for
// the same triple succeed at most once, later ones get ErrNotFound.
type Store interface {
	event.Store

	Get(ctx context.Context, hook, sig string, at int64) (event.Event, error)
	// Add schedules ev. An empty Sig is derived from the args.
	Add(ctx context.Context, ev event.Event) (event.Event, error)
	Delete(ctx context.Context, hook, sig string, at int64) error
	// RunNow moves the event's next run to the current time. Nothing is
	// executed here.
	RunNow(ctx context.Context, hook, sig string, at int64) (event.Event, error)
	// Reschedule replaces the recurrence of an event. An empty schedule
	// makes it a one-off.
	Reschedule(ctx context.Context, hook, sig string, at int64, schedule string, interval int64) (event.Event, error)

	SetCoreHooks(names []string)
	AppendAudit(ctx context.Context, e AuditEntry) error
	Close() error
}

// AuditEntry records an operator action.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At      time.Time `json:"at"`
	Actor   string    `json:"actor"`
	Surface string    `json:"surface"` // "telegram" | "http" | "cli"
	Action  string    `json:"action"`
	Hook    string    `json:"hook"`
	Sig     string    `json:"sig"`
	Time    int64     `json:"time"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
}
