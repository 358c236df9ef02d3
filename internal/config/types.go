package config

// Config is the on-disk configuration (JSON or YAML).
//
// Unknown keys are rejected so typos surface on the first (re)load.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	HTTP     HTTPConfig     `json:"http"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Events   EventsConfig   `json:"events"`

	// Schedules extends (or overrides) the built-in recurrence registry.
	// Key is the recurrence identifier stored on events.
	Schedules map[string]ScheduleConfig `json:"schedules,omitempty"`

	Access AccessConfig `json:"access"`
	Tokens TokensConfig `json:"tokens"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
	// RatePerMin bounds mutating callbacks (run/delete/edit) per principal.
	RatePerMin int `json:"rate_per_min,omitempty"`
}

// HTTPConfig controls the optional HTML/JSON listing endpoint.
//
// Prefer binding to localhost; bearer tokens from access.principals are
// required for every request.
type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8085"

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`

	// Pprof exposes /debug/pprof behind the same bearer auth.
	Pprof bool `json:"pprof,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig selects the job store backend.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./data/events.json" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// EventsConfig controls the event listing.
type EventsConfig struct {
	// PageSize is the number of events per page (default 50).
	PageSize int `json:"page_size,omitempty"`
	// Timezone is an IANA TZ used to render next-run timestamps, e.g. "Asia/Jakarta".
	Timezone string `json:"timezone,omitempty"`
	// CoreHooks replaces the default set of platform-owned hooks.
	CoreHooks []string `json:"core_hooks,omitempty"`
	// Callbacks lists the handlers the event runner attaches to each hook,
	// shown in the Actions column.
	Callbacks []CallbackConfig `json:"callbacks,omitempty"`
}

type CallbackConfig struct {
	Hook     string `json:"hook"`
	Name     string `json:"name"`
	Priority int    `json:"priority,omitempty"`
}

// ScheduleConfig is one recurrence registry entry.
//
// Spec accepts the same forms as the recurrence parser:
// "@hourly", "@every 90m", "2h", "02:30" or a 5-field cron expression.
type ScheduleConfig struct {
	Display string `json:"display"`
	Spec    string `json:"spec"`
}

type AccessConfig struct {
	Principals []PrincipalConfig `json:"principals"`
}

// PrincipalConfig maps an operator identity to a capability list.
//
// A principal is matched either by Telegram user id or by HTTP bearer token.
type PrincipalConfig struct {
	Name         string   `json:"name"`
	TelegramID   int64    `json:"telegram_id,omitempty"`
	Token        string   `json:"token,omitempty"` // never logged
	Capabilities []string `json:"capabilities,omitempty"`
}

// TokensConfig controls signing of confirmation tokens for run/delete.
type TokensConfig struct {
	Secret string `json:"secret,omitempty"` // empty: random per process
	TTL    string `json:"ttl,omitempty"`    // default "15m"
}
