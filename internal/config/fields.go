package config

import (
	"fmt"
	"strings"
	"time"
)

// FieldError ties a bad value to its dotted config path.
type FieldError struct {
	Path string
	Err  error
}

func (e *FieldError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e *FieldError) Unwrap() error { return e.Err }

func fieldErr(path, format string, args ...any) error {
	return &FieldError{Path: path, Err: fmt.Errorf(format, args...)}
}

// ParseDurationField parses an optional, non-negative Go duration.
// An empty value yields 0.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, &FieldError{Path: path, Err: err}
	}
	if d < 0 {
		return 0, fieldErr(path, "duration %q must be >= 0", raw)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def substituted for
// an empty or zero value.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}

// ParseTimezone resolves events.timezone; empty means the host zone.
func ParseTimezone(raw string) (*time.Location, error) {
	tz := strings.TrimSpace(raw)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, &FieldError{Path: "events.timezone", Err: err}
	}
	return loc, nil
}

// StorageDriver normalizes storage.driver. Empty selects "memory" and
// "sqlite3" is an alias of "sqlite".
func StorageDriver(raw string) (string, error) {
	switch d := strings.ToLower(strings.TrimSpace(raw)); d {
	case "", "memory":
		return "memory", nil
	case "file":
		return d, nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fieldErr("storage.driver", "unknown driver %q", raw)
	}
}
