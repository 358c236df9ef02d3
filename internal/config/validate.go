package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks field-level constraints and reports every problem found.
//
// Cross-package checks (e.g. recurrence specs) are installed by the app via
// ConfigManager.SetValidator.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if cfg.Telegram.Enabled && strings.TrimSpace(cfg.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token: required when telegram.enabled"))
	}
	if _, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.Telegram.RatePerMin < 0 {
		errs = append(errs, errors.New("telegram.rate_per_min: must be >= 0"))
	}

	if _, err := ParseDurationField("http.read_timeout", cfg.HTTP.ReadTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("http.write_timeout", cfg.HTTP.WriteTimeout); err != nil {
		errs = append(errs, err)
	}

	if driver, err := StorageDriver(cfg.Storage.Driver); err != nil {
		errs = append(errs, err)
	} else if driver != "memory" && strings.TrimSpace(cfg.Storage.Path) == "" {
		errs = append(errs, fieldErr("storage.path", "required for driver %q", driver))
	}
	if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		errs = append(errs, err)
	}

	if cfg.Events.PageSize < 0 {
		errs = append(errs, errors.New("events.page_size: must be >= 0"))
	}
	if _, err := ParseTimezone(cfg.Events.Timezone); err != nil {
		errs = append(errs, err)
	}
	for i, cb := range cfg.Events.Callbacks {
		if strings.TrimSpace(cb.Hook) == "" || strings.TrimSpace(cb.Name) == "" {
			errs = append(errs, fmt.Errorf("events.callbacks[%d]: hook and name are required", i))
		}
	}

	for id, sc := range cfg.Schedules {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, errors.New("schedules: empty identifier"))
			continue
		}
		if strings.TrimSpace(sc.Spec) == "" {
			errs = append(errs, fmt.Errorf("schedules.%s.spec: required", id))
		}
	}

	seenTokens := map[string]string{}
	for i, p := range cfg.Access.Principals {
		path := fmt.Sprintf("access.principals[%d]", i)
		if p.TelegramID == 0 && strings.TrimSpace(p.Token) == "" {
			errs = append(errs, fmt.Errorf("%s: telegram_id or token required", path))
		}
		if tok := strings.TrimSpace(p.Token); tok != "" {
			if other, dup := seenTokens[tok]; dup {
				errs = append(errs, fmt.Errorf("%s: token already used by %q", path, other))
			}
			seenTokens[tok] = p.Name
		}
	}

	if _, err := ParseDurationField("tokens.ttl", cfg.Tokens.TTL); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
