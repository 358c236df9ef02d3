package app

import (
	"fmt"
	"strings"
	"time"

	"crontrol/internal/actiontoken"
	"crontrol/internal/authz"
	"crontrol/internal/callbacks"
	"crontrol/internal/config"
	"crontrol/internal/schedule"
	"crontrol/internal/storage"
	"crontrol/internal/transport/httpapi"
	logx "crontrol/pkg/logx"
)

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	driver, err := config.StorageDriver(cfg.Storage.Driver)
	if err != nil {
		return storage.Config{}, err
	}
	out := storage.Config{
		Driver:    driver,
		Path:      strings.TrimSpace(cfg.Storage.Path),
		CoreHooks: cfg.Events.CoreHooks,
	}
	if driver == "memory" {
		return out, nil
	}
	if out.Path == "" {
		return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
	}
	if driver == "sqlite" {
		out.BusyTimeout, err = config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, err
		}
	}
	return out, nil
}

func mapCallbacks(cfg *config.Config) []callbacks.Declared {
	out := make([]callbacks.Declared, 0, len(cfg.Events.Callbacks))
	for _, cb := range cfg.Events.Callbacks {
		out = append(out, callbacks.Declared{
			Hook:     strings.TrimSpace(cb.Hook),
			Priority: cb.Priority,
			Name:     strings.TrimSpace(cb.Name),
		})
	}
	return out
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapPrincipals(cfg *config.Config) []authz.Principal {
	out := make([]authz.Principal, 0, len(cfg.Access.Principals))
	for _, p := range cfg.Access.Principals {
		out = append(out, authz.Principal{
			Name:         strings.TrimSpace(p.Name),
			TelegramID:   p.TelegramID,
			Token:        strings.TrimSpace(p.Token),
			Capabilities: authz.NewSet(p.Capabilities...),
		})
	}
	return out
}

func buildSchedules(cfg *config.Config) (*schedule.Registry, error) {
	defs := make(map[string]schedule.Definition, len(cfg.Schedules))
	for id, sc := range cfg.Schedules {
		defs[id] = schedule.Definition{Display: sc.Display, Spec: sc.Spec}
	}
	return schedule.Build(defs)
}

func mapLocation(cfg *config.Config) (*time.Location, error) {
	return config.ParseTimezone(cfg.Events.Timezone)
}

func mapTokenTTL(cfg *config.Config) (time.Duration, error) {
	return config.ParseDurationOrDefault("tokens.ttl", cfg.Tokens.TTL, actiontoken.DefaultTTL)
}

func mapHTTPConfig(cfg *config.Config) (httpapi.Config, error) {
	rt, err := config.ParseDurationOrDefault("http.read_timeout", cfg.HTTP.ReadTimeout, 10*time.Second)
	if err != nil {
		return httpapi.Config{}, err
	}
	wt, err := config.ParseDurationOrDefault("http.write_timeout", cfg.HTTP.WriteTimeout, 15*time.Second)
	if err != nil {
		return httpapi.Config{}, err
	}
	return httpapi.Config{
		Addr:         strings.TrimSpace(cfg.HTTP.Addr),
		ReadTimeout:  rt,
		WriteTimeout: wt,
		Pprof:        cfg.HTTP.Pprof,
	}, nil
}
