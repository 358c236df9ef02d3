package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseBytesJSONAndYAML(t *testing.T) {
	t.Parallel()

	jsonCfg := []byte(`{
  "storage": {"driver": "file", "path": "./events.json"},
  "events": {"page_size": 20, "timezone": "UTC"},
  "schedules": {"fortnightly": {"display": "Every Two Weeks", "spec": "336h"}}
}`)
	yamlCfg := []byte(`
storage:
  driver: file
  path: ./events.json
events:
  page_size: 20
  timezone: UTC
schedules:
  fortnightly:
    display: Every Two Weeks
    spec: 336h
`)

	cases := []struct {
		name string
		path string
		data []byte
	}{
		{"json", "config.json", jsonCfg},
		{"yaml", "config.yaml", yamlCfg},
		{"yml", "config.yml", yamlCfg},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := ParseBytes(tc.path, tc.data)
			if err != nil {
				t.Fatalf("ParseBytes: %v", err)
			}
			if cfg.Storage.Driver != "file" || cfg.Storage.Path != "./events.json" {
				t.Fatalf("storage = %+v", cfg.Storage)
			}
			if cfg.Events.PageSize != 20 {
				t.Fatalf("page_size = %d", cfg.Events.PageSize)
			}
			sc, ok := cfg.Schedules["fortnightly"]
			if !ok || sc.Display != "Every Two Weeks" || sc.Spec != "336h" {
				t.Fatalf("schedules = %+v", cfg.Schedules)
			}
			if err := Validate(cfg); err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestParseBytesRejectsUnknownAndTrailing(t *testing.T) {
	t.Parallel()

	if _, err := ParseBytes("c.json", []byte(`{"storage":{"drvier":"file"}}`)); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if _, err := ParseBytes("c.yaml", []byte("eventz:\n  page_size: 3\n")); err == nil {
		t.Fatalf("expected unknown field error for yaml")
	}
	if _, err := ParseBytes("c.json", []byte(`{} {}`)); err == nil {
		t.Fatalf("expected trailing data error")
	}
	cfg, err := ParseBytes("c.yaml", []byte(""))
	if err != nil {
		t.Fatalf("empty yaml: %v", err)
	}
	if cfg.Events.PageSize != 0 {
		t.Fatalf("empty yaml should give zero config")
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Telegram: TelegramConfig{Enabled: true},
		Storage:  StorageConfig{Driver: "redis"},
		Events:   EventsConfig{PageSize: -1, Timezone: "Mars/Olympus"},
		Schedules: map[string]ScheduleConfig{
			"broken": {Display: "Broken"},
		},
		Access: AccessConfig{Principals: []PrincipalConfig{
			{Name: "a", Token: "t1"},
			{Name: "b", Token: "t1"},
			{Name: "nobody"},
		}},
		Tokens: TokensConfig{TTL: "soon"},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{
		"telegram.token",
		"storage.driver",
		"events.page_size",
		"events.timezone",
		"schedules.broken.spec",
		"token already used",
		"access.principals[2]",
		"tokens.ttl",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q does not mention %q", msg, want)
		}
	}
}

func TestLoadCommitsValidConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"events":{"page_size":5}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := NewConfigManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatalf("Get should return committed config")
	}

	if err := os.WriteFile(path, []byte(`{"events":{"page_size":-5}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := m.Load(); err == nil {
		t.Fatalf("expected invalid config to be rejected")
	}
	if m.Get().Events.PageSize != 5 {
		t.Fatalf("rejected config must not replace committed one")
	}
}

func TestSubscribeDeliversLatest(t *testing.T) {
	t.Parallel()

	m := NewConfigManager("unused.json")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	a := &Config{Events: EventsConfig{PageSize: 1}}
	b := &Config{Events: EventsConfig{PageSize: 2}}
	m.publish(a)
	m.publish(b)

	got := <-ch
	if got != b {
		t.Fatalf("expected latest config, got page_size=%d", got.Events.PageSize)
	}
}

func TestSummarizeConfigChangeHidesSecrets(t *testing.T) {
	t.Parallel()

	oldCfg := &Config{Access: AccessConfig{Principals: []PrincipalConfig{{Name: "a", Token: "secret-1"}}}}
	newCfg := &Config{
		Access: AccessConfig{Principals: []PrincipalConfig{{Name: "a", Token: "secret-2"}}},
		Events: EventsConfig{PageSize: 10},
	}
	changed, attrs := SummarizeConfigChange(oldCfg, newCfg)
	if strings.Join(changed, ",") != "access,events" {
		t.Fatalf("changed = %v", changed)
	}
	if len(attrs) == 0 {
		t.Fatalf("expected attrs")
	}

	changed, _ = SummarizeConfigChange(newCfg, newCfg)
	if len(changed) != 0 {
		t.Fatalf("identical configs should report no change, got %v", changed)
	}
}
