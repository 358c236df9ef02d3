package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crontrol/internal/authz"
	"crontrol/internal/callbacks"
	"crontrol/internal/config"
	"crontrol/internal/event"
	"crontrol/internal/listtable"
	"crontrol/pkg/tgui"
)

const testConfig = `
logging:
  level: error
storage:
  driver: memory
events:
  page_size: 2
  timezone: UTC
  core_hooks: [my_core]
  callbacks:
    - hook: a
      name: "Mailer::flush"
schedules:
  every_90:
    display: Every 90 minutes
    spec: "@every 90m"
access:
  principals:
    - name: ops
      telegram_id: 42
      capabilities: [manage_options]
    - name: script
      token: s3cret
      capabilities: [manage_options, edit_files]
tokens:
  secret: k
  ttl: 5m
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewWithoutSurfaces(t *testing.T) {
	t.Parallel()

	a, err := New(writeConfig(t, testConfig), WithSurfaces(false))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Stop(context.Background(), StopAppStop) })

	if s, ok := a.Schedules().Get("every_90"); !ok || s.Interval != 90*time.Minute {
		t.Fatalf("schedule = %+v, %v", s, ok)
	}
	if p, ok := a.Principals().ByToken("s3cret"); !ok || p.Name != "script" {
		t.Fatalf("principal = %+v, %v", p, ok)
	}
	if !a.Store().CoreHooks().Has("my_core") {
		t.Fatalf("core hooks not applied")
	}

	ctx := context.Background()
	for i, hook := range []string{"a", "b", "c"} {
		if _, err := a.Store().Add(ctx, event.Event{Hook: hook, Time: int64(100 + i)}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	prep, err := a.Table(authz.NewSet(authz.CapManageOptions)).Prepare(ctx, 2)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if prep.Page.TotalPages != 2 || len(prep.Rows) != 1 || prep.Rows[0].Event.Hook != "c" {
		t.Fatalf("page = %+v", prep.Page)
	}
}

func flushQueue() {}

func TestCallbacksShowInActionsColumn(t *testing.T) {
	t.Parallel()

	a, err := New(writeConfig(t, testConfig), WithSurfaces(false), WithCallbacks(func(r *callbacks.Registry) error {
		return r.Add("b", 10, flushQueue)
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Stop(context.Background(), StopAppStop) })

	if got := a.Callbacks().Lookup("a"); len(got) != 1 || got[0].Descriptor() != "Mailer::flush" {
		t.Fatalf("declared = %+v", got)
	}
	if got := a.Callbacks().Lookup("b"); len(got) != 1 || got[0].Descriptor() != "app.flushQueue()" {
		t.Fatalf("registered = %+v", got)
	}

	ctx := context.Background()
	if _, err := a.Store().Add(ctx, event.Event{Hook: "a", Time: 100}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	prep, err := a.Table(authz.NewSet(authz.CapManageOptions)).Prepare(ctx, 1)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if cell := tgui.Plain(prep.Rows[0].Cells[listtable.ColActions]); !strings.Contains(cell, "Mailer::flush") {
		t.Fatalf("actions cell = %q", cell)
	}

	updated := strings.Replace(testConfig, `name: "Mailer::flush"`, `name: "Mailer::retry"`, 1)
	newCfg, err := config.ParseBytes("config.yaml", []byte(updated))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	a.applyConfig(a.Config(), newCfg)
	if got := a.Callbacks().Lookup("a"); len(got) != 1 || got[0].Descriptor() != "Mailer::retry" {
		t.Fatalf("declared after reload = %+v", got)
	}
	if got := a.Callbacks().Lookup("b"); len(got) != 1 {
		t.Fatalf("registered callback lost on reload: %+v", got)
	}
}

func TestWithCallbacksErrorFailsNew(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := New(writeConfig(t, testConfig), WithSurfaces(false), WithCallbacks(func(*callbacks.Registry) error {
		return boom
	}))
	if !errors.Is(err, boom) {
		t.Fatalf("New = %v", err)
	}
}

func TestApplyConfigReloadsLiveParts(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, testConfig)
	a, err := New(path, WithSurfaces(false))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Stop(context.Background(), StopAppStop) })

	updated := strings.NewReplacer(
		"core_hooks: [my_core]", "core_hooks: [other_core]",
		"telegram_id: 42", "telegram_id: 43",
		`spec: "@every 90m"`, `spec: "@every 2h"`,
	).Replace(testConfig)
	newCfg, err := config.ParseBytes(path, []byte(updated))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	a.applyConfig(a.Config(), newCfg)

	if !a.Store().CoreHooks().Has("other_core") || a.Store().CoreHooks().Has("my_core") {
		t.Fatalf("core hooks not swapped")
	}
	if _, ok := a.Principals().ByTelegramID(43); !ok {
		t.Fatalf("principal directory not updated")
	}
	if s, _ := a.Schedules().Get("every_90"); s.Interval != 2*time.Hour {
		t.Fatalf("schedule interval = %v", s.Interval)
	}
}

func TestValidateRejectsBadCrossChecks(t *testing.T) {
	t.Parallel()

	a, err := New(writeConfig(t, testConfig), WithSurfaces(false))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Stop(context.Background(), StopAppStop) })

	bad := *a.Config()
	bad.Schedules = map[string]config.ScheduleConfig{"x": {Display: "X", Spec: "every so often"}}
	bad.Tokens.TTL = "soon"
	err = a.validate(context.Background(), &bad)
	if err == nil {
		t.Fatalf("validate accepted bad config")
	}
	for _, want := range []string{"schedules.x", "tokens.ttl"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		driver, path string
		want         string
		wantErr      bool
	}{
		{"", "", "memory", false},
		{"file", "./events.json", "file", false},
		{"file", "", "", true},
		{"SQLite", "./db.sqlite", "sqlite", false},
		{"redis", "x", "", true},
	}
	for _, tc := range cases {
		cfg := &config.Config{Storage: config.StorageConfig{Driver: tc.driver, Path: tc.path}}
		got, err := mapStorageConfig(cfg)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%q: err = %v", tc.driver, err)
		}
		if err == nil && got.Driver != tc.want {
			t.Fatalf("%q: driver = %q, want %q", tc.driver, got.Driver, tc.want)
		}
	}
}
