package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crontrol/internal/event"
	logx "crontrol/pkg/logx"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func openTest(t *testing.T, driver string) Store {
	t.Helper()
	cfg := Config{Driver: driver, Now: func() time.Time { return testNow }}
	if driver == "file" {
		cfg.Path = filepath.Join(t.TempDir(), "events.json")
	}
	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStoreLifecycle(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"memory", "file"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := openTest(t, driver)

			later, err := st.Add(ctx, event.Event{Hook: "b_task", Time: 2000, Args: event.Positional("x")})
			if err != nil {
				t.Fatalf("Add: %v", err)
			}
			if later.Sig != event.Signature(event.Positional("x")) {
				t.Fatalf("sig = %q", later.Sig)
			}
			if _, err := st.Add(ctx, event.Event{Hook: "a_task", Sig: "s1", Time: 1000, Schedule: "hourly", Interval: 3600}); err != nil {
				t.Fatalf("Add: %v", err)
			}
			if _, err := st.Add(ctx, event.Event{Hook: "a_task", Sig: "s1", Time: 1000}); !errors.Is(err, ErrDuplicate) {
				t.Fatalf("duplicate Add = %v", err)
			}

			all, err := st.FetchAll(ctx)
			if err != nil {
				t.Fatalf("FetchAll: %v", err)
			}
			if len(all) != 2 || all[0].Hook != "a_task" || all[1].Hook != "b_task" {
				t.Fatalf("order = %+v", all)
			}

			ran, err := st.RunNow(ctx, "a_task", "s1", 1000)
			if err != nil {
				t.Fatalf("RunNow: %v", err)
			}
			if ran.Time != testNow.Unix() {
				t.Fatalf("RunNow time = %d", ran.Time)
			}
			if _, err := st.RunNow(ctx, "a_task", "s1", 1000); !errors.Is(err, ErrNotFound) {
				t.Fatalf("second RunNow = %v", err)
			}

			re, err := st.Reschedule(ctx, "a_task", "s1", ran.Time, "", 3600)
			if err != nil {
				t.Fatalf("Reschedule: %v", err)
			}
			if re.Schedule != "" || re.Interval != 0 {
				t.Fatalf("one-off reschedule = %+v", re)
			}

			if err := st.Delete(ctx, "b_task", later.Sig, 2000); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := st.Delete(ctx, "b_task", later.Sig, 2000); !errors.Is(err, ErrNotFound) {
				t.Fatalf("second Delete = %v", err)
			}
			if _, err := st.Get(ctx, "b_task", later.Sig, 2000); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get deleted = %v", err)
			}

			if err := st.AppendAudit(ctx, AuditEntry{At: testNow, Actor: "admin", Surface: "cli", Action: "delete", Hook: "b_task", OK: true}); err != nil {
				t.Fatalf("AppendAudit: %v", err)
			}
		})
	}
}

func TestConcurrentDeleteSucceedsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := openTest(t, "memory")
	if _, err := st.Add(ctx, event.Event{Hook: "h", Sig: "s", Time: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := st.Delete(ctx, "h", "s", 1); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	if ok.Load() != 1 {
		t.Fatalf("delete succeeded %d times", ok.Load())
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "events.json")
	cfg := Config{Driver: "file", Path: path}

	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := st.Add(ctx, event.Event{Hook: event.AdHocHook, Time: 50, Args: event.Named("name", "Backup", "code", "echo 1;")}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := st.AppendAudit(ctx, AuditEntry{Action: "add", Hook: event.AdHocHook, OK: true}); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	all, err := st2.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(all) != 1 || all[0].Args.String("name") != "Backup" || all[0].Args[0].Key != "name" {
		t.Fatalf("reloaded = %+v", all)
	}

	audit, err := os.ReadFile(filepath.Join(filepath.Dir(path), "events.audit.jsonl"))
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	if !strings.Contains(string(audit), `"action":"add"`) {
		t.Fatalf("audit = %s", audit)
	}
}

func TestCoreHooksDefaultAndOverride(t *testing.T) {
	t.Parallel()

	st := openTest(t, "memory")
	if !st.CoreHooks().Has("wp_version_check") {
		t.Fatal("default core hooks missing")
	}
	st.SetCoreHooks([]string{"my_core"})
	if st.CoreHooks().Has("wp_version_check") || !st.CoreHooks().Has("my_core") {
		t.Fatalf("override = %v", st.CoreHooks().Names())
	}
	st.SetCoreHooks(nil)
	if !st.CoreHooks().Has("wp_version_check") {
		t.Fatal("empty override should restore defaults")
	}
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); !errors.Is(err, ErrDriver) {
		t.Fatalf("unknown driver err = %v", err)
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected missing path error")
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(Config{Driver: "file", Path: bad}, logx.Nop()); err == nil {
		t.Fatal("expected corrupt snapshot error")
	}
}
