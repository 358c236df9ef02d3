package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"crontrol/internal/event"
	logx "crontrol/pkg/logx"
)

// fileStore persists events as a JSON snapshot rewritten after every
// mutation, and appends audit entries to a JSON Lines file.
//
// Files:
//   - <path>                (snapshot, replaced atomically via rename)
//   - <prefix>.audit.jsonl  (append-only)
type fileStore struct {
	log  logx.Logger
	set  *eventSet
	core coreHookRef

	path string

	// mu serializes mutation + snapshot so the file always matches memory.
	mu        sync.Mutex
	auditFile *os.File
}

type snapshotFile struct {
	Version int           `json:"version"`
	Events  []event.Event `json:"events"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	set := newEventSet(cfg.Now)
	events, err := loadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	set.replace(events)

	af, err := os.OpenFile(prefix+".audit.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	s := &fileStore{log: log, set: set, path: path, auditFile: af}
	s.core.Set(cfg.CoreHooks)
	log.Debug("file store opened", logx.String("path", path), logx.Int("events", len(events)))
	return s, nil
}

func loadSnapshot(path string) ([]event.Event, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil, nil
	}
	var snap snapshotFile
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return snap.Events, nil
}

// persistLocked writes the snapshot via tmp file + rename.
func (s *fileStore) persistLocked() error {
	snap := snapshotFile{Version: 1, Events: s.set.snapshot()}
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// mutate runs fn and persists; on persist failure the previous state is restored.
func (s *fileStore) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return ErrClosed
	}
	prev := s.set.snapshot()
	if err := fn(); err != nil {
		return err
	}
	if err := s.persistLocked(); err != nil {
		s.set.replace(prev)
		s.log.Warn("snapshot write failed", logx.String("path", s.path), logx.Err(err))
		return fmt.Errorf("persist events: %w", err)
	}
	return nil
}

func (s *fileStore) FetchAll(ctx context.Context) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.set.snapshot(), nil
}

func (s *fileStore) CoreHooks() event.HookSet    { return s.core.Get() }
func (s *fileStore) SetCoreHooks(names []string) { s.core.Set(names) }

func (s *fileStore) Get(_ context.Context, hook, sig string, at int64) (event.Event, error) {
	return s.set.get(hook, sig, at)
}

func (s *fileStore) Add(_ context.Context, ev event.Event) (event.Event, error) {
	var out event.Event
	err := s.mutate(func() (err error) {
		out, err = s.set.add(ev)
		return err
	})
	return out, err
}

func (s *fileStore) Delete(_ context.Context, hook, sig string, at int64) error {
	return s.mutate(func() error { return s.set.delete(hook, sig, at) })
}

func (s *fileStore) RunNow(_ context.Context, hook, sig string, at int64) (event.Event, error) {
	var out event.Event
	err := s.mutate(func() (err error) {
		out, err = s.set.runNow(hook, sig, at)
		return err
	})
	return out, err
}

func (s *fileStore) Reschedule(_ context.Context, hook, sig string, at int64, schedule string, interval int64) (event.Event, error) {
	var out event.Event
	err := s.mutate(func() (err error) {
		out, err = s.set.reschedule(hook, sig, at, schedule, interval)
		return err
	})
	return out, err
}

func (s *fileStore) AppendAudit(_ context.Context, e AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return ErrClosed
	}
	return json.NewEncoder(s.auditFile).Encode(e)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return nil
	}
	err := s.auditFile.Close()
	s.auditFile = nil
	return err
}
