package storage

import (
	"context"
	"sync"

	"crontrol/internal/event"
)

// memoryStore keeps everything in process. Audit entries are retained up to
// a fixed count for inspection.
type memoryStore struct {
	set  *eventSet
	core coreHookRef

	mu     sync.Mutex
	audit  []AuditEntry
	closed bool
}

const memoryAuditMax = 1000

func openMemory(cfg Config) *memoryStore {
	s := &memoryStore{set: newEventSet(cfg.Now)}
	s.core.Set(cfg.CoreHooks)
	return s
}

func (s *memoryStore) FetchAll(ctx context.Context) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.set.snapshot(), nil
}

func (s *memoryStore) CoreHooks() event.HookSet    { return s.core.Get() }
func (s *memoryStore) SetCoreHooks(names []string) { s.core.Set(names) }

func (s *memoryStore) Get(_ context.Context, hook, sig string, at int64) (event.Event, error) {
	return s.set.get(hook, sig, at)
}

func (s *memoryStore) Add(_ context.Context, ev event.Event) (event.Event, error) {
	return s.set.add(ev)
}

func (s *memoryStore) Delete(_ context.Context, hook, sig string, at int64) error {
	return s.set.delete(hook, sig, at)
}

func (s *memoryStore) RunNow(_ context.Context, hook, sig string, at int64) (event.Event, error) {
	return s.set.runNow(hook, sig, at)
}

func (s *memoryStore) Reschedule(_ context.Context, hook, sig string, at int64, schedule string, interval int64) (event.Event, error) {
	return s.set.reschedule(hook, sig, at, schedule, interval)
}

func (s *memoryStore) AppendAudit(_ context.Context, e AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.audit = append(s.audit, e)
	if len(s.audit) > memoryAuditMax {
		s.audit = s.audit[len(s.audit)-memoryAuditMax:]
	}
	return nil
}

// auditLog returns a copy of the retained audit entries.
func (s *memoryStore) auditLog() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEntry(nil), s.audit...)
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
