//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crontrol/internal/event"
	logx "crontrol/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db   *sql.DB
	log  logx.Logger
	core coreHookRef
	now  func() time.Time
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	st := &sqliteStore{db: db, log: log, now: now}
	st.core.Set(cfg.CoreHooks)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug("sqlite store opened", logx.String("path", path))
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) CoreHooks() event.HookSet    { return s.core.Get() }
func (s *sqliteStore) SetCoreHooks(names []string) { s.core.Set(names) }

const eventCols = `hook, sig, time, args, schedule, interval`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (event.Event, error) {
	var (
		ev   event.Event
		args string
	)
	if err := r.Scan(&ev.Hook, &ev.Sig, &ev.Time, &args, &ev.Schedule, &ev.Interval); err != nil {
		return event.Event{}, err
	}
	if err := json.Unmarshal([]byte(args), &ev.Args); err != nil {
		return event.Event{}, fmt.Errorf("decode args of %s: %w", ev.Key(), err)
	}
	return ev, nil
}

func (s *sqliteStore) FetchAll(ctx context.Context) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventCols+` FROM events ORDER BY time, hook`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Get(ctx context.Context, hook, sig string, at int64) (event.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventCols+` FROM events WHERE hook = ? AND sig = ? AND time = ?`, hook, sig, at)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, ErrNotFound
	}
	return ev, err
}

func (s *sqliteStore) Add(ctx context.Context, ev event.Event) (event.Event, error) {
	ev = normalize(ev)
	args, err := json.Marshal(ev.Args)
	if err != nil {
		return event.Event{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events(`+eventCols+`) VALUES(?,?,?,?,?,?) ON CONFLICT DO NOTHING`,
		ev.Hook, ev.Sig, ev.Time, string(args), ev.Schedule, ev.Interval,
	)
	if err != nil {
		return event.Event{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return event.Event{}, ErrDuplicate
	}
	return ev, nil
}

func (s *sqliteStore) Delete(ctx context.Context, hook, sig string, at int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE hook = ? AND sig = ? AND time = ?`, hook, sig, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) RunNow(ctx context.Context, hook, sig string, at int64) (event.Event, error) {
	now := s.now().Unix()
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET time = ? WHERE hook = ? AND sig = ? AND time = ?`, now, hook, sig, at)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return event.Event{}, ErrDuplicate
		}
		return event.Event{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return event.Event{}, ErrNotFound
	}
	return s.Get(ctx, hook, sig, now)
}

func (s *sqliteStore) Reschedule(ctx context.Context, hook, sig string, at int64, schedule string, interval int64) (event.Event, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		interval = 0
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET schedule = ?, interval = ? WHERE hook = ? AND sig = ? AND time = ?`,
		schedule, interval, hook, sig, at)
	if err != nil {
		return event.Event{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return event.Event{}, ErrNotFound
	}
	return s.Get(ctx, hook, sig, at)
}

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = s.now()
	}
	ok := 0
	if e.OK {
		ok = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, actor, surface, action, hook, sig, time, ok, err)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), nullStr(e.Actor), e.Surface, e.Action, e.Hook, e.Sig, e.Time, ok, nullStr(e.Error),
	)
	return err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
